package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bindery/internal/queue"
	"bindery/internal/testsupport"
)

func TestEnqueueAssignsIncreasingIDs(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	a := testsupport.Enqueue(t, store, "/books/a.epub")
	b := testsupport.Enqueue(t, store, "/books/b.epub")
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("expected increasing ids, got %d then %d", a.ID, b.ID)
	}
	if a.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}
	if a.DisplayName != "a.epub" {
		t.Fatalf("display name = %q", a.DisplayName)
	}

	fetched, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourcePath != "/books/b.epub" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestEnqueueRejectsEmptyPath(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	if _, err := store.Enqueue(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDisplayNameIsNFC(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	// "é" as e + combining acute accent.
	item := testsupport.Enqueue(t, store, "/books/Cafe\u0301.epub")
	if item.DisplayName != "Caf\u00e9.epub" {
		t.Fatalf("expected composed display name, got %q", item.DisplayName)
	}
}

func TestIDsNeverReused(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	seen := map[int64]bool{}
	for i := 0; i < 20; i++ {
		item := testsupport.Enqueue(t, store, "/books/same.epub")
		if seen[item.ID] {
			t.Fatalf("id %d reused", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestNextPendingIsFIFO(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	next, err := store.NextPending(ctx)
	if err != nil || next != nil {
		t.Fatalf("expected empty queue, got %#v err=%v", next, err)
	}

	a := testsupport.Enqueue(t, store, "/books/a.epub")
	b := testsupport.Enqueue(t, store, "/books/b.epub")

	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next.ID != a.ID {
		t.Fatalf("expected %d first, got %d", a.ID, next.ID)
	}

	testsupport.MarkDone(t, store, a.ID, "a.epub")
	next, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next.ID != b.ID {
		t.Fatalf("expected %d next, got %d", b.ID, next.ID)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	item := testsupport.Enqueue(t, store, "/books/a.mobi")

	converting := testsupport.MustTransition(t, store, item.ID, queue.StatusConverting, queue.Outcome{})
	if converting.Status != queue.StatusConverting {
		t.Fatalf("expected converting, got %s", converting.Status)
	}

	done := testsupport.MustTransition(t, store, item.ID, queue.StatusDone, queue.Outcome{
		ResultFilename: "a.epub",
		DownloadURL:    "/download/a.epub",
	})
	if done.ResultFilename != "a.epub" || done.DownloadURL != "/download/a.epub" {
		t.Fatalf("result not recorded: %#v", done)
	}
	if done.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", done.ErrorMessage)
	}
}

func TestTransitionToErrorRecordsMessage(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	item := testsupport.Enqueue(t, store, "/books/a.mobi")
	testsupport.MustTransition(t, store, item.ID, queue.StatusConverting, queue.Outcome{})

	failed := testsupport.MustTransition(t, store, item.ID, queue.StatusError, queue.Outcome{Message: "HTTP 500"})
	if failed.ErrorMessage != "HTTP 500" {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	if failed.ResultFilename != "" || failed.DownloadURL != "" {
		t.Fatalf("error item should have no result: %#v", failed)
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	pending := testsupport.Enqueue(t, store, "/books/p.epub")
	done := testsupport.Enqueue(t, store, "/books/d.epub")
	testsupport.MarkDone(t, store, done.ID, "d.epub")

	cases := []struct {
		name string
		id   int64
		to   queue.Status
		out  queue.Outcome
	}{
		{"pending to done", pending.ID, queue.StatusDone, queue.Outcome{ResultFilename: "x", DownloadURL: "/download/x"}},
		{"pending to error", pending.ID, queue.StatusError, queue.Outcome{Message: "boom"}},
		{"pending to pending", pending.ID, queue.StatusPending, queue.Outcome{}},
		{"done to converting", done.ID, queue.StatusConverting, queue.Outcome{}},
		{"done to error", done.ID, queue.StatusError, queue.Outcome{Message: "boom"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before, err := store.GetByID(ctx, tc.id)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			_, err = store.Transition(ctx, tc.id, tc.to, tc.out)
			if !errors.Is(err, queue.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			var terr *queue.TransitionError
			if !errors.As(err, &terr) || terr.From != before.Status || terr.To != tc.to {
				t.Fatalf("unexpected transition error detail: %#v", terr)
			}
			after, err := store.GetByID(ctx, tc.id)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if after.Status != before.Status {
				t.Fatalf("status changed from %s to %s", before.Status, after.Status)
			}
		})
	}
}

func TestTransitionDoneRequiresResult(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	item := testsupport.Enqueue(t, store, "/books/a.epub")
	testsupport.MustTransition(t, store, item.ID, queue.StatusConverting, queue.Outcome{})

	_, err := store.Transition(context.Background(), item.ID, queue.StatusDone, queue.Outcome{ResultFilename: "a.epub"})
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionUnknownID(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	_, err := store.Transition(context.Background(), 999, queue.StatusConverting, queue.Outcome{})
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOnlyOneItemConverting(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	a := testsupport.Enqueue(t, store, "/books/a.epub")
	b := testsupport.Enqueue(t, store, "/books/b.epub")
	testsupport.MustTransition(t, store, a.ID, queue.StatusConverting, queue.Outcome{})

	if _, err := store.Transition(ctx, b.ID, queue.StatusConverting, queue.Outcome{}); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected second converting to be rejected, got %v", err)
	}

	count, err := store.CountByStatus(ctx, queue.StatusConverting)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one converting item, got %d", count)
	}

	testsupport.MustTransition(t, store, a.ID, queue.StatusError, queue.Outcome{Message: "HTTP 502"})
	testsupport.MustTransition(t, store, b.ID, queue.StatusConverting, queue.Outcome{})
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "/books/a.epub")

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Transition(ctx, item.ID, queue.StatusConverting, queue.Outcome{}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestListAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	a := testsupport.Enqueue(t, store, "/books/a.epub")
	b := testsupport.Enqueue(t, store, "/books/b.epub")
	c := testsupport.Enqueue(t, store, "/books/c.epub")
	testsupport.MarkDone(t, store, a.ID, "a.epub")
	testsupport.MustTransition(t, store, b.ID, queue.StatusConverting, queue.Outcome{})

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != a.ID || all[2].ID != c.ID {
		t.Fatalf("unexpected list order: %#v", all)
	}

	awaiting, err := store.List(ctx, queue.StatusPending, queue.StatusConverting)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(awaiting) != 2 || awaiting[0].ID != b.ID || awaiting[1].ID != c.ID {
		t.Fatalf("unexpected awaiting view: %#v", awaiting)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Pending != 1 || summary.Converting != 1 || summary.Done != 1 || summary.Total() != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	byID, err := store.ListByIDs(ctx, []int64{c.ID, a.ID, 12345})
	if err != nil {
		t.Fatalf("ListByIDs: %v", err)
	}
	if len(byID) != 2 || byID[0].ID != a.ID || byID[1].ID != c.ID {
		t.Fatalf("unexpected ListByIDs result: %#v", byID)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" DONE "); !ok || status != queue.StatusDone {
		t.Fatalf("ParseStatus(DONE) = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("completed"); ok {
		t.Fatal("unexpected status accepted")
	}
	if !queue.CanTransition(queue.StatusPending, queue.StatusConverting) || queue.CanTransition(queue.StatusDone, queue.StatusError) {
		t.Fatal("CanTransition table mismatch")
	}
}
