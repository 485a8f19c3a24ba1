package testsupport

import (
	"context"
	"testing"

	"bindery/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open(context.Background())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue adds a pending item for path.
func Enqueue(t testing.TB, store *queue.Store, path string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), path)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}

// MustTransition applies a transition and fails the test on error.
func MustTransition(t testing.TB, store *queue.Store, id int64, to queue.Status, outcome queue.Outcome) *queue.Item {
	t.Helper()

	item, err := store.Transition(context.Background(), id, to, outcome)
	if err != nil {
		t.Fatalf("store.Transition(%d, %s): %v", id, to, err)
	}
	return item
}

// MarkDone walks a pending item through converting into done with result name filename.
func MarkDone(t testing.TB, store *queue.Store, id int64, filename string) *queue.Item {
	t.Helper()

	MustTransition(t, store, id, queue.StatusConverting, queue.Outcome{})
	return MustTransition(t, store, id, queue.StatusDone, queue.Outcome{
		ResultFilename: filename,
		DownloadURL:    "/download/" + filename,
	})
}
