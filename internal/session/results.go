package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"bindery/internal/bundle"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/queue"
	"bindery/internal/services"
)

// Views returns the two lists shown to the user: items still awaiting
// conversion and items that are finished, each in id order.
func (s *Session) Views(ctx context.Context) (awaiting, finished []*queue.Item, err error) {
	awaiting, err = s.store.List(ctx, queue.StatusPending, queue.StatusConverting)
	if err != nil {
		return nil, nil, err
	}
	finished, err = s.store.List(ctx, queue.StatusDone, queue.StatusError)
	if err != nil {
		return nil, nil, err
	}
	return awaiting, finished, nil
}

// Items returns every item in id order.
func (s *Session) Items(ctx context.Context) ([]*queue.Item, error) {
	return s.store.List(ctx)
}

// Item returns one item or services.ErrNotFound.
func (s *Session) Item(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.Wrap(services.ErrNotFound, "session", "lookup", fmt.Sprintf("no item %d", id), nil)
	}
	return item, nil
}

// Download saves the result of a done item into the output directory and returns its path.
func (s *Session) Download(ctx context.Context, id int64) (string, int64, error) {
	item, err := s.Item(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if !item.IsDone() {
		return "", 0, services.Wrap(services.ErrValidation, "session", "download",
			fmt.Sprintf("item %d is %s", id, item.Status), nil)
	}

	name := fileutil.SafeName(item.ResultFilename)
	if name == "" {
		name = fmt.Sprintf("result-%d", item.ID)
	}
	dest := filepath.Join(s.cfg.Output.Dir, name)
	ctx = services.WithItemID(ctx, id)
	size, err := s.client.Download(ctx, item.DownloadURL, dest)
	if err != nil {
		return "", 0, err
	}
	logging.WithContext(ctx, s.logger).Info("result downloaded",
		logging.String("path", dest),
		logging.String("size", humanize.IBytes(uint64(size))),
	)
	return dest, size, nil
}

// DoneIDs returns the ids of every done item.
func (s *Session) DoneIDs(ctx context.Context) ([]int64, error) {
	items, err := s.store.List(ctx, queue.StatusDone)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// Bundle requests one archive for ids.
func (s *Session) Bundle(ctx context.Context, ids []int64) (bundle.Result, error) {
	return s.bundler.Request(ctx, ids)
}
