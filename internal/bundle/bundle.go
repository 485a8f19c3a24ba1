package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/queue"
	"bindery/internal/services"
)

var (
	// ErrSelectionEmpty is returned when the selection has no usable items.
	ErrSelectionEmpty = errors.New("select at least one completed item")
	// ErrPackagingFailed is returned when the service could not produce a bundle.
	ErrPackagingFailed = errors.New("bundle packaging failed")
)

// Packager asks the service for an archive of the named results.
type Packager interface {
	Bundle(ctx context.Context, filenames []string) ([]byte, error)
}

// Delivery receives a finished archive.
type Delivery interface {
	Deliver(ctx context.Context, archive []byte) (string, error)
}

// Result describes a delivered bundle.
type Result struct {
	Path    string
	Size    int64
	Entries int
}

// Requester builds bundles from done queue items.
type Requester struct {
	store    *queue.Store
	packager Packager
	delivery Delivery
	logger   *slog.Logger
}

// NewRequester constructs a requester.
func NewRequester(store *queue.Store, packager Packager, delivery Delivery, logger *slog.Logger) *Requester {
	return &Requester{
		store:    store,
		packager: packager,
		delivery: delivery,
		logger:   logging.NewComponentLogger(logger, "bundle"),
	}
}

// Request packages the results of ids. Duplicate ids are ignored and the
// archive lists results in selection order.
func (r *Requester) Request(ctx context.Context, ids []int64) (Result, error) {
	ctx = services.WithStage(ctx, "bundle")
	filenames, err := r.selection(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	archive, err := r.packager.Bundle(ctx, filenames)
	if err != nil {
		logging.WarnWithContext(r.logger, "bundle request failed", "bundle_failed",
			logging.Error(err),
			logging.Int("files", len(filenames)),
			logging.String(logging.FieldImpact, "no bundle written; items unchanged"),
			logging.String(logging.FieldErrorHint, "retry the bundle command"),
		)
		return Result{}, fmt.Errorf("%w: %w", ErrPackagingFailed, err)
	}

	entries, err := countEntries(archive)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPackagingFailed,
			services.Wrap(services.ErrPackaging, "bundle", "validate", "response is not a zip archive", err))
	}

	path, err := r.delivery.Deliver(ctx, archive)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPackagingFailed, err)
	}

	result := Result{Path: path, Size: int64(len(archive)), Entries: entries}
	r.logger.Info("bundle saved",
		logging.String("path", path),
		logging.String("size", humanize.IBytes(uint64(result.Size))),
		logging.Int("entries", entries),
		logging.String(logging.FieldEventType, "bundle_saved"),
	)
	return result, nil
}

// selection resolves ids to result filenames, rejecting the whole request on
// the first id that is unknown or not done.
func (r *Requester) selection(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, ErrSelectionEmpty
	}
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	items, err := r.store.ListByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*queue.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	filenames := make([]string, 0, len(unique))
	for _, id := range unique {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: item %d does not exist", ErrSelectionEmpty, id)
		}
		if !item.IsDone() {
			return nil, fmt.Errorf("%w: item %d is %s", ErrSelectionEmpty, id, item.Status)
		}
		filenames = append(filenames, item.ResultFilename)
	}
	return filenames, nil
}

func countEntries(archive []byte) (int, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return 0, err
	}
	return len(reader.File), nil
}

// FileDelivery writes the archive to a fixed path, replacing any earlier bundle.
type FileDelivery struct {
	Path string
}

// NewFileDelivery delivers into dir under name.
func NewFileDelivery(dir, name string) FileDelivery {
	return FileDelivery{Path: filepath.Join(dir, name)}
}

func (d FileDelivery) Deliver(_ context.Context, archive []byte) (string, error) {
	if _, err := fileutil.WriteAtomic(d.Path, bytes.NewReader(archive)); err != nil {
		return "", services.Wrap(services.ErrPackaging, "bundle", "deliver", "", err)
	}
	return d.Path, nil
}
