package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/queue"
)

// Skipped is a path the intake filter refused.
type Skipped struct {
	Path   string
	Reason string
}

// FilterPaths splits paths into files the queue should accept and the ones it
// should not, based on existence and the configured extensions.
func FilterPaths(cfg *config.Config, paths []string) ([]string, []Skipped) {
	accepted := make([]string, 0, len(paths))
	var skipped []Skipped
	seen := make(map[string]struct{}, len(paths))
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, dup := seen[path]; dup {
			skipped = append(skipped, Skipped{Path: path, Reason: "listed twice"})
			continue
		}
		seen[path] = struct{}{}

		info, err := os.Stat(path)
		switch {
		case err != nil:
			skipped = append(skipped, Skipped{Path: path, Reason: "not readable"})
		case info.IsDir():
			skipped = append(skipped, Skipped{Path: path, Reason: "is a directory"})
		case !cfg.AcceptsExtension(filepath.Ext(path)):
			skipped = append(skipped, Skipped{Path: path, Reason: fmt.Sprintf("extension not in %v", cfg.Intake.Extensions)})
		default:
			accepted = append(accepted, path)
		}
	}
	return accepted, skipped
}

// Intake adds one pending item per path in order. An empty list is ignored.
func (s *Session) Intake(ctx context.Context, paths []string) ([]*queue.Item, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	items := make([]*queue.Item, 0, len(paths))
	for _, path := range paths {
		item, err := s.store.Enqueue(ctx, path)
		if err != nil {
			return items, err
		}
		items = append(items, item)
		s.presenter.OnQueued(item.ID, item.DisplayName)
		s.logger.Debug("file queued", logging.Item(item.ID), logging.String("path", path))
	}

	summary, err := s.store.Summarize(ctx)
	if err != nil {
		return items, err
	}
	s.presenter.OnQueueSummaryChanged(summary.Pending, summary.Converting)
	return items, nil
}
