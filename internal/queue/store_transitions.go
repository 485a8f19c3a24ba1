package queue

import (
	"context"
	"fmt"
	"strings"
)

// Transition moves item id into status to. The update only applies while the
// item still holds the legal source status, so concurrent callers cannot both
// win. Entering converting additionally requires that no other item is
// converting. Rejections wrap ErrInvalidTransition; unknown ids return
// ErrNotFound.
func (s *Store) Transition(ctx context.Context, id int64, to Status, outcome Outcome) (*Item, error) {
	from, ok := legalSources[to]
	if !ok {
		return nil, s.rejectTransition(ctx, id, to, "no transition leads to "+string(to))
	}

	var (
		query string
		args  []any
	)
	now := timestamp()
	switch to {
	case StatusConverting:
		query = `UPDATE queue_items SET status = ?, updated_at = ?
            WHERE id = ? AND status = ?
              AND NOT EXISTS (SELECT 1 FROM queue_items WHERE status = ?)`
		args = []any{to, now, id, from, StatusConverting}
	case StatusDone:
		filename := strings.TrimSpace(outcome.ResultFilename)
		locator := strings.TrimSpace(outcome.DownloadURL)
		if filename == "" || locator == "" {
			return nil, s.rejectTransition(ctx, id, to, "result filename and download url are required")
		}
		query = `UPDATE queue_items
            SET status = ?, result_filename = ?, download_url = ?, error_message = NULL, updated_at = ?
            WHERE id = ? AND status = ?`
		args = []any{to, filename, locator, now, id, from}
	case StatusError:
		message := strings.TrimSpace(outcome.Message)
		if message == "" {
			message = "conversion failed"
		}
		query = `UPDATE queue_items
            SET status = ?, error_message = ?, result_filename = NULL, download_url = NULL, updated_at = ?
            WHERE id = ? AND status = ?`
		args = []any{to, nullableString(message), now, id, from}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transition item %d to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		reason := ""
		if to == StatusConverting {
			reason = "requires pending and no other item converting"
		}
		return nil, s.rejectTransition(ctx, id, to, reason)
	}
	return s.GetByID(ctx, id)
}

// rejectTransition builds the error for a refused transition, distinguishing unknown ids.
func (s *Store) rejectTransition(ctx context.Context, id int64, to Status, reason string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return &TransitionError{ID: id, From: current.Status, To: to, Reason: reason}
}
