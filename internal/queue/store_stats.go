package queue

import (
	"context"
	"fmt"
)

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CountByStatus returns how many items currently hold status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM queue_items WHERE status = ?`,
		status,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", status, err)
	}
	return count, nil
}

// Summary counts items per status.
type Summary struct {
	Pending    int
	Converting int
	Done       int
	Error      int
}

// Total is the number of items in the session.
func (s Summary) Total() int {
	return s.Pending + s.Converting + s.Done + s.Error
}

// Summarize folds Stats into a Summary.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Pending:    stats[StatusPending],
		Converting: stats[StatusConverting],
		Done:       stats[StatusDone],
		Error:      stats[StatusError],
	}, nil
}
