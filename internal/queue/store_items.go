package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Enqueue adds a pending item for sourcePath and returns it with its new id.
func (s *Store) Enqueue(ctx context.Context, sourcePath string) (*Item, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("enqueue: source path is empty")
	}
	now := timestamp()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (source_path, display_name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		sourcePath,
		displayNameFor(sourcePath),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. A missing id returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// NextPending returns the pending item with the lowest id, or nil when none remain.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY id LIMIT 1`,
		StatusPending,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// List returns items ordered by id, optionally filtered to the given statuses.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	items, err := s.queryItems(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListByIDs returns the items that exist among ids, ordered by id.
func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE id IN (` + makePlaceholders(len(ids)) + `) ORDER BY id`

	items, err := s.queryItems(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items by id: %w", err)
	}
	return items, nil
}
