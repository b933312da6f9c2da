package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("history entry not found")

// Entry is one completed download.
type Entry struct {
	ID          int64     `json:"id"`
	ItemID      string    `json:"item_id,omitempty"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Quality     string    `json:"quality,omitempty"`
	FilePath    string    `json:"file_path"`
	SizeBytes   int64     `json:"size_bytes"`
	CompletedAt time.Time `json:"completed_at"`
}

// timeLayout is fixed width so completed_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = "id, item_id, url, title, thumbnail, quality, file_path, size_bytes, completed_at"

// Add inserts entry as the newest record and prunes the oldest records beyond
// the configured limit. The stored entry is returned with its id.
func (s *Store) Add(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.URL) == "" {
		return Entry{}, errors.New("history entry requires a url")
	}
	if strings.TrimSpace(entry.FilePath) == "" {
		return Entry{}, errors.New("history entry requires a file path")
	}
	if entry.CompletedAt.IsZero() {
		entry.CompletedAt = time.Now()
	}
	entry.CompletedAt = entry.CompletedAt.UTC()

	res, err := s.execWithRetry(ctx,
		`INSERT INTO downloads (item_id, url, title, thumbnail, quality, file_path, size_bytes, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ItemID, entry.URL, entry.Title, entry.Thumbnail, entry.Quality,
		entry.FilePath, entry.SizeBytes, entry.CompletedAt.Format(timeLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("history entry id: %w", err)
	}
	entry.ID = id

	if _, err := s.execWithRetry(ctx,
		`DELETE FROM downloads WHERE id NOT IN (
			SELECT id FROM downloads ORDER BY completed_at DESC, id DESC LIMIT ?
		)`, s.maxEntries,
	); err != nil {
		return entry, fmt.Errorf("prune history: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM downloads ORDER BY completed_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns a single entry.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM downloads WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return entry, err
}

// Delete removes one entry. The downloaded file is left in place.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM downloads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM downloads")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM downloads").Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry     Entry
		completed string
	)
	if err := row.Scan(
		&entry.ID, &entry.ItemID, &entry.URL, &entry.Title, &entry.Thumbnail,
		&entry.Quality, &entry.FilePath, &entry.SizeBytes, &completed,
	); err != nil {
		return Entry{}, err
	}
	parsed, err := time.Parse(timeLayout, completed)
	if err != nil {
		return Entry{}, fmt.Errorf("parse completed_at %q: %w", completed, err)
	}
	entry.CompletedAt = parsed
	return entry, nil
}
