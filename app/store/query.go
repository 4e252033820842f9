package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is a stored posting row as read back from the jobs table.
type Entry struct {
	Title     string
	Location  string
	Link      string
	SourceURL string
	ScrapedAt time.Time
}

// CountBySource returns the number of rows currently stored for sourceURL.
func (s *Store) CountBySource(ctx context.Context, sourceURL string) (int, error) {
	var count int
	err := s.db.QueryRowxContext(ctx, "SELECT count(*) FROM jobs WHERE source_url = ?", sourceURL).Scan(&count)
	if err != nil {
		return 0, &StoreError{Target: s.target, Op: "count", Err: err}
	}
	return count, nil
}

// Recent returns up to limit most recently scraped rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT title, location, link, source_url, scraped_at FROM jobs ORDER BY scraped_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, &StoreError{Target: s.target, Op: "query", Err: err}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var title, location, link sql.NullString
		var e Entry
		if err := rows.Scan(&title, &location, &link, &e.SourceURL, &e.ScrapedAt); err != nil {
			return nil, &StoreError{Target: s.target, Op: "scan", Err: err}
		}
		e.Title, e.Location, e.Link = title.String, location.String, link.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Target: s.target, Op: "query", Err: fmt.Errorf("iterate rows: %w", err)}
	}
	return entries, nil
}
