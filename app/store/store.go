// Package store persists extracted job postings to DuckDB. The target can be
// a local database file or a MotherDuck dsn (md:...), both handled by the
// duckdb driver.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb/v2" // duckdb driver

	"github.com/jobsift/jobsift/app/scraper"
)

// StoreError reports a failed database operation with the target it hit.
type StoreError struct {
	Target string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on %s: %v", e.Op, e.Target, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store keeps job postings in a single jobs table.
type Store struct {
	db     *sqlx.DB
	target string
}

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS jobs (
		title      VARCHAR,
		location   VARCHAR,
		link       VARCHAR,
		source_url VARCHAR NOT NULL,
		scraped_at TIMESTAMP NOT NULL
	)`

const insertQuery = `
	INSERT INTO jobs (title, location, link, source_url, scraped_at)
	VALUES (?, ?, ?, ?, ?)`

// New opens the target database and ensures the jobs table exists.
func New(target string) (*Store, error) {
	db, err := sqlx.Connect("duckdb", target)
	if err != nil {
		return nil, &StoreError{Target: target, Op: "open", Err: err}
	}

	if _, err := db.Exec(createTableQuery); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, &StoreError{Target: target, Op: "init",
				Err: fmt.Errorf("%w (also failed to close db: %v)", err, closeErr)}
		}
		return nil, &StoreError{Target: target, Op: "init", Err: err}
	}

	return &Store{db: db, target: target}, nil
}

// Save inserts one row per posting, all stamped with the same scraped_at time.
// With replace set, rows previously stored for sourceURL are deleted first.
// Delete and inserts run in a single transaction, a failed insert rolls the
// whole batch back including the delete. Returns the number of rows inserted.
func (s *Store) Save(ctx context.Context, postings []scraper.Posting, sourceURL string, replace bool) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, &StoreError{Target: s.target, Op: "begin", Err: err}
	}
	defer tx.Rollback() // no-op after commit

	if replace {
		res, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE source_url = ?", sourceURL)
		if err != nil {
			return 0, &StoreError{Target: s.target, Op: "delete", Err: err}
		}
		if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
			log.Printf("[INFO] replaced %d existing postings for %s", deleted, sourceURL)
		}
	}

	scrapedAt := time.Now().UTC()
	for _, p := range postings {
		_, err := tx.ExecContext(ctx, insertQuery,
			nullable(p.Title), nullable(p.Location), nullable(p.Link), sourceURL, scrapedAt)
		if err != nil {
			return 0, &StoreError{Target: s.target, Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Target: s.target, Op: "commit", Err: err}
	}
	return len(postings), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
