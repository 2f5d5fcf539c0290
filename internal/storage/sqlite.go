// Package storage records crawl runs in SQLite: the pages each run fetched,
// their outgoing links and the final result set. It is write-only from the
// engine's point of view and never feeds state back into a run.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage stores crawl runs in a SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: concurrent page actions serialize here
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}
	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginRun registers a new run in the running state
func (s *SQLiteStorage) BeginRun(runID, seedURL string) error {
	_, err := s.db.Exec(
		"INSERT INTO crawl_runs (run_id, seed_url, status, started_at) VALUES (?, ?, ?, ?)",
		runID, seedURL, RunRunning, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to begin run %s: %w", runID, err)
	}
	return nil
}

// SavePage stores a fetched page. A page saved twice for the same run keeps
// the latest values.
func (s *SQLiteStorage) SavePage(runID string, page *PageRecord) error {
	query := `
		INSERT INTO pages (
			run_id, url, final_url, status_code, title, meta_robots,
			canonical_url, content_hash, content_type, response_size_bytes,
			download_time_ms, fetch_error, crawled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO UPDATE SET
			final_url = excluded.final_url,
			status_code = excluded.status_code,
			title = excluded.title,
			meta_robots = excluded.meta_robots,
			canonical_url = excluded.canonical_url,
			content_hash = excluded.content_hash,
			content_type = excluded.content_type,
			response_size_bytes = excluded.response_size_bytes,
			download_time_ms = excluded.download_time_ms,
			fetch_error = excluded.fetch_error,
			crawled_at = excluded.crawled_at
	`

	crawledAt := page.CrawledAt
	if crawledAt.IsZero() {
		crawledAt = time.Now()
	}

	_, err := s.db.Exec(query,
		runID,
		page.URL,
		nullString(page.FinalURL),
		page.StatusCode,
		nullString(page.Title),
		nullString(page.MetaRobots),
		nullString(page.CanonicalURL),
		nullString(page.ContentHash),
		nullString(page.ContentType),
		page.ResponseSize,
		page.DownloadTime.Milliseconds(),
		nullString(page.FetchError),
		crawledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.URL, err)
	}
	return nil
}

// SaveLinks saves the outgoing links of one page in a single transaction.
// Duplicate (source, target) pairs within a run are ignored.
func (s *SQLiteStorage) SaveLinks(runID string, links []LinkRecord) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO links (run_id, source_url, target_url, anchor_text, rel_attribute)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, link := range links {
		if _, err := stmt.Exec(runID, link.SourceURL, link.TargetURL, nullString(link.AnchorText), nullString(link.RelAttribute)); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", link.SourceURL, link.TargetURL, err)
		}
	}

	return tx.Commit()
}

// FinishRun seals a run with its final status and result set
func (s *SQLiteStorage) FinishRun(runID, status string, urls []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		"UPDATE crawl_runs SET status = ?, finished_at = ?, url_count = ? WHERE run_id = ?",
		status, time.Now().UTC(), len(urls), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	if _, err := tx.Exec("DELETE FROM run_urls WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to reset run urls: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO run_urls (run_id, position, url) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, u := range urls {
		if _, err := stmt.Exec(runID, i, u); err != nil {
			return fmt.Errorf("failed to insert run url %s: %w", u, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run with its result set
func (s *SQLiteStorage) GetRun(runID string) (*Run, error) {
	var (
		run      Run
		finished sql.NullTime
	)
	err := s.db.QueryRow(
		"SELECT run_id, seed_url, status, started_at, finished_at FROM crawl_runs WHERE run_id = ?",
		runID,
	).Scan(&run.ID, &run.SeedURL, &run.Status, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}

	rows, err := s.db.Query("SELECT url FROM run_urls WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	run.URLs = []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan run url: %w", err)
		}
		run.URLs = append(run.URLs, u)
	}
	return &run, rows.Err()
}

// RunPages returns the pages of a run in the order they were saved
func (s *SQLiteStorage) RunPages(runID string) ([]PageRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, final_url, status_code, title, meta_robots, canonical_url,
		       content_hash, content_type, response_size_bytes, download_time_ms,
		       fetch_error, crawled_at
		FROM pages
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []PageRecord
	for rows.Next() {
		var (
			page                               PageRecord
			finalURL, title, robots, canonical sql.NullString
			hash, contentType, fetchErr        sql.NullString
			size, downloadMS                   sql.NullInt64
		)
		if err := rows.Scan(
			&page.URL, &finalURL, &page.StatusCode, &title, &robots, &canonical,
			&hash, &contentType, &size, &downloadMS, &fetchErr, &page.CrawledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.FinalURL = finalURL.String
		page.Title = title.String
		page.MetaRobots = robots.String
		page.CanonicalURL = canonical.String
		page.ContentHash = hash.String
		page.ContentType = contentType.String
		page.ResponseSize = int(size.Int64)
		page.DownloadTime = time.Duration(downloadMS.Int64) * time.Millisecond
		page.FetchError = fetchErr.String
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// PageLinks returns the outgoing links recorded for one page of a run
func (s *SQLiteStorage) PageLinks(runID, sourceURL string) ([]LinkRecord, error) {
	rows, err := s.db.Query(`
		SELECT source_url, target_url, anchor_text, rel_attribute
		FROM links
		WHERE run_id = ? AND source_url = ?
		ORDER BY id
	`, runID, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []LinkRecord
	for rows.Next() {
		var (
			link        LinkRecord
			anchor, rel sql.NullString
		)
		if err := rows.Scan(&link.SourceURL, &link.TargetURL, &anchor, &rel); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		link.AnchorText = anchor.String
		link.RelAttribute = rel.String
		links = append(links, link)
	}
	return links, rows.Err()
}

// ErrorPageCount returns how many pages of a run were errors
func (s *SQLiteStorage) ErrorPageCount(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM error_pages WHERE run_id = ?", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count error pages: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
