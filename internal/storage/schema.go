package storage

const schemaSQL = `
-- One row per crawl run; status moves running -> completed | cancelled
CREATE TABLE IF NOT EXISTS crawl_runs (
    run_id TEXT PRIMARY KEY NOT NULL,
    seed_url TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'cancelled')),
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    url_count INTEGER NOT NULL DEFAULT 0
);

-- Every page the engine fetched and dispatched, including error pages
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES crawl_runs(run_id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    final_url TEXT,
    status_code INTEGER NOT NULL,
    title TEXT,
    meta_robots TEXT,
    canonical_url TEXT,
    content_hash TEXT,
    content_type TEXT,
    response_size_bytes INTEGER,
    download_time_ms INTEGER,
    fetch_error TEXT,
    crawled_at DATETIME NOT NULL,
    UNIQUE(run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id, id);
CREATE INDEX IF NOT EXISTS idx_pages_status_code ON pages(status_code);

-- Outgoing links of each fetched page, as URL keys
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES crawl_runs(run_id) ON DELETE CASCADE,
    source_url TEXT NOT NULL,
    target_url TEXT NOT NULL,
    anchor_text TEXT,
    rel_attribute TEXT,
    UNIQUE(run_id, source_url, target_url)
);

CREATE INDEX IF NOT EXISTS idx_links_target ON links(run_id, target_url);

-- Final result set of a run, in fetch order
CREATE TABLE IF NOT EXISTS run_urls (
    run_id TEXT NOT NULL REFERENCES crawl_runs(run_id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);

-- Error pages (4xx, 5xx and fetch failures) per run
CREATE VIEW IF NOT EXISTS error_pages AS
SELECT run_id, url, status_code, fetch_error, crawled_at
FROM pages
WHERE status_code < 0 OR status_code >= 400;
`
