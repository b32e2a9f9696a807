package store

// schemaSQL is the DDL for the run ledger.
const schemaSQL = `
-- One row per extraction batch
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    input_dir TEXT NOT NULL,
    table_path TEXT NOT NULL,
    provider TEXT,
    model TEXT,
    processed INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    started_at DATETIME NOT NULL,
    finished_at DATETIME
);

-- Per-document result of a run
CREATE TABLE IF NOT EXISTS outcomes (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    file_name TEXT NOT NULL,
    status TEXT NOT NULL,
    reason TEXT,
    title TEXT,
    word_count_trimmed INTEGER DEFAULT 0,
    word_count_processed INTEGER DEFAULT 0,
    mentions INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_file ON outcomes(file_name);
`
