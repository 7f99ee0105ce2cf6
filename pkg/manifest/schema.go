package manifest

// Schema contains the SQL statements to create the manifest database schema.
const Schema = `
-- Runs table: one row per generation
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME NOT NULL,
    status       TEXT NOT NULL,
    error        TEXT NOT NULL DEFAULT '',
    num_files    INTEGER NOT NULL,
    num_buckets  INTEGER NOT NULL,
    destination  TEXT NOT NULL,
    delimiter    TEXT NOT NULL,
    compress     BOOLEAN NOT NULL,
    seed         INTEGER NOT NULL,
    buckets      TEXT NOT NULL DEFAULT '[]'
);

-- Files table: every generated CSV file
CREATE TABLE IF NOT EXISTS files (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    path        TEXT NOT NULL,
    bucket      TEXT NOT NULL,
    row_count   INTEGER NOT NULL,
    compressed  BOOLEAN NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Artifacts table: every zip archive
CREATE TABLE IF NOT EXISTS artifacts (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id   TEXT NOT NULL,
    path     TEXT NOT NULL,
    source   TEXT NOT NULL,
    kind     TEXT NOT NULL,
    entries  TEXT NOT NULL DEFAULT '[]',
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);
`

// defaultListLimit caps ListRuns when no limit is given.
const defaultListLimit = 100
