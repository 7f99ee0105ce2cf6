// Package manifest records generation runs and their outputs in SQLite.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"csvgen/pkg/config"
	"csvgen/pkg/models"

	_ "modernc.org/sqlite"
)

// Store manages run metadata in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new manifest store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}
	// Pragmas are per connection.
	database.SetMaxOpenConns(1)

	ctx := context.Background()

	// Enable foreign keys
	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable foreign keys: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	store := &Store{db: database}
	if err := store.Initialize(); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(context.Background(), Schema)
	if err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewRun starts a run record for cfg with a fresh ID.
func NewRun(cfg config.Config) *models.Run {
	opts := cfg.Options()
	return &models.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Config: models.RunConfig{
			Files:       opts.Files,
			Buckets:     opts.Buckets,
			Destination: opts.Destination,
			Delimiter:   opts.Delimiter,
			Compress:    opts.Compress,
			Seed:        opts.Seed,
		},
	}
}

// Finish stamps the run with its outcome. A nil result is treated as empty.
func Finish(run *models.Run, result *models.Result, runErr error) {
	run.FinishedAt = time.Now().UTC()
	if result != nil {
		run.Result = *result
	}
	run.FileCount = len(run.Result.Files)
	run.TotalRows = run.Result.TotalRows()

	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
		return
	}
	run.Status = models.RunCompleted
	run.Error = ""
}

// ValidateRunID checks that id is a UUID.
func ValidateRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidRunID
	}
	return nil
}

// SaveRun stores a finished run together with its files and artifacts.
func (s *Store) SaveRun(run *models.Run) error {
	if err := ValidateRunID(run.ID); err != nil {
		return err
	}

	buckets, err := json.Marshal(nonNil(run.Result.Buckets))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, status, error, num_files, num_buckets, destination, delimiter, compress, seed, buckets)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.FinishedAt, string(run.Status), run.Error,
		run.Config.Files, run.Config.Buckets, run.Config.Destination, run.Config.Delimiter,
		run.Config.Compress, run.Config.Seed, string(buckets),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrRunExists
		}
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	for _, file := range run.Result.Files {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO files (run_id, path, bucket, row_count, compressed) VALUES (?, ?, ?, ?, ?)`,
			run.ID, file.Path, file.Bucket, file.Rows, file.Compressed,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
	}

	for _, artifact := range run.Result.Artifacts {
		entries, err := json.Marshal(nonNil(artifact.Entries))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, path, source, kind, entries) VALUES (?, ?, ?, ?, ?)`,
			run.ID, artifact.Path, artifact.Source, string(artifact.Kind), string(entries),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

const runColumns = `r.id, r.started_at, r.finished_at, r.status, r.error, r.num_files, r.num_buckets,
	r.destination, r.delimiter, r.compress, r.seed, r.buckets,
	(SELECT COUNT(*) FROM files f WHERE f.run_id = r.id),
	(SELECT COALESCE(SUM(f.row_count), 0) FROM files f WHERE f.run_id = r.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var (
		status  string
		buckets string
	)
	err := row.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &status, &run.Error,
		&run.Config.Files, &run.Config.Buckets, &run.Config.Destination, &run.Config.Delimiter,
		&run.Config.Compress, &run.Config.Seed, &buckets,
		&run.FileCount, &run.TotalRows,
	)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	if err := json.Unmarshal([]byte(buckets), &run.Result.Buckets); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun retrieves a run with its files and artifacts.
func (s *Store) GetRun(id string) (*models.Run, error) {
	if err := ValidateRunID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	if run.Result.Files, err = s.listFiles(ctx, id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if run.Result.Artifacts, err = s.listArtifacts(ctx, id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return run, nil
}

func (s *Store) listFiles(ctx context.Context, runID string) ([]models.GeneratedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, bucket, row_count, compressed FROM files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []models.GeneratedFile
	for rows.Next() {
		var file models.GeneratedFile
		if err := rows.Scan(&file.Path, &file.Bucket, &file.Rows, &file.Compressed); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *Store) listArtifacts(ctx context.Context, runID string) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, source, kind, entries FROM artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var artifacts []models.Artifact
	for rows.Next() {
		var (
			artifact models.Artifact
			kind     string
			entries  string
		)
		if err := rows.Scan(&artifact.Path, &artifact.Source, &kind, &entries); err != nil {
			return nil, err
		}
		artifact.Kind = models.ArtifactKind(kind)
		if err := json.Unmarshal([]byte(entries), &artifact.Entries); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// ListRuns lists the most recent runs first, without their file lists.
func (s *Store) ListRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	runs := []models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return runs, nil
}

// DeleteRun removes a run and, through cascading keys, its files and artifacts.
func (s *Store) DeleteRun(id string) error {
	if err := ValidateRunID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(context.Background(), `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
