package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/paperselect/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Records of a library are not stored;
// the library row points at the uploaded file, which is reloaded on demand.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS libraries (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		columns TEXT,
		paper_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_libraries_created_at ON libraries(created_at);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		library_id TEXT NOT NULL,
		reference_text TEXT NOT NULL,
		threshold_method TEXT NOT NULL,
		threshold REAL NOT NULL,
		statistics TEXT,
		scores TEXT NOT NULL,
		selection TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (library_id) REFERENCES libraries(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_library_id ON runs(library_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateLibrary inserts a library, assigning an ID and creation time when unset.
func (s *SQLiteStorage) CreateLibrary(ctx context.Context, lib *models.Library) error {
	if lib.ID == "" {
		lib.ID = uuid.NewString()
	}
	if lib.CreatedAt.IsZero() {
		lib.CreatedAt = time.Now().UTC()
	}
	lib.PaperCount = max(lib.PaperCount, lib.Len())
	columnsJSON, err := json.Marshal(lib.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO libraries (id, filename, path, columns, paper_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		lib.ID, lib.Filename, lib.Path, string(columnsJSON), lib.PaperCount, lib.CreatedAt,
	)
	return err
}

// GetLibrary returns library metadata by ID. Records are not loaded.
func (s *SQLiteStorage) GetLibrary(ctx context.Context, id string) (*models.Library, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, path, columns, paper_count, created_at
		 FROM libraries WHERE id = ?`, id)
	lib, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return lib, err
}

// ListLibraries returns libraries newest first.
func (s *SQLiteStorage) ListLibraries(ctx context.Context, offset, limit int) ([]*models.Library, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, path, columns, paper_count, created_at
		 FROM libraries ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []*models.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// DeleteLibrary removes a library and its runs.
func (s *SQLiteStorage) DeleteLibrary(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM libraries WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("library %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLibrary(sc scanner) (*models.Library, error) {
	var (
		lib         models.Library
		columnsJSON sql.NullString
	)
	if err := sc.Scan(&lib.ID, &lib.Filename, &lib.Path, &columnsJSON, &lib.PaperCount, &lib.CreatedAt); err != nil {
		return nil, err
	}
	if columnsJSON.Valid && columnsJSON.String != "" {
		if err := json.Unmarshal([]byte(columnsJSON.String), &lib.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}
	return &lib, nil
}

// CreateRun inserts a run, assigning an ID and creation time when unset.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	statsJSON, err := json.Marshal(run.Statistics)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	scoresJSON, err := json.Marshal(run.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	selectionJSON, err := json.Marshal(run.Selection)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, library_id, reference_text, threshold_method, threshold, statistics, scores, selection, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.LibraryID, run.ReferenceText, run.ThresholdMethod, run.Threshold,
		string(statsJSON), string(scoresJSON), string(selectionJSON), run.CreatedAt,
	)
	return err
}

const runColumns = `id, library_id, reference_text, threshold_method, threshold, statistics, scores, selection, created_at`

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns the runs of a library, oldest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, libraryID string) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE library_id = ? ORDER BY created_at, id`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(sc scanner) (*models.Run, error) {
	var (
		run                               models.Run
		statsJSON, scoresJSON, selectJSON string
	)
	if err := sc.Scan(&run.ID, &run.LibraryID, &run.ReferenceText, &run.ThresholdMethod, &run.Threshold,
		&statsJSON, &scoresJSON, &selectJSON, &run.CreatedAt); err != nil {
		return nil, err
	}
	if statsJSON != "" && statsJSON != "null" {
		if err := json.Unmarshal([]byte(statsJSON), &run.Statistics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(scoresJSON), &run.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	if err := json.Unmarshal([]byte(selectJSON), &run.Selection); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection: %w", err)
	}
	return &run, nil
}

// CountLibraries returns the number of libraries.
func (s *SQLiteStorage) CountLibraries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM libraries").Scan(&n)
	return n, err
}

// CountRuns returns the number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
