package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database file at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input_path TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	outcome    TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, inputPath string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, inputPath, string(model.RunStatusRunning), now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		InputPath: inputPath,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, outcome model.BatchOutcome) error {
	return s.finish(ctx, runID, model.RunStatusComplete, outcome)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, outcome model.BatchOutcome) error {
	return s.finish(ctx, runID, model.RunStatusFailed, outcome)
}

func (s *SQLiteStore) finish(ctx context.Context, runID string, status model.RunStatus, outcome model.BatchOutcome) error {
	outcome.RunID = runID
	data, err := json.Marshal(outcome)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcome")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, outcome = ?, updated_at = ? WHERE id = ?`,
		string(status), string(data), time.Now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, status, outcome, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input_path, status, outcome, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOf(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var (
		r                model.Run
		status           string
		outcome          sql.NullString
		created, updated string
	)
	if err := row.Scan(&r.ID, &r.InputPath, &status, &outcome, &created, &updated); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	var err error
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, eris.Wrap(err, "parse created_at")
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, eris.Wrap(err, "parse updated_at")
	}
	if outcome.Valid {
		if err := decodeOutcome([]byte(outcome.String), &r); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func decodeOutcome(data []byte, r *model.Run) error {
	var o model.BatchOutcome
	if err := json.Unmarshal(data, &o); err != nil {
		return eris.Wrap(err, "unmarshal outcome")
	}
	r.Outcome = &o
	return nil
}
