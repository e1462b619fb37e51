// Package store persists the history of batch runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// defaultListLimit applies when RunFilter.Limit is zero.
const defaultListLimit = 50

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter selects runs for ListRuns.
type RunFilter struct {
	Status model.RunStatus
	// Since keeps runs created at or after this time.
	Since time.Time
	Limit int
}

// Store records batch runs.
type Store interface {
	// CreateRun records a run in the running state.
	CreateRun(ctx context.Context, inputPath string) (*model.Run, error)
	// CompleteRun stores the outcome and marks the run complete.
	CompleteRun(ctx context.Context, runID string, outcome model.BatchOutcome) error
	// FailRun stores the outcome and marks the run failed.
	FailRun(ctx context.Context, runID string, outcome model.BatchOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver and applies migrations.
// DriverNone returns a store that records nothing.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		s, err = NewSQLite(databaseURL)
	case DriverPostgres:
		s, err = NewPostgres(ctx, databaseURL)
	case DriverNone:
		return Nop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Nop is a Store that keeps nothing.
type Nop struct{}

func (Nop) CreateRun(_ context.Context, inputPath string) (*model.Run, error) {
	now := time.Now().UTC()
	return &model.Run{InputPath: inputPath, Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}
func (Nop) CompleteRun(context.Context, string, model.BatchOutcome) error { return nil }
func (Nop) FailRun(context.Context, string, model.BatchOutcome) error     { return nil }
func (Nop) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "store: %s", runID)
}
func (Nop) ListRuns(context.Context, RunFilter) ([]model.Run, error) { return nil, nil }
func (Nop) Migrate(context.Context) error                          { return nil }
func (Nop) Close() error                                           { return nil }
