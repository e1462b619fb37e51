package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, "catalogue.xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "catalogue.xlsx", got.InputPath)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Outcome)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Millisecond)

	outcome := model.BatchOutcome{
		Success:               true,
		ProcessedCount:        10,
		ValidatedCount:        9,
		SkippedCount:          1,
		ValidationRatePercent: 90,
		OutputPath:            "catalogue_enrichi_production.xlsx",
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, outcome))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, run.ID, got.Outcome.RunID)
	assert.Equal(t, 9, got.Outcome.ValidatedCount)
	assert.Equal(t, "catalogue_enrichi_production.xlsx", got.Outcome.OutputPath)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSQLite_FailRun(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, "bad.xlsx")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, model.BatchOutcome{Error: "missing required column SKU"}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "missing required column SKU", got.Outcome.Error)
}

func TestSQLite_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.CompleteRun(ctx, "missing", model.BatchOutcome{})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	var ids []string
	for _, p := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		run, err := s.CreateRun(ctx, p)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.CompleteRun(ctx, ids[0], model.BatchOutcome{Success: true}))
	require.NoError(t, s.FailRun(ctx, ids[1], model.BatchOutcome{Error: "x"}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.xlsx", all[0].InputPath)
	assert.Equal(t, "a.xlsx", all[2].InputPath)

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[1], failed[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	recent, err := s.ListRuns(ctx, RunFilter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, recent)

	recent, err = s.ListRuns(ctx, RunFilter{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.CreateRun(ctx, "x.xlsx")
	require.NoError(t, err)

	nop, err := Open(ctx, DriverNone, "")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, nop)

	_, err = Open(ctx, "mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var s Store = Nop{}

	run, err := s.CreateRun(ctx, "x.xlsx")
	require.NoError(t, err)
	assert.Empty(t, run.ID)
	assert.NoError(t, s.CompleteRun(ctx, run.ID, model.BatchOutcome{}))
	assert.NoError(t, s.FailRun(ctx, run.ID, model.BatchOutcome{}))
	runs, err := s.ListRuns(ctx, RunFilter{})
	assert.NoError(t, err)
	assert.Empty(t, runs)
	_, err = s.GetRun(ctx, "x")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, s.Migrate(ctx))
	assert.NoError(t, s.Close())
}
