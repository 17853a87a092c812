package repository

import (
	"testing"
	"time"

	"IFCompiler/internal/models"
	customErrors "IFCompiler/internal/models/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *OutcomeRepository {
	t.Helper()
	db, err := OpenDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := StartOutcomeRepository(db)
	require.NoError(t, err)
	return repo
}

func TestRecordAndGet(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	settled := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(models.Outcome{
		JobID:     "job-1",
		Reason:    models.ReasonTimeout,
		ExitCode:  -1,
		Duration:  10 * time.Second,
		SettledAt: settled,
	}))

	got, err := repo.GetByJobID("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonTimeout, got.Reason)
	assert.Equal(t, -1, got.ExitCode)
	assert.Equal(t, 10*time.Second, got.Duration)
	assert.True(t, settled.Equal(got.SettledAt))
}

func TestRecord_DuplicateJob(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	o := models.Outcome{JobID: "dup", Reason: models.ReasonNatural, SettledAt: time.Now()}
	require.NoError(t, repo.Record(o))
	assert.Error(t, repo.Record(o))
}

func TestGetByJobID_NotFound(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	_, err := repo.GetByJobID("missing")
	assert.ErrorIs(t, err, customErrors.ErrNotFound)
}

func TestStats(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	for i, reason := range []models.TerminationReason{
		models.ReasonNatural, models.ReasonNatural, models.ReasonTimeout, models.ReasonSpawnError,
	} {
		require.NoError(t, repo.Record(models.Outcome{
			JobID:     string(rune('a' + i)),
			Reason:    reason,
			SettledAt: time.Now(),
		}))
	}

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByReason[models.ReasonNatural])
	assert.Equal(t, 1, stats.ByReason[models.ReasonTimeout])
	assert.Equal(t, 0, stats.ByReason[models.ReasonUserTerminated])
}
