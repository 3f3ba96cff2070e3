package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/murderboard/models"
	"github.com/wfunc/murderboard/persistence"
)

func finished(gameID string, outcome models.Outcome) models.SessionRecord {
	now := time.Now()
	return models.SessionRecord{
		GameID:     gameID,
		Outcome:    outcome,
		MurdererID: "mustard",
		StartedAt:  now.Add(-time.Minute),
		FinishedAt: now,
	}
}

func TestRecordService_Summary(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(persistence.NewMemory())

	require.NoError(t, svc.Record(ctx, finished("manor", models.OutcomeSuccess)))
	require.NoError(t, svc.Record(ctx, finished("manor", models.OutcomeFailed)))
	require.NoError(t, svc.Record(ctx, finished("nile", models.OutcomeSuccess)))
	require.NoError(t, svc.Record(ctx, finished("nile", models.OutcomeLost)))

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalSessions)
	assert.Equal(t, 2, summary.Successes)
	assert.Equal(t, 1, summary.Losses)
	assert.InDelta(t, 0.5, summary.SuccessRate, 1e-9)
}

func TestRecordService_EmptySummary(t *testing.T) {
	summary, err := NewRecordService(persistence.NewMemory()).Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.SuccessRate)
}

func TestRecordService_RejectsBackwardsSession(t *testing.T) {
	rec := finished("manor", models.OutcomeTimeout)
	rec.StartedAt, rec.FinishedAt = rec.FinishedAt, rec.StartedAt

	err := NewRecordService(persistence.NewMemory()).Record(context.Background(), rec)
	require.Error(t, err)
}

func TestRecordService_LastSession(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(persistence.NewMemory())

	_, err := svc.LastSession(ctx, "manor")
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)

	require.NoError(t, svc.Record(ctx, finished("manor", models.OutcomeFailed)))
	require.NoError(t, svc.Record(ctx, finished("manor", models.OutcomeSuccess)))

	last, err := svc.LastSession(ctx, "manor")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, last.Outcome)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
