package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recapstack/decide-api/internal/domain/license"
)

type sweepRepoStub struct {
	license.Repository

	gotCutoff time.Time
	removed   int64
	err       error
}

func (s *sweepRepoStub) DeleteExpiredTrialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.gotCutoff = cutoff
	return s.removed, s.err
}

func TestTrialCleanup_SweepsWithRetentionCutoff(t *testing.T) {
	repo := &sweepRepoStub{removed: 3}
	h := NewTrialCleanupHandler(repo, 30*24*time.Hour, zap.NewNop())

	task, err := NewTrialCleanupTask()
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, repo.gotCutoff, time.Minute)
}

func TestTrialCleanup_RepositoryFaultIsRetriable(t *testing.T) {
	repo := &sweepRepoStub{err: assert.AnError}
	h := NewTrialCleanupHandler(repo, time.Hour, zap.NewNop())

	task, err := NewTrialCleanupTask()
	require.NoError(t, err)

	assert.Error(t, h.ProcessTask(context.Background(), task))
}

func TestTrialCleanup_RejectsForeignTask(t *testing.T) {
	h := NewTrialCleanupHandler(&sweepRepoStub{}, time.Hour, zap.NewNop())

	foreign := asynq.NewTask("email:send", nil)
	assert.Error(t, h.ProcessTask(context.Background(), foreign))
}
