package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/recapstack/decide-api/internal/domain/license"
	"go.uber.org/zap"
)

// TrialCleanupHandler removes trial records whose expiry passed long ago.
// The retention window keeps recently expired trials around so the verify
// endpoint still answers "expired" rather than "invalid key" while the user
// can still see the message.
type TrialCleanupHandler struct {
	repo      license.Repository
	retention time.Duration
	logger    *zap.Logger
}

func NewTrialCleanupHandler(repo license.Repository, retention time.Duration, logger *zap.Logger) *TrialCleanupHandler {
	return &TrialCleanupHandler{
		repo:      repo,
		retention: retention,
		logger:    logger.Named("TrialCleanupHandler"),
	}
}

func (h *TrialCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeTrialCleanup {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p TrialCleanupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal trial cleanup payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	cutoff := time.Now().UTC().Add(-h.retention)
	h.logger.Info("Running trial retention sweep", zap.Time("cutoff", cutoff))

	removed, err := h.repo.DeleteExpiredTrialsBefore(ctx, cutoff)
	if err != nil {
		h.logger.Error("Trial retention sweep failed", zap.Error(err))
		return fmt.Errorf("repository error deleting expired trials: %w", err)
	}

	h.logger.Info("Trial retention sweep finished", zap.Int64("removed", removed))
	return nil
}
