package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/metrics"
	"github.com/recapstack/decide-api/internal/util"
	"go.uber.org/zap"
)

type TrialService struct {
	repo   license.Repository
	logger *zap.Logger
}

func NewTrialService(repo license.Repository, logger *zap.Logger) *TrialService {
	return &TrialService{
		repo:   repo,
		logger: logger.Named("TrialService"),
	}
}

// Issue creates a trial code for the device. Unlike verify-time first
// activation, issuance binds the device and stamps the expiry up front: the
// 48 hours start counting immediately, not on first verification. One trial
// per device, ever.
func (s *TrialService) Issue(ctx context.Context, deviceID string) (string, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", ierr.ErrInvalidInput
	}

	_, err := s.repo.FindTrialByDevice(ctx, deviceID)
	if err == nil {
		s.logger.Info("Trial already issued for device")
		return "", ierr.ErrTrialAlreadyUsed
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Error("Failed to look up existing trial", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	now := time.Now().UTC()

	// The code space makes collisions negligible, but the store still
	// enforces uniqueness; one retry covers the freak conflict.
	for attempt := 0; attempt < 2; attempt++ {
		code, err := util.GenerateTrialCode()
		if err != nil {
			s.logger.Error("Failed to generate trial code", zap.Error(err))
			return "", fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}

		rec := &license.License{
			Code:        code,
			Type:        license.TypeTrial,
			DeviceID:    sql.NullString{String: deviceID, Valid: true},
			ActivatedAt: sql.NullTime{Time: now, Valid: true},
			ExpiresAt:   sql.NullTime{Time: now.Add(license.TrialDuration), Valid: true},
		}

		id, err := s.repo.Create(ctx, rec)
		if err != nil {
			if errors.Is(err, ierr.ErrCodeExists) {
				s.logger.Warn("Trial code collision, retrying", zap.Int("attempt", attempt+1))
				continue
			}
			s.logger.Error("Failed to persist trial license", zap.Error(err))
			return "", fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}

		s.logger.Info("Trial issued",
			zap.String("license_id", id.String()),
			zap.Time("expires_at", rec.ExpiresAt.Time),
		)
		metrics.TrialsIssued.Inc()
		return code, nil
	}

	return "", fmt.Errorf("%w: trial code generation kept colliding", ierr.ErrInternalServer)
}
