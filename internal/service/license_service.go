package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/util"
	"go.uber.org/zap"
)

type LicenseService struct {
	repo   license.Repository
	logger *zap.Logger
}

func NewLicenseService(repo license.Repository, logger *zap.Logger) *LicenseService {
	return &LicenseService{
		repo:   repo,
		logger: logger.Named("LicenseService"),
	}
}

// CreateLicense issues a full or dev code manually (VIP codes, press codes,
// developer access). The record is created unbound; the first device to
// verify it claims it.
func (s *LicenseService) CreateLicense(ctx context.Context, req *dto.CreateLicenseRequest) (*license.License, error) {
	s.logger.Info("Creating license manually", zap.String("type", req.Type))

	code := strings.TrimSpace(req.Code)
	if code == "" {
		generated, err := util.GenerateLicenseCode()
		if err != nil {
			s.logger.Error("Failed to generate license code", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
		}
		code = generated
	}

	newLicense := &license.License{
		Code: code,
		Type: license.LicenseType(req.Type),
	}
	if req.Email != nil {
		newLicense.Email = sql.NullString{String: *req.Email, Valid: true}
	}

	insertedID, err := s.repo.Create(ctx, newLicense)
	if err != nil {
		if errors.Is(err, ierr.ErrCodeExists) {
			return nil, ierr.ErrCodeExists
		}
		s.logger.Error("Failed to create license via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during license creation: %w", err)
	}

	createdLicense, err := s.repo.FindByID(ctx, insertedID)
	if err != nil {
		s.logger.Error("Failed to find newly created license by ID", zap.String("id", insertedID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve created license (id: %s): %w", insertedID, err)
	}

	s.logger.Info("License created", zap.String("id", createdLicense.ID.String()))
	return createdLicense, nil
}

// RecordPurchase inserts the unbound full record for a completed purchase
// reported by the store webhook. Purchases never expire. A duplicate
// delivery of the same sale is treated as already recorded, not a failure,
// so the webhook stays safe to retry.
func (s *LicenseService) RecordPurchase(ctx context.Context, code, email string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ierr.ErrInvalidInput
	}

	rec := &license.License{
		Code: code,
		Type: license.TypeFull,
	}
	if email != "" {
		rec.Email = sql.NullString{String: email, Valid: true}
	}

	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, ierr.ErrCodeExists) {
			s.logger.Info("Purchase already recorded, ignoring duplicate webhook delivery")
			return nil
		}
		s.logger.Error("Failed to record purchase", zap.Error(err))
		return fmt.Errorf("%w: %v", ierr.ErrInternalServer, err)
	}

	s.logger.Info("Purchase recorded", zap.String("license_id", id.String()))
	return nil
}

func (s *LicenseService) GetLicenseByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrNotFound
		}
		s.logger.Error("Failed to get license by ID", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("repository error getting license: %w", err)
	}
	return lic, nil
}

func (s *LicenseService) ListLicenses(ctx context.Context, req *dto.ListLicensesRequest) ([]*license.License, int64, error) {
	params := license.ListParams{
		Email:     req.Email,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Type != nil {
		t := license.LicenseType(*req.Type)
		params.Type = &t
	}

	licenses, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list licenses", zap.Error(err))
		return nil, 0, fmt.Errorf("repository error listing licenses: %w", err)
	}
	return licenses, total, nil
}

// DeleteLicense is the administrative override: removing the record releases
// its device binding entirely.
func (s *LicenseService) DeleteLicense(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			return ierr.ErrNotFound
		}
		s.logger.Error("Failed to delete license", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("repository error deleting license: %w", err)
	}
	return nil
}

func (s *LicenseService) GetDashboardSummary(ctx context.Context) (*dto.DashboardSummaryResponse, error) {
	summary, err := s.repo.GetSummary(ctx)
	if err != nil {
		s.logger.Error("Failed to get license summary", zap.Error(err))
		return nil, fmt.Errorf("repository error getting summary: %w", err)
	}

	return &dto.DashboardSummaryResponse{
		TotalLicenses: summary.Total,
		TypeCounts:    summary.TypeCounts,
		ActiveTrials:  summary.ActiveTrials,
		ExpiredTrials: summary.ExpiredTrials,
	}, nil
}
