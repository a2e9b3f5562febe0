package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/metrics"
	"go.uber.org/zap"
)

// Verdict is the tri-state outcome of a single verification strategy.
type Verdict int

const (
	// VerdictInconclusive means the strategy cannot decide; the next one runs.
	VerdictInconclusive Verdict = iota
	VerdictGranted
	VerdictRejected
)

type StrategyResult struct {
	Verdict  Verdict
	Decision license.Decision
	// Err carries the rejection reason for VerdictRejected, or a transient
	// fault alongside VerdictInconclusive.
	Err error
}

// Strategy is one way of verifying an activation code. Strategies run in
// order and the engine short-circuits on the first conclusive result.
type Strategy interface {
	Name() string
	Check(ctx context.Context, code, deviceID string) StrategyResult
}

// PurchaseAuthority is the external purchase-verification service.
type PurchaseAuthority interface {
	Configured() bool
	CheckPurchase(ctx context.Context, code string) bool
}

type VerifyService struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewVerifyService(authority PurchaseAuthority, repo license.Repository, logger *zap.Logger) *VerifyService {
	log := logger.Named("VerifyService")
	return &VerifyService{
		strategies: []Strategy{
			&authorityStrategy{authority: authority, logger: log},
			&storeStrategy{repo: repo, logger: log},
		},
		logger: log,
	}
}

// Verify reconciles an activation code against the configured verification
// strategies and returns the access decision. InvalidCode and DeviceMismatch
// come back as terminal errors; an expired trial is a decision, not an
// error. Any storage or transport fault maps to a generic server error so an
// ambiguous failure can never grant access.
func (s *VerifyService) Verify(ctx context.Context, code, deviceID string) (license.Decision, error) {
	code = strings.TrimSpace(code)
	deviceID = strings.TrimSpace(deviceID)
	if code == "" || deviceID == "" {
		return license.Decision{Access: license.AccessLocked}, ierr.ErrInvalidInput
	}

	var fault error

	for _, strat := range s.strategies {
		result := strat.Check(ctx, code, deviceID)

		switch result.Verdict {
		case VerdictGranted:
			metrics.VerifyDecisions.WithLabelValues(string(result.Decision.Access)).Inc()
			return result.Decision, nil

		case VerdictRejected:
			switch {
			case errors.Is(result.Err, ierr.ErrInvalidCode):
				metrics.VerifyDecisions.WithLabelValues("invalid_code").Inc()
			case errors.Is(result.Err, ierr.ErrDeviceMismatch):
				metrics.VerifyDecisions.WithLabelValues("device_mismatch").Inc()
			}
			return license.Decision{Access: license.AccessLocked}, result.Err

		case VerdictInconclusive:
			if result.Err != nil {
				fault = result.Err
			}
		}
	}

	metrics.VerifyDecisions.WithLabelValues("error").Inc()
	if fault != nil {
		s.logger.Error("Verification failed on a transient fault", zap.Error(fault))
		return license.Decision{Access: license.AccessLocked}, fmt.Errorf("%w: %v", ierr.ErrInternalServer, fault)
	}

	// Every strategy passed without deciding; with no store strategy wired
	// this would mean the code is recognized by nobody.
	return license.Decision{Access: license.AccessLocked}, ierr.ErrInvalidCode
}

// authorityStrategy trusts the external purchase authority as-is. Its grants
// never touch the store and carry no device binding: the third party does
// not expose device identity, so locking cannot be enforced on this path.
type authorityStrategy struct {
	authority PurchaseAuthority
	logger    *zap.Logger
}

func (a *authorityStrategy) Name() string { return "authority" }

func (a *authorityStrategy) Check(ctx context.Context, code, deviceID string) StrategyResult {
	if a.authority == nil || !a.authority.Configured() {
		return StrategyResult{Verdict: VerdictInconclusive}
	}

	if a.authority.CheckPurchase(ctx, code) {
		a.logger.Info("Access granted via external authority")
		return StrategyResult{
			Verdict:  VerdictGranted,
			Decision: license.Decision{Access: license.AccessFull},
		}
	}

	// Unknown to the authority, or the call failed. Either way the store
	// gets the final word.
	return StrategyResult{Verdict: VerdictInconclusive}
}

// storeStrategy resolves the code against the license store, enforcing the
// device lock and trial expiry rules.
type storeStrategy struct {
	repo   license.Repository
	logger *zap.Logger
}

func (st *storeStrategy) Name() string { return "store" }

func (st *storeStrategy) Check(ctx context.Context, code, deviceID string) StrategyResult {
	now := time.Now().UTC()

	rec, err := st.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			st.logger.Info("Unknown license code presented")
			return StrategyResult{Verdict: VerdictRejected, Err: ierr.ErrInvalidCode}
		}
		return StrategyResult{Verdict: VerdictInconclusive, Err: err}
	}

	rec, result := st.enforceDeviceLock(ctx, rec, deviceID, now)
	if result != nil {
		return *result
	}

	if rec.Type == license.TypeTrial {
		return st.checkTrial(ctx, rec, now)
	}

	access := license.AccessFull
	if rec.Type == license.TypeDev {
		access = license.AccessDev
	}
	return StrategyResult{
		Verdict:  VerdictGranted,
		Decision: license.Decision{Access: access},
	}
}

// enforceDeviceLock claims an unclaimed code for the device or rejects a
// code bound elsewhere. The claim is a conditional update, so of two
// concurrent first activations exactly one wins; the loser re-reads the
// record and is treated like any later device.
func (st *storeStrategy) enforceDeviceLock(ctx context.Context, rec *license.License, deviceID string, now time.Time) (*license.License, *StrategyResult) {
	if !rec.Bound() {
		claimed, err := st.repo.ClaimDevice(ctx, rec.ID, deviceID, now)
		if err != nil {
			return rec, &StrategyResult{Verdict: VerdictInconclusive, Err: err}
		}

		if claimed {
			st.logger.Info("First activation, code bound to device",
				zap.String("license_id", rec.ID.String()),
				zap.String("type", string(rec.Type)),
			)
			metrics.DeviceClaims.Inc()
			rec.DeviceID.String = deviceID
			rec.DeviceID.Valid = true
			rec.ActivatedAt.Time = now
			rec.ActivatedAt.Valid = true
			return rec, nil
		}

		// Lost the claim race; re-read to see who won.
		fresh, err := st.repo.FindByCode(ctx, rec.Code)
		if err != nil {
			return rec, &StrategyResult{Verdict: VerdictInconclusive, Err: err}
		}
		rec = fresh
	}

	if !rec.BoundTo(deviceID) {
		st.logger.Warn("Device mismatch, code already bound elsewhere",
			zap.String("license_id", rec.ID.String()),
		)
		return rec, &StrategyResult{Verdict: VerdictRejected, Err: ierr.ErrDeviceMismatch}
	}

	return rec, nil
}

func (st *storeStrategy) checkTrial(ctx context.Context, rec *license.License, now time.Time) StrategyResult {
	if !rec.ExpiresAt.Valid {
		// First activation in progress: stamp the expiry exactly once.
		expiry := now.Add(license.TrialDuration)
		stamped, err := st.repo.SetTrialExpiry(ctx, rec.ID, expiry)
		if err != nil {
			return StrategyResult{Verdict: VerdictInconclusive, Err: err}
		}

		if stamped {
			st.logger.Info("Trial expiry stamped",
				zap.String("license_id", rec.ID.String()),
				zap.Time("expires_at", expiry),
			)
			rec.ExpiresAt.Time = expiry
			rec.ExpiresAt.Valid = true
		} else {
			// A concurrent activation stamped it first; use its value.
			fresh, err := st.repo.FindByID(ctx, rec.ID)
			if err != nil {
				return StrategyResult{Verdict: VerdictInconclusive, Err: err}
			}
			rec = fresh
		}
	}

	if now.After(rec.ExpiresAt.Time) {
		st.logger.Info("Trial expired",
			zap.String("license_id", rec.ID.String()),
			zap.Time("expires_at", rec.ExpiresAt.Time),
		)
		return StrategyResult{
			Verdict:  VerdictGranted,
			Decision: license.Decision{Access: license.AccessExpired},
		}
	}

	hoursRemaining := int(math.Ceil(rec.ExpiresAt.Time.Sub(now).Hours()))
	return StrategyResult{
		Verdict: VerdictGranted,
		Decision: license.Decision{
			Access:         license.AccessTrial,
			HoursRemaining: hoursRemaining,
		},
	}
}
