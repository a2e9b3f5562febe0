package license

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListParams struct {
	Type      *LicenseType
	Email     *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type Summary struct {
	Total         int64
	TypeCounts    map[LicenseType]int64
	ActiveTrials  int64
	ExpiredTrials int64
}

type Repository interface {
	Create(ctx context.Context, license *License) (uuid.UUID, error)
	FindByID(ctx context.Context, id uuid.UUID) (*License, error)
	FindByCode(ctx context.Context, code string) (*License, error)
	// FindTrialByDevice returns the trial record claimed by the device, if any.
	FindTrialByDevice(ctx context.Context, deviceID string) (*License, error)
	// ClaimDevice binds the device to the record only if it is still unclaimed.
	// Returns false when another device already won the claim.
	ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, activatedAt time.Time) (bool, error)
	// SetTrialExpiry stamps expires_at only if it is still NULL. Returns false
	// when the expiry was already stamped by a concurrent activation.
	SetTrialExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error)
	List(ctx context.Context, params ListParams) ([]*License, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpiredTrialsBefore removes trial records whose expiry passed
	// before the cutoff. Used by the retention sweep.
	DeleteExpiredTrialsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	GetSummary(ctx context.Context) (*Summary, error)
}
