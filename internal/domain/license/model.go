package license

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type LicenseType string

const (
	TypeTrial LicenseType = "trial"
	TypeFull  LicenseType = "full"
	TypeDev   LicenseType = "dev"
)

// TrialDuration is the window granted to a trial code, counted from its
// first activation.
const TrialDuration = 48 * time.Hour

// License is the durable record behind an activation code. DeviceID stays
// NULL until the first device claims the code; for trial codes ExpiresAt is
// stamped exactly once at first activation. A full license never expires.
type License struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Code        string         `db:"code" json:"code"`
	Type        LicenseType    `db:"type" json:"type"`
	DeviceID    sql.NullString `db:"device_id" json:"device_id,omitempty"`
	Email       sql.NullString `db:"email" json:"email,omitempty"`
	ActivatedAt sql.NullTime   `db:"activated_at" json:"activated_at,omitempty"`
	ExpiresAt   sql.NullTime   `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Bound reports whether the code has been claimed by any device.
func (l *License) Bound() bool {
	return l.DeviceID.Valid
}

// BoundTo reports whether the code is claimed by the given device.
func (l *License) BoundTo(deviceID string) bool {
	return l.DeviceID.Valid && l.DeviceID.String == deviceID
}

type Access string

const (
	AccessLocked  Access = "locked"
	AccessTrial   Access = "trial"
	AccessFull    Access = "full"
	AccessDev     Access = "dev"
	AccessExpired Access = "expired"
)

// Decision is the access outcome of a single verification call. It is
// re-derived on every call and never persisted; clients cache only the
// activation code itself.
type Decision struct {
	Access         Access
	HoursRemaining int
}

func (d Decision) Granted() bool {
	switch d.Access {
	case AccessTrial, AccessFull, AccessDev:
		return true
	}
	return false
}
