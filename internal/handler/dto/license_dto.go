package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/recapstack/decide-api/internal/domain/license"
)

// VerifyLicenseRequest is the payload the app sends on every verification.
type VerifyLicenseRequest struct {
	Code     string `json:"code" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

// VerifyLicenseResponse mirrors the wire contract the client session relies
// on: success with a type, or failure with a message and an optional
// "expired" status that tells the client to purge its cached code.
type VerifyLicenseResponse struct {
	Success        bool   `json:"success"`
	Type           string `json:"type,omitempty"`
	HoursRemaining *int   `json:"hoursRemaining,omitempty"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
}

type IssueTrialRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

type IssueTrialResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
}

type CreateLicenseRequest struct {
	Type string `json:"type" binding:"required,oneof=full dev"`
	// Code is optional; a grouped code is generated when omitted.
	Code  string  `json:"code"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type LicenseResponse struct {
	ID          uuid.UUID           `json:"id"`
	Code        string              `json:"code"`
	Type        license.LicenseType `json:"type"`
	DeviceID    *string             `json:"device_id,omitempty"`
	Email       *string             `json:"email,omitempty"`
	ActivatedAt *time.Time          `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func NewLicenseResponse(lic *license.License) *LicenseResponse {
	resp := &LicenseResponse{
		ID:        lic.ID,
		Code:      lic.Code,
		Type:      lic.Type,
		CreatedAt: lic.CreatedAt,
		UpdatedAt: lic.UpdatedAt,
	}
	if lic.DeviceID.Valid {
		resp.DeviceID = &lic.DeviceID.String
	}
	if lic.Email.Valid {
		resp.Email = &lic.Email.String
	}
	if lic.ActivatedAt.Valid {
		resp.ActivatedAt = &lic.ActivatedAt.Time
	}
	if lic.ExpiresAt.Valid {
		resp.ExpiresAt = &lic.ExpiresAt.Time
	}
	return resp
}

type ListLicensesRequest struct {
	Type      *string `form:"type" binding:"omitempty,oneof=trial full dev"`
	Email     *string `form:"email" binding:"omitempty,email"`
	Limit     int     `form:"limit,default=20" binding:"omitempty,gte=0"`
	Offset    int     `form:"offset,default=0" binding:"omitempty,gte=0"`
	SortBy    string  `form:"sort_by,default=created_at"`
	SortOrder string  `form:"sort_order,default=DESC" binding:"omitempty,oneof=ASC DESC"`
}

type PaginatedLicenseResponse struct {
	Licenses   []*LicenseResponse `json:"licenses"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}
