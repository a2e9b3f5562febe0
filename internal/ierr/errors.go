package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	// License verification outcomes. Terminal: the client must not retry.
	ErrInvalidInput   = errors.New("code and deviceId are required")
	ErrInvalidCode    = errors.New("invalid license key")
	ErrDeviceMismatch = errors.New("license already in use on another device")
	ErrCodeExists     = errors.New("license code already exists")

	// Trial issuance.
	ErrTrialAlreadyUsed = errors.New("trial already used on this device")

	// Admin auth.
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenInvalidClaims = errors.New("token contains invalid claims type")
)
