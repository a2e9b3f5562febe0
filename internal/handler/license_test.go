package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/handler"
	"github.com/recapstack/decide-api/internal/service"
)

// fakeRepo backs the handler tests with canned per-method behavior. Only the
// methods the public endpoints reach are configurable.
type fakeRepo struct {
	findByCode        func(code string) (*license.License, error)
	findTrialByDevice func(deviceID string) (*license.License, error)
	create            func(rec *license.License) (uuid.UUID, error)
	claimDevice       func(id uuid.UUID, deviceID string) (bool, error)
}

func (f *fakeRepo) FindByCode(ctx context.Context, code string) (*license.License, error) {
	return f.findByCode(code)
}

func (f *fakeRepo) FindTrialByDevice(ctx context.Context, deviceID string) (*license.License, error) {
	return f.findTrialByDevice(deviceID)
}

func (f *fakeRepo) Create(ctx context.Context, rec *license.License) (uuid.UUID, error) {
	return f.create(rec)
}

func (f *fakeRepo) ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, activatedAt time.Time) (bool, error) {
	return f.claimDevice(id, deviceID)
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*license.License, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeRepo) SetTrialExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	return true, nil
}

func (f *fakeRepo) List(ctx context.Context, params license.ListParams) ([]*license.License, int64, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeRepo) DeleteExpiredTrialsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) GetSummary(ctx context.Context) (*license.Summary, error) { return nil, nil }

type noAuthority struct{}

func (noAuthority) Configured() bool { return false }

func (noAuthority) CheckPurchase(ctx context.Context, _ string) bool { return false }

func newTestRouter(repo *fakeRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	verifySvc := service.NewVerifyService(noAuthority{}, repo, logger)
	trialSvc := service.NewTrialService(repo, logger)
	h := handler.NewLicenseHandler(verifySvc, trialSvc, nil, logger)

	r := gin.New()
	r.POST("/api/v1/licenses/verify", h.Verify)
	r.POST("/api/v1/licenses/trial", h.IssueTrial)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestVerifyEndpoint_FullLicense(t *testing.T) {
	rec := &license.License{
		ID:       uuid.New(),
		Code:     "ABCD-1234",
		Type:     license.TypeFull,
		DeviceID: sql.NullString{String: "dev-1", Valid: true},
	}
	repo := &fakeRepo{findByCode: func(string) (*license.License, error) { return rec, nil }}

	w, body := postJSON(t, newTestRouter(repo), "/api/v1/licenses/verify",
		map[string]string{"code": "ABCD-1234", "deviceId": "dev-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "full", body["type"])
	_, hasHours := body["hoursRemaining"]
	assert.False(t, hasHours, "hoursRemaining is a trial-only field")
}

func TestVerifyEndpoint_TrialReportsHours(t *testing.T) {
	rec := &license.License{
		ID:        uuid.New(),
		Code:      "TRIAL-AAAA1111",
		Type:      license.TypeTrial,
		DeviceID:  sql.NullString{String: "dev-1", Valid: true},
		ExpiresAt: sql.NullTime{Time: time.Now().UTC().Add(5 * time.Hour), Valid: true},
	}
	repo := &fakeRepo{findByCode: func(string) (*license.License, error) { return rec, nil }}

	w, body := postJSON(t, newTestRouter(repo), "/api/v1/licenses/verify",
		map[string]string{"code": "TRIAL-AAAA1111", "deviceId": "dev-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trial", body["type"])
	assert.Equal(t, float64(5), body["hoursRemaining"])
}

func TestVerifyEndpoint_ExpiredTrialIsOKWithExpiredStatus(t *testing.T) {
	rec := &license.License{
		ID:        uuid.New(),
		Code:      "TRIAL-AAAA1111",
		Type:      license.TypeTrial,
		DeviceID:  sql.NullString{String: "dev-1", Valid: true},
		ExpiresAt: sql.NullTime{Time: time.Now().UTC().Add(-time.Hour), Valid: true},
	}
	repo := &fakeRepo{findByCode: func(string) (*license.License, error) { return rec, nil }}

	w, body := postJSON(t, newTestRouter(repo), "/api/v1/licenses/verify",
		map[string]string{"code": "TRIAL-AAAA1111", "deviceId": "dev-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "expired", body["status"])
}

func TestVerifyEndpoint_ErrorStatusCodes(t *testing.T) {
	bound := &license.License{
		ID:       uuid.New(),
		Code:     "ABCD-1234",
		Type:     license.TypeFull,
		DeviceID: sql.NullString{String: "dev-1", Valid: true},
	}

	tests := []struct {
		name     string
		repo     *fakeRepo
		request  map[string]string
		wantCode int
	}{
		{
			"missing fields",
			&fakeRepo{},
			map[string]string{"code": "ABCD-1234"},
			http.StatusBadRequest,
		},
		{
			"unknown code",
			&fakeRepo{findByCode: func(string) (*license.License, error) { return nil, pgx.ErrNoRows }},
			map[string]string{"code": "NOPE-0000", "deviceId": "dev-1"},
			http.StatusBadRequest,
		},
		{
			"device mismatch",
			&fakeRepo{findByCode: func(string) (*license.License, error) { return bound, nil }},
			map[string]string{"code": "ABCD-1234", "deviceId": "dev-2"},
			http.StatusForbidden,
		},
		{
			"storage fault",
			&fakeRepo{findByCode: func(string) (*license.License, error) { return nil, assert.AnError }},
			map[string]string{"code": "ABCD-1234", "deviceId": "dev-1"},
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := postJSON(t, newTestRouter(tt.repo), "/api/v1/licenses/verify", tt.request)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestTrialEndpoint_IssuesCode(t *testing.T) {
	repo := &fakeRepo{
		findTrialByDevice: func(string) (*license.License, error) { return nil, pgx.ErrNoRows },
		create:            func(rec *license.License) (uuid.UUID, error) { return uuid.New(), nil },
	}

	w, body := postJSON(t, newTestRouter(repo), "/api/v1/licenses/trial",
		map[string]string{"deviceId": "dev-1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, `^TRIAL-[0-9A-Z]{8}$`, body["code"])
}

func TestTrialEndpoint_SecondRequestForbidden(t *testing.T) {
	existing := &license.License{ID: uuid.New(), Code: "TRIAL-AAAA1111", Type: license.TypeTrial}
	repo := &fakeRepo{
		findTrialByDevice: func(string) (*license.License, error) { return existing, nil },
	}

	w, body := postJSON(t, newTestRouter(repo), "/api/v1/licenses/trial",
		map[string]string{"deviceId": "dev-1"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, body["success"])
}
