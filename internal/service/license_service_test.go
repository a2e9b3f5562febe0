package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/service"
)

func TestCreateLicense_GeneratesCodeWhenOmitted(t *testing.T) {
	id := uuid.New()
	created := &license.License{ID: id, Type: license.TypeFull}

	repo := new(LicenseRepoMock)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(rec *license.License) bool {
		created.Code = rec.Code
		return rec.Type == license.TypeFull && rec.Code != "" && !rec.DeviceID.Valid
	})).Return(id, nil).Once()
	repo.On("FindByID", mock.Anything, id).Return(created, nil).Once()

	svc := service.NewLicenseService(repo, zap.NewNop())

	lic, err := svc.CreateLicense(context.Background(), &dto.CreateLicenseRequest{Type: "full"})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-Z]{4}-[0-9A-Z]{4}-[0-9A-Z]{4}$`, lic.Code)
	repo.AssertExpectations(t)
}

func TestCreateLicense_DuplicateCode(t *testing.T) {
	repo := new(LicenseRepoMock)
	repo.On("Create", mock.Anything, mock.Anything).Return(uuid.Nil, ierr.ErrCodeExists).Once()

	svc := service.NewLicenseService(repo, zap.NewNop())

	_, err := svc.CreateLicense(context.Background(), &dto.CreateLicenseRequest{Type: "dev", Code: "TAKEN-0000"})
	assert.ErrorIs(t, err, ierr.ErrCodeExists)
}

func TestRecordPurchase_InsertsUnboundFullRecord(t *testing.T) {
	repo := new(LicenseRepoMock)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(rec *license.License) bool {
		return rec.Code == "GUM-SALE-1" &&
			rec.Type == license.TypeFull &&
			!rec.DeviceID.Valid && !rec.ExpiresAt.Valid &&
			rec.Email.Valid && rec.Email.String == "buyer@example.com"
	})).Return(uuid.New(), nil).Once()

	svc := service.NewLicenseService(repo, zap.NewNop())

	require.NoError(t, svc.RecordPurchase(context.Background(), "GUM-SALE-1", "buyer@example.com"))
	repo.AssertExpectations(t)
}

func TestRecordPurchase_DuplicateDeliveryIsIdempotent(t *testing.T) {
	repo := new(LicenseRepoMock)
	repo.On("Create", mock.Anything, mock.Anything).Return(uuid.Nil, ierr.ErrCodeExists).Once()

	svc := service.NewLicenseService(repo, zap.NewNop())

	assert.NoError(t, svc.RecordPurchase(context.Background(), "GUM-SALE-1", ""))
	repo.AssertExpectations(t)
}

func TestRecordPurchase_EmptyCode(t *testing.T) {
	repo := new(LicenseRepoMock)
	svc := service.NewLicenseService(repo, zap.NewNop())

	assert.ErrorIs(t, svc.RecordPurchase(context.Background(), "  ", ""), ierr.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
