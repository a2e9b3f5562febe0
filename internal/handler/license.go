package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/ierr"
	"github.com/recapstack/decide-api/internal/service"
	"go.uber.org/zap"
)

type LicenseHandler struct {
	verifyService  *service.VerifyService
	trialService   *service.TrialService
	licenseService *service.LicenseService
	logger         *zap.Logger
}

func NewLicenseHandler(verifyService *service.VerifyService, trialService *service.TrialService, licenseService *service.LicenseService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{
		verifyService:  verifyService,
		trialService:   trialService,
		licenseService: licenseService,
		logger:         logger.Named("LicenseHandler"),
	}
}

// Verify is the public verification endpoint the app hits on launch and on
// activation. Terminal rejections surface verbatim; an expired trial is a
// 200 with success=false and status=expired so the client knows to drop its
// cached code.
func (h *LicenseHandler) Verify(c *gin.Context) {
	var req dto.VerifyLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind verify request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: ierr.ErrInvalidInput.Error()})
		return
	}

	decision, err := h.verifyService.Verify(c.Request.Context(), req.Code, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, ierr.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: err.Error()})
		case errors.Is(err, ierr.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: err.Error()})
		case errors.Is(err, ierr.ErrDeviceMismatch):
			c.JSON(http.StatusForbidden, dto.APIErrorResponse{Message: err.Error()})
		default:
			h.logger.Error("Verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.APIErrorResponse{Message: "Server error"})
		}
		return
	}

	if decision.Access == license.AccessExpired {
		c.JSON(http.StatusOK, dto.APIErrorResponse{
			Status:  "expired",
			Message: "Trial has ended.",
		})
		return
	}

	resp := dto.VerifyLicenseResponse{
		Success: true,
		Type:    string(decision.Access),
	}
	if decision.Access == license.AccessTrial {
		hours := decision.HoursRemaining
		resp.HoursRemaining = &hours
	}
	c.JSON(http.StatusOK, resp)
}

// IssueTrial hands out the one-per-device trial code.
func (h *LicenseHandler) IssueTrial(c *gin.Context) {
	var req dto.IssueTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind trial request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: "Device ID required"})
		return
	}

	code, err := h.trialService.Issue(c.Request.Context(), req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, ierr.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, dto.APIErrorResponse{Message: "Device ID required"})
		case errors.Is(err, ierr.ErrTrialAlreadyUsed):
			c.JSON(http.StatusForbidden, dto.APIErrorResponse{Message: err.Error()})
		default:
			h.logger.Error("Trial issuance failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.APIErrorResponse{Message: "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.IssueTrialResponse{Success: true, Code: code})
}

func (h *LicenseHandler) Create(c *gin.Context) {
	h.logger.Debug("Received request to create license")
	var req dto.CreateLicenseRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind or validate request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	createdLicense, err := h.licenseService.CreateLicense(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ierr.ErrCodeExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Service failed to create license", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create license"})
		return
	}

	c.JSON(http.StatusCreated, dto.NewLicenseResponse(createdLicense))
}

func (h *LicenseHandler) List(c *gin.Context) {
	var req dto.ListLicensesRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Failed to bind or validate query parameters", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	licenses, totalCount, err := h.licenseService.ListLicenses(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to list licenses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve licenses"})
		return
	}

	licenseResponses := make([]*dto.LicenseResponse, len(licenses))
	for i, lic := range licenses {
		licenseResponses[i] = dto.NewLicenseResponse(lic)
	}

	c.JSON(http.StatusOK, dto.PaginatedLicenseResponse{
		Licenses:   licenseResponses,
		TotalCount: totalCount,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

func (h *LicenseHandler) GetByID(c *gin.Context) {
	idStr := c.Param("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format received", zap.String("id_param", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license ID format"})
		return
	}

	lic, err := h.licenseService.GetLicenseByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
			return
		}
		h.logger.Error("Service failed to get license by ID", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve license"})
		return
	}

	c.JSON(http.StatusOK, dto.NewLicenseResponse(lic))
}

// Delete removes a record outright, releasing its device binding. This is
// the administrative override for support cases (new phone, refund).
func (h *LicenseHandler) Delete(c *gin.Context) {
	idStr := c.Param("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for delete", zap.String("id_param", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid license ID format"})
		return
	}

	if err := h.licenseService.DeleteLicense(c.Request.Context(), id); err != nil {
		if errors.Is(err, ierr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
			return
		}
		h.logger.Error("Service failed to delete license", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete license"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "License deleted successfully"})
}
