package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/recapstack/decide-api/internal/handler/dto"
	"github.com/recapstack/decide-api/internal/ierr"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware is the backstop for errors pushed through
// c.Error(). Handlers that own a specific wire contract (the verify
// endpoint) respond directly and never reach this path.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.Error(err))

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.APIErrorResponse{
				Message: "Input validation failed.",
				Details: fieldErrors(ve),
			})
			return
		}

		status, message := classify(err)
		c.AbortWithStatusJSON(status, dto.APIErrorResponse{Message: message})
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ierr.ErrValidation), errors.Is(err, ierr.ErrInvalidInput), errors.Is(err, ierr.ErrInvalidCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ierr.ErrUnauthorized), errors.Is(err, ierr.ErrInvalidCredentials), errors.Is(err, ierr.ErrInvalidToken):
		return http.StatusUnauthorized, "Authentication required or failed."
	case errors.Is(err, ierr.ErrForbidden), errors.Is(err, ierr.ErrDeviceMismatch), errors.Is(err, ierr.ErrTrialAlreadyUsed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, ierr.ErrNotFound), errors.Is(err, ierr.ErrUserNotFound):
		return http.StatusNotFound, "The requested resource was not found."
	case errors.Is(err, ierr.ErrConflict), errors.Is(err, ierr.ErrCodeExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ierr.ErrInternalServer):
		return http.StatusInternalServerError, "An unexpected error occurred."
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func fieldErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		}
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
