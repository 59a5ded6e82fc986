package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	requestdomain "github.com/goalline/clubpay/internal/paymentrequest/domain"
	reminderdomain "github.com/goalline/clubpay/internal/reminder/domain"
	teamdomain "github.com/goalline/clubpay/internal/teamaccount/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, requestdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, memberdomain.ErrAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "already_paid",
			Message: "member has already paid",
		}
	case errors.Is(err, requestdomain.ErrFinalized):
		return http.StatusConflict, errorPayload{
			Type:    "finalized",
			Message: "payment request is no longer active",
		}
	case errors.Is(err, reminderdomain.ErrDispatchInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "dispatch_in_progress",
			Message: "a reminder dispatch is already running for this request",
		}
	case errors.Is(err, teamdomain.ErrNotConfigured):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "gateway_account_not_configured",
			Message: "team has no active gateway account",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, requestdomain.ErrInvalidTeam),
		errors.Is(err, requestdomain.ErrInvalidTitle),
		errors.Is(err, requestdomain.ErrInvalidAmount),
		errors.Is(err, requestdomain.ErrInvalidDueDate),
		errors.Is(err, memberdomain.ErrInvalidMembers),
		errors.Is(err, memberdomain.ErrInvalidAmount),
		errors.Is(err, gatewaydomain.ErrInvalidSignature),
		errors.Is(err, gatewaydomain.ErrInvalidPayload),
		errors.Is(err, gatewaydomain.ErrInvalidEvent),
		errors.Is(err, gatewaydomain.ErrMissingMetadata):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, requestdomain.ErrNotFound),
		errors.Is(err, memberdomain.ErrMemberNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
