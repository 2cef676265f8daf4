package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	calculationdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
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
	ErrNotFound       = errors.New("not_found")
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
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code := validationErrorCode(err); code != "" {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if calculationdomain.IsComputationError(err) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "computation_error",
			Message: "tax computation failed",
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
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

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, calculationdomain.ErrNoLines):
		return "no_line_items"
	case errors.Is(err, calculationdomain.ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, calculationdomain.ErrNegativeQuantity):
		return "negative_quantity"
	case errors.Is(err, calculationdomain.ErrNegativeShipping):
		return "negative_shipping"
	case errors.Is(err, calculationdomain.ErrNegativeDiscount):
		return "negative_discount"
	case errors.Is(err, payrolldomain.ErrNegativeGrossPay):
		return "negative_gross_pay"
	case errors.Is(err, payrolldomain.ErrMissingPayDate):
		return "missing_pay_date"
	default:
		return ""
	}
}

func validationErrorField(code string) string {
	switch code {
	case "no_line_items", "negative_amount", "negative_quantity":
		return "lines"
	case "negative_shipping":
		return "shipping_amount"
	case "negative_discount":
		return "discount_amount"
	case "negative_gross_pay":
		return "gross_pay"
	case "missing_pay_date":
		return "pay_date"
	default:
		return "request"
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "no_line_items":
		return "at least one line item is required"
	case "negative_amount":
		return "line amount must not be negative"
	case "negative_quantity":
		return "line quantity must not be negative"
	case "negative_shipping":
		return "shipping amount must not be negative"
	case "negative_discount":
		return "discount amount must not be negative"
	case "negative_gross_pay":
		return "gross pay must not be negative"
	case "missing_pay_date":
		return "pay date is required"
	default:
		return "invalid request"
	}
}
