package http

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// urlRequest represents the structure for a request to shorten a URL.
type urlRequest struct {
	OriginalURL string `json:"originalUrl" validate:"required"`
}

// urlResponse represents a stored mapping.
type urlResponse struct {
	ID            int64     `json:"id"`
	OriginalURL   string    `json:"originalUrl"`
	ShortCode     string    `json:"shortCode"`
	ClickCount    int64     `json:"clickCount"`
	CreatedDate   time.Time `json:"createdDate"`
	OwnerUsername string    `json:"ownerUsername"`
}

func toURLResponse(m *entity.URLMapping) urlResponse {
	return urlResponse{
		ID:            m.ID,
		OriginalURL:   m.OriginalURL,
		ShortCode:     m.ShortCode,
		ClickCount:    m.ClickCount,
		CreatedDate:   m.CreatedAt,
		OwnerUsername: m.Owner,
	}
}

// dailyClicksResponse is the click count of a mapping on a single day.
type dailyClicksResponse struct {
	ClickDate string `json:"clickDate"`
	Count     int64  `json:"count"`
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidDateFormatResponse = errorResponse{
		Status:  statusError,
		Message: "invalid date format",
	}

	invalidDateRangeResponse = errorResponse{
		Status:  statusError,
		Message: "end date is before start date",
	}

	unauthorizedResponse = errorResponse{
		Status:  statusError,
		Message: "unauthorized",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
