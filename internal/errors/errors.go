package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound is returned when a referenced token does not exist.
	ErrTokenNotFound = errors.New("token not found")
	// ErrAccountNotFound is returned when a linked account does not exist or belongs to someone else.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnauthorized is returned when a credential is missing, expired, inactive or invalid.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when an authenticated caller lacks a required role.
	ErrForbidden = errors.New("insufficient role")
	// ErrConflict is returned when a unique key already exists.
	ErrConflict = errors.New("conflict")
	// ErrLastAccount is returned when unlinking would leave a user with no way to sign in.
	ErrLastAccount = errors.New("cannot unlink the last authentication method")
	// ErrValidation is returned when input fails validation before any write.
	ErrValidation = errors.New("validation failed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Wrapped errors keep their message so callers see which field or entity failed.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrAccountNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrLastAccount), errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_SERVER_ERROR")
	}
}

// IsKnown reports whether err maps to a non-internal HTTP error.
func IsKnown(err error) bool {
	return MapErrorToHTTP(err).StatusCode != http.StatusInternalServerError
}
