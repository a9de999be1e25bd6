package dto

import "net/http"

// Generic error codes used by handlers and middleware
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes produced by the domain and application layers all appear here;
// anything unknown falls back to 500.
var ErrorCodeHTTPStatus = map[string]int{
	// General
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	"INVALID_INPUT":   http.StatusBadRequest,

	// Party submission validation -> 400 Bad Request
	"INVALID_TITLE":       http.StatusBadRequest,
	"INVALID_HOST":        http.StatusBadRequest,
	"INVALID_LOCATION":    http.StatusBadRequest,
	"INVALID_DOORS_OPEN":  http.StatusBadRequest,
	"INVALID_DESCRIPTION": http.StatusBadRequest,
	"INVALID_CATEGORY":    http.StatusBadRequest,
	"INVALID_DAY":         http.StatusBadRequest,
	"INVALID_COORDINATES": http.StatusBadRequest,

	// Identity validation -> 400 Bad Request
	"INVALID_EMAIL":        http.StatusBadRequest,
	"INVALID_EMAIL_DOMAIN": http.StatusBadRequest,
	"INVALID_USERNAME":     http.StatusBadRequest,

	// Auth
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	"INVALID_MAGIC_LINK": http.StatusUnauthorized,
	"TOKEN_EXPIRED":      http.StatusUnauthorized,
	"TOKEN_INVALID":      http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":  http.StatusUnauthorized,
	"TOKEN_ERROR":        http.StatusUnauthorized,
	"USER_NOT_FOUND":     http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,

	// Resources
	ErrCodeNotFound:        http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,
	"USERNAME_TAKEN":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Moderation state machine -> 409 Conflict
	"INVALID_STATE": http.StatusConflict,

	// Rate limiting
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
