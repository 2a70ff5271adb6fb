package dto

import "net/http"

// Error codes shared between handlers. Domain services return
// shared.DomainError values whose Code field lands here unchanged, so
// every code a service can emit has an entry in the status map below.

// General error codes
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "ALREADY_EXISTS"
	ErrCodeRateLimited  = "QUOTA_EXCEEDED"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,

	// Input validation -> 400 Bad Request
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_PERIOD":          http.StatusBadRequest,
	"INVALID_RESOURCE_KIND":   http.StatusBadRequest,
	"INVALID_ACTION":          http.StatusBadRequest,
	"INVALID_COUNT":           http.StatusBadRequest,
	"INVALID_LIMIT":           http.StatusBadRequest,
	"INVALID_THRESHOLD":       http.StatusBadRequest,
	"INVALID_TENANT":          http.StatusBadRequest,
	"INVALID_PLAN":            http.StatusBadRequest,
	"INVALID_NAME":            http.StatusBadRequest,
	"INVALID_EMAIL":           http.StatusBadRequest,
	"INVALID_SIZE":            http.StatusBadRequest,
	"INVALID_STORAGE_KEY":     http.StatusBadRequest,
	"INVALID_DOCUMENT":        http.StatusBadRequest,
	"INVALID_ENVELOPE":        http.StatusBadRequest,
	"INVALID_SIGNERS":         http.StatusBadRequest,
	"EMPTY_CONTENT":           http.StatusBadRequest,
	"DISALLOWED_CONTENT_TYPE": http.StatusBadRequest,

	// Resource errors
	"TENANT_NOT_FOUND":  http.StatusNotFound,
	"PLAN_NOT_FOUND":    http.StatusNotFound,
	"CONTENT_TOO_LARGE": http.StatusRequestEntityTooLarge,

	// Conflicts
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"ENVELOPE_EXISTS":      http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	"INVALID_STATE":    http.StatusUnprocessableEntity,
	"NO_PLAN_ASSIGNED": http.StatusUnprocessableEntity,
	"NO_SUBSCRIPTION":  http.StatusUnprocessableEntity,
	"PLAN_INACTIVE":    http.StatusUnprocessableEntity,
	"PARSE_FAILED":     http.StatusUnprocessableEntity,

	// Quota gate denials -> 429 Too Many Requests
	"QUOTA_EXCEEDED": http.StatusTooManyRequests,

	// Upstream provider failures -> 502 Bad Gateway
	"STORAGE_FAILED":  http.StatusBadGateway,
	"ENVELOPE_FAILED": http.StatusBadGateway,

	// Payment gateway not configured on this deployment
	"BILLING_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
