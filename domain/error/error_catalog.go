package error

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes for different categories
const (
	// Authentication Errors (1xxx)
	ErrCodeInvalidCredentials  ErrorCode = "AUTH_1001"
	ErrCodeInvalidToken        ErrorCode = "AUTH_1003"
	ErrCodeInvalidRefreshToken ErrorCode = "AUTH_1006"
	ErrCodeRefreshExhausted    ErrorCode = "AUTH_1009"

	// Validation Errors (2xxx)
	ErrCodeValidation ErrorCode = "VALID_2005"

	// Conflict Errors (25xx)
	ErrCodeConflict ErrorCode = "CONFLICT_2501"

	// Server Errors (6xxx)
	ErrCodeInternalServerError ErrorCode = "SERVER_6001"
)

// Core taxonomy. Callers match with errors.Is; the concrete types below carry detail.
var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshExhausted    = errors.New("refresh exhausted, re-authentication required")
)

// TokenFailure is the closed set of reasons a token can fail verification.
// It is for logs only and never leaves the process.
type TokenFailure int

const (
	TokenMalformed TokenFailure = iota + 1
	TokenInvalidSignature
	TokenExpired
)

func (f TokenFailure) String() string {
	switch f {
	case TokenMalformed:
		return "malformed"
	case TokenInvalidSignature:
		return "invalid_signature"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// TokenError is returned by the verifier. It matches ErrInvalidToken only,
// whatever the underlying Reason, so callers cannot branch on the cause.
type TokenError struct {
	Reason TokenFailure
	Cause  error
}

func (e *TokenError) Error() string {
	return ErrInvalidToken.Error()
}

func (e *TokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

// No Unwrap: errors.Is must never reach the jwt library's sentinels through a TokenError.

// FailureReason extracts the internal reason for logging.
func FailureReason(err error) string {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Reason.String()
	}
	return "unknown"
}

// ValidationError describes malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Classify returns the catalog code for any error produced by the core.
func Classify(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, ErrConflict):
		return ErrCodeConflict
	case errors.Is(err, ErrInvalidCredentials):
		return ErrCodeInvalidCredentials
	case errors.Is(err, ErrInvalidRefreshToken):
		return ErrCodeInvalidRefreshToken
	case errors.Is(err, ErrInvalidToken):
		return ErrCodeInvalidToken
	case errors.Is(err, ErrRefreshExhausted):
		return ErrCodeRefreshExhausted
	default:
		return ErrCodeInternalServerError
	}
}

// GetHTTPStatusCode maps an error to the status the HTTP layer should answer with.
func GetHTTPStatusCode(err error) int {
	switch Classify(err) {
	case ErrCodeValidation:
		return 400 // Bad Request
	case ErrCodeConflict:
		return 409 // Conflict
	case ErrCodeInvalidCredentials, ErrCodeInvalidToken, ErrCodeInvalidRefreshToken, ErrCodeRefreshExhausted:
		return 401 // Unauthorized
	default:
		return 500
	}
}
