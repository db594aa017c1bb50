package error

import (
	"errors"

	domainerr "github.com/authgreet/authgreet/domain/error"
)

// AppError is the transport-facing form of a core error.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

// messages holds the public text per catalog code. It never says which
// credential or token check failed.
var messages = map[domainerr.ErrorCode]string{
	domainerr.ErrCodeValidation:          "Invalid request",
	domainerr.ErrCodeConflict:            "User with this email already exists",
	domainerr.ErrCodeInvalidCredentials:  "Invalid email or password",
	domainerr.ErrCodeInvalidRefreshToken: "Invalid refresh token",
	domainerr.ErrCodeInvalidToken:        "Invalid or expired token",
	domainerr.ErrCodeRefreshExhausted:    "Session expired, please log in again",
}

// MapError turns a core error into its transport form. Unknown errors
// collapse to a generic 500.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	code := domainerr.Classify(err)
	message, ok := messages[code]
	if !ok {
		code = domainerr.ErrCodeInternalServerError
		message = "An unexpected error occurred"
	}

	var vErr *domainerr.ValidationError
	if code == domainerr.ErrCodeValidation && errors.As(err, &vErr) {
		message = vErr.Message
	}

	return &AppError{Code: string(code), Message: message, Status: domainerr.GetHTTPStatusCode(err)}
}
