package validator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	domainerr "github.com/authgreet/authgreet/domain/error"
)

const MaxBodyBytes = 1 << 20

// DecodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data and oversized bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domainerr.NewValidationError("body", "Request body too large")
		case errors.Is(err, io.EOF):
			return domainerr.NewValidationError("body", "Request body is required")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return domainerr.NewValidationError("body", "Unknown field "+field)
		default:
			return domainerr.NewValidationError("body", "Invalid request body")
		}
	}

	if dec.More() {
		return domainerr.NewValidationError("body", "Request body must contain a single JSON object")
	}
	return nil
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ValidateJWT is a shape check only; it says nothing about validity.
func ValidateJWT(token string) bool {
	if token == "" {
		return false
	}
	return len(strings.Split(token, ".")) == 3
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if !ValidateRequired(token) {
		return "", false
	}
	return token, true
}
