package response

import (
	"encoding/json"
	"net/http"

	pkgerr "github.com/authgreet/authgreet/pkg/error"
)

type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, status bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	envelope := Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(envelope)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, true, message, data)
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, false, message, nil)
}

// FromError writes the mapped status and message for err.
func FromError(w http.ResponseWriter, err error) *pkgerr.AppError {
	appErr := pkgerr.MapError(err)
	WriteJSON(w, appErr.Status, false, appErr.Message, map[string]string{"code": appErr.Code})
	return appErr
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
