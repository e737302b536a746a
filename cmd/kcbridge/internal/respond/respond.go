// Package respond writes the JSON bodies shared by handlers and middleware.
//
// Errors use the admin panel envelope:
//
//	{"data": null, "error": {"status": 400, "name": "BadRequestError", "message": "...", "details": {}}}
package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the "error" member of the envelope.
type ErrorBody struct {
	Status  int            `json:"status"`
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Envelope is the outer error document. Data is always null.
type Envelope struct {
	Data  any       `json:"data"`
	Error ErrorBody `json:"error"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the error envelope with empty details.
func Error(w http.ResponseWriter, status int, message string) {
	ErrorWithDetails(w, status, message, nil)
}

// ErrorWithDetails writes the error envelope. A nil details map is sent as {}.
func ErrorWithDetails(w http.ResponseWriter, status int, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	JSON(w, status, Envelope{
		Error: ErrorBody{
			Status:  status,
			Name:    ErrorName(status),
			Message: message,
			Details: details,
		},
	})
}

// ErrorName is the error class reported for status.
func ErrorName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BadRequestError"
	case http.StatusUnauthorized:
		return "UnauthorizedError"
	case http.StatusForbidden:
		return "ForbiddenError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusInternalServerError:
		return "InternalServerError"
	default:
		return "ApplicationError"
	}
}
