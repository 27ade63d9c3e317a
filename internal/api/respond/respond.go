package respond

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Timestamp formats t the way every response body reports time.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteErrorResponse fills in the status text and timestamp when missing and
// writes resp with resp.Code as the status.
func WriteErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	if resp.Error == "" {
		resp.Error = http.StatusText(resp.Code)
	}
	if resp.Timestamp == "" {
		resp.Timestamp = Timestamp(time.Now())
	}
	WriteJSON(w, resp.Code, resp)
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorResponse(w, ErrorResponse{Code: statusCode, Message: message})
}

// WriteBadRequest writes a 400 Bad Request response
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteInternalError writes a 500 Internal Server Error response
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
