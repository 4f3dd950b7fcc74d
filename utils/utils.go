package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func ParseRequestBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dest)
	if err != nil {
		slog.Error("error parsing request body", "error", err)
		WriteErrorResponse(w, fmt.Errorf("error parsing request body: %w", err), http.StatusBadRequest)
		return false
	}
	return true
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
	}
}

func WriteSuccess(w http.ResponseWriter) {
	WriteJsonResponse(w, struct{}{})
}

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
}

func errorType(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "not_found"
	case code >= 400 && code < 500:
		return "validation"
	default:
		return "internal"
	}
}

func WriteErrorResponse(w http.ResponseWriter, err error, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Message: err.Error(), ErrorType: errorType(code)})
	if encodeErr != nil {
		slog.Error("error serializing error response", "error", encodeErr)
	}
}

func URLParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if len(param) == 0 {
		return "", fmt.Errorf("missing {%v} url parameter", key)
	}
	return param, nil
}

func URLParamInt(r *http.Request, key string) (int, error) {
	param := chi.URLParam(r, key)
	if len(param) == 0 {
		return 0, fmt.Errorf("missing {%v} url parameter", key)
	}

	id, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("invalid integer '%v' provided: %w", param, err)
	}

	return id, nil
}

func QueryParamInt(r *http.Request, key string) (int, error) {
	param := r.URL.Query().Get(key)
	if len(param) == 0 {
		return 0, fmt.Errorf("missing '%v' query parameter", key)
	}

	id, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("invalid integer '%v' provided for '%v': %w", param, key, err)
	}

	return id, nil
}

func QueryParam(r *http.Request, key string) (string, error) {
	param := r.URL.Query().Get(key)
	if len(param) == 0 {
		return "", fmt.Errorf("missing '%v' query parameter", key)
	}
	return param, nil
}

// FormatFileSize renders a byte count the way the payment and media info
// endpoints report it.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024.0)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024.0*1024.0))
	}
}
