package localapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the response wrapper every endpoint produces, matching
// the Cloudflare API shape the client decodes.
type envelope struct {
	Result   any          `json:"result"`
	Success  bool         `json:"success"`
	Errors   []apiError   `json:"errors"`
	Messages []apiMessage `json:"messages"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// resultInfo carries pagination metadata for list endpoints.
type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}

func success(result any) envelope {
	return envelope{
		Result:   result,
		Success:  true,
		Errors:   []apiError{},
		Messages: []apiMessage{},
	}
}

func failure(code int, message string) envelope {
	return envelope{
		Success:  false,
		Errors:   []apiError{{Code: code, Message: message}},
		Messages: []apiMessage{},
	}
}

// paginated wraps a successful result together with result_info.
func paginated(result any, info resultInfo) map[string]any {
	return map[string]any{
		"result":      result,
		"success":     true,
		"errors":      []apiError{},
		"messages":    []apiMessage{},
		"result_info": info,
	}
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, failure(9400, msg))
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, failure(9401, "Authentication required"))
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, failure(9404, msg))
}

func conflict(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusConflict, failure(9409, msg))
}

func tooLarge(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusRequestEntityTooLarge, failure(9413, msg))
}

func quotaExceeded(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnprocessableEntity, failure(9422, "image allowance exceeded"))
}

func internalError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, failure(9500, msg))
}
