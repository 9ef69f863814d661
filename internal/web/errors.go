package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical details and the request ID, then
// mapped through core.MapError to a user message with a support code. API
// clients get JSON, browsers get an HTML error page.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/logging"
	"github.com/JonMunkholm/emailclean/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message. A zero status
// is derived from the error code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)
	if status == 0 {
		status = statusFor(userMsg.Code)
	}

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorPage(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w); err != nil {
		logger.Error("render error page", "error", err)
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case "FILE001":
		return http.StatusRequestEntityTooLarge
	case "FILE002", "FILE003", "FILE004", "FILE005", "FILE006", "VAL002", "VAL003", "VAL004":
		return http.StatusBadRequest
	case "VAL001":
		return http.StatusUnprocessableEntity
	case "RUN001":
		return http.StatusServiceUnavailable
	case "RUN002":
		return http.StatusNotFound
	case "RUN003":
		return http.StatusRequestTimeout
	case "RUN004":
		return http.StatusGatewayTimeout
	case "RUN005":
		return http.StatusConflict
	case "RATE001":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// uploadError normalizes errors from reading a multipart upload.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return core.ErrFileTooLarge
	}
	if errors.Is(err, http.ErrMissingFile) {
		return core.ErrNoFile
	}
	return err
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
