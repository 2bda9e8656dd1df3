package web

// errors.go provides unified error response handling for the web layer.
//
// Every failing handler calls respondError. The error is mapped through
// apperrors.MapError to an operator-facing message and support code, logged
// with the request ID, and returned as JSON for /api routes or as an
// ErrorAlert fragment otherwise. Validation errors also carry their full
// reason list.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/logging"
	"github.com/JonMunkholm/subjects/internal/subject"
	"github.com/JonMunkholm/subjects/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Reasons []string `json:"reasons,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var verr *subject.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case apperrors.HasCode(err, apperrors.CodeBadRequest):
		return http.StatusBadRequest
	case apperrors.HasCode(err, apperrors.CodeMediaType):
		return http.StatusUnsupportedMediaType
	case apperrors.HasCode(err, apperrors.CodeClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err with request context and writes the mapped message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := apperrors.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err.Error(),
			"code", userMsg.Code,
		)
	} else {
		logger.Info("request rejected",
			"path", r.URL.Path,
			"status", status,
			"code", userMsg.Code,
		)
	}

	var reasons []subject.Reason
	var verr *subject.ValidationError
	if errors.As(err, &verr) {
		reasons = verr.Reasons()
	}

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if rerr := templates.ErrorAlert(toAlert(userMsg, reasons)).Render(r.Context(), w); rerr != nil {
			logger.Error("render error alert", "error", rerr)
		}
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	for _, reason := range reasons {
		resp.Reasons = append(resp.Reasons, string(reason))
	}
	writeJSON(w, status, resp)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
