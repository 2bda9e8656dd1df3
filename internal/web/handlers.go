package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/logging"
	"github.com/JonMunkholm/subjects/internal/subject"
	"github.com/JonMunkholm/subjects/internal/web/templates"
)

// subjectResponse is the JSON form of a subject.
type subjectResponse struct {
	subject.Input
	Display string `json:"display"`
}

func toResponse(s subject.Subject) subjectResponse {
	return subjectResponse{Input: s.Input(), Display: s.String()}
}

// fieldError describes one failing form field.
type fieldError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// validateResponse is the body of POST /api/validate.
type validateResponse struct {
	Valid  bool                  `json:"valid"`
	Fields map[string]fieldError `json:"fields"`
}

func (r subjectRequest) input() subject.Input {
	return subject.Input{
		Name:           r.Name,
		Surname:        r.Surname,
		Patronymic:     r.Patronymic,
		PassportNumber: r.PassportNumber,
		Birthday:       r.Birthday,
	}
}

// handleIndex renders the form page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, pageData{Notice: r.URL.Query().Get("notice")})
}

// handleFormSubmit adds a subject from the HTML form. On success it redirects
// back to the page so a reload does not resubmit.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, apperrors.Wrap(err, apperrors.CodeBadRequest, "parse form"))
		return
	}
	in := subject.Input{
		Name:           r.PostForm.Get("name"),
		Surname:        r.PostForm.Get("surname"),
		Patronymic:     r.PostForm.Get("patronymic"),
		PassportNumber: r.PostForm.Get("passport_number"),
		Birthday:       r.PostForm.Get("birthday"),
	}

	added, err := s.app.AddSubject(r.Context(), in)
	if err != nil {
		msg := apperrors.MapError(err)
		data := pageData{Input: in, Error: &msg}
		var verr *subject.ValidationError
		if errors.As(err, &verr) {
			data.Reasons = verr.Reasons()
		}
		s.renderPage(w, r, statusFor(err), data)
		return
	}

	http.Redirect(w, r, "/?notice="+url.QueryEscape("Added "+added.String()), http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.Subjects = s.app.Subjects()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.SubjectsPage(data.params()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleListSubjects returns all subjects in insertion order.
func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := s.app.Subjects()
	resp := make([]subjectResponse, len(subjects))
	for i, subj := range subjects {
		resp[i] = toResponse(subj)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateSubject validates and adds one subject.
func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	added, err := s.app.AddSubject(r.Context(), req.input())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(added))
}

// handleValidate runs every field check independently for live feedback.
// Nothing is stored.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	failed := subject.CheckFields(req.input())
	resp := validateResponse{Valid: len(failed) == 0, Fields: make(map[string]fieldError, len(failed))}
	for field, reason := range failed {
		msg := apperrors.ReasonMessage(reason)
		resp.Fields[field] = fieldError{Reason: string(reason), Message: msg.Message, Code: msg.Code}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport writes the export file on the server.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	sorted := true
	if req.Sorted != nil {
		sorted = *req.Sorted
	}

	res, err := s.app.Export(r.Context(), req.Path, sorted)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHealth reports liveness and the registry size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"subjects": len(s.app.Subjects()),
	})
}
