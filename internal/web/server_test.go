package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/subjects/internal/application"
	"github.com/JonMunkholm/subjects/internal/config"
)

type testEnv struct {
	server *Server
	dir    string
}

func newTestEnv(t *testing.T) testEnv {
	return newTestEnvWithSecurity(t, config.SecurityConfig{})
}

func newTestEnvWithSecurity(t *testing.T, security config.SecurityConfig) testEnv {
	t.Helper()
	dir := t.TempDir()
	reg := prometheus.NewRegistry()

	app, err := application.New(application.Options{
		StorePath:  filepath.Join(dir, "db.txt"),
		ExportPath: filepath.Join(dir, "export.csv"),
		Registerer: reg,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, RequestTimeout: 5 * time.Second}
	return testEnv{server: NewServer(app, cfg, security, reg), dir: dir}
}

// do sends a request; POST bodies are sent as JSON.
func (e testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req)
}

func (e testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

const ivanJSON = `{"name":"Иван","surname":"Петров","patronymic":"","passport_number":"0101123456","birthday":"14.03.1985"}`

func TestCreateAndListSubjects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/subjects", ivanJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created subjectResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "0101123456", created.PassportNumber)
	assert.Equal(t, "1985-03-14", created.Birthday)
	assert.Equal(t, "Петров Иван , passport: 0101123456, birth: 1985-03-14", created.Display)

	rec = env.do(t, http.MethodGet, "/api/subjects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []subjectResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Иван", list[0].Name)
}

func TestCreateSubject_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Иван","surname":"Петров","passport_number":"12ab","birthday":"14.03.1985"}`
	rec := env.do(t, http.MethodPost, "/api/subjects", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "VAL001", resp.Code)
	assert.Equal(t, []string{"invalid passport number format", "incorrect passport number range"}, resp.Reasons)

	assert.Empty(t, env.server.app.Subjects())
}

func TestCreateSubject_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"unknown field", `{"nickname":"Ваня"}`},
		{"field too long", `{"name":"` + strings.Repeat("а", 300) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/subjects", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "REQ001", resp.Code)
		})
	}
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/validate", ivanJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok validateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Fields)

	rec = env.do(t, http.MethodPost, "/api/validate", `{"name":"Ivan","surname":"Петров","passport_number":"1","birthday":"1900-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var bad validateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bad))
	assert.False(t, bad.Valid)
	assert.Equal(t, "VAL003", bad.Fields["name"].Code)
	assert.Equal(t, "VAL006", bad.Fields["passport_number"].Code)
	assert.Equal(t, "VAL007", bad.Fields["birthday"].Code)
	assert.NotContains(t, bad.Fields, "surname")

	// Nothing is stored.
	assert.Empty(t, env.server.app.Subjects())
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/subjects", ivanJSON).Code)

	rec := env.do(t, http.MethodPost, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res application.ExportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Sorted)
	assert.Equal(t, 1, res.Count)
	assert.NotEmpty(t, res.ID)

	raw, err := os.ReadFile(filepath.Join(env.dir, "export.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Петров;Иван;;14/03/1985;0101;0101-0101123456\n", string(raw))

	other := filepath.Join(env.dir, "other.csv")
	rec = env.do(t, http.MethodPost, "/api/export", `{"path":`+strconvQuote(other)+`,"sorted":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestExport_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/export", `{"path":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	missing := filepath.Join(env.dir, "missing", "x.csv")
	rec = env.do(t, http.MethodPost, "/api/export", `{"path":`+strconvQuote(missing)+`}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "FILE001", resp.Code)
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/subjects", ivanJSON).Code)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	body := rec.Body.String()
	assert.Contains(t, body, "<form method=\"post\" action=\"/\">")
	assert.Contains(t, body, "<td>Петров</td>")
	assert.Contains(t, body, "<td>14.03.1985</td>")
}

func TestFormSubmit(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"name":            {"Иван"},
		"surname":         {"Петров"},
		"passport_number": {"4510123456"},
		"birthday":        {"14.03.1985"},
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?notice="))
	assert.Len(t, env.server.app.Subjects(), 1)

	// Invalid input re-renders the form with the typed values and reasons.
	form.Set("name", "<b>Ivan</b>")
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "incorrect first name")
	assert.Contains(t, body, "VAL003")
	assert.Contains(t, body, "&lt;b&gt;Ivan&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Ivan</b>")
	assert.Len(t, env.server.app.Subjects(), 1)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/subjects", ivanJSON).Code)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","subjects":1}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subjects_added_total 1")
	assert.Contains(t, rec.Body.String(), "subjects_registered 1")
}

func TestAPI_RequiresJSONContentType(t *testing.T) {
	env := newTestEnv(t)

	victim := filepath.Join(env.dir, "victim.conf")
	require.NoError(t, os.WriteFile(victim, []byte("important=1\n"), 0o644))

	tests := []struct {
		name        string
		target      string
		body        string
		contentType string
	}{
		{"text plain export", "/api/export", `{"path":` + strconvQuote(victim) + `}`, "text/plain"},
		{"form encoded subject", "/api/subjects", ivanJSON, "application/x-www-form-urlencoded"},
		{"missing content type", "/api/validate", ivanJSON, ""},
		{"empty export body", "/api/export", "", "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := env.serve(req)
			require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "REQ002", resp.Code)
		})
	}

	raw, err := os.ReadFile(victim)
	require.NoError(t, err)
	assert.Equal(t, "important=1\n", string(raw))
	assert.Empty(t, env.server.app.Subjects())
	_, err = os.Stat(filepath.Join(env.dir, "export.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Parameters on the media type are accepted.
	req := httptest.NewRequest(http.MethodPost, "/api/subjects", strings.NewReader(ivanJSON))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.Equal(t, http.StatusCreated, env.serve(req).Code)
}

func TestAPI_ExportRefusesStoreFile(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/subjects", ivanJSON).Code)

	dbPath := filepath.Join(env.dir, "db.txt")
	rec := env.do(t, http.MethodPost, "/api/export", `{"path":`+strconvQuote(dbPath)+`}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	raw, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "Иван;Петров;;0101123456;1985-03-14\n", string(raw))
}

func TestAPI_KeyAuth(t *testing.T) {
	env := newTestEnvWithSecurity(t, config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"s3cret"}})

	rec := env.do(t, http.MethodPost, "/api/subjects", ivanJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/subjects", strings.NewReader(ivanJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, env.serve(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/subjects", strings.NewReader(ivanJSON))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "s3cret")
	assert.Equal(t, http.StatusCreated, env.serve(req).Code)

	// The page and probes stay open.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestFormSubmit_CrossOrigin(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"name":            {"Иван"},
		"surname":         {"Петров"},
		"passport_number": {"4510123456"},
		"birthday":        {"14.03.1985"},
	}
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:8080/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	rec := env.serve(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.server.app.Subjects())

	req = httptest.NewRequest(http.MethodPost, "http://127.0.0.1:8080/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://127.0.0.1:8080")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	assert.Equal(t, http.StatusSeeOther, env.serve(req).Code)
}

func TestFormSubmit_MalformedBodyRendersAlert(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.serve(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<div class="error" role="alert">`)
	assert.Contains(t, body, "(Code: REQ001)")
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
