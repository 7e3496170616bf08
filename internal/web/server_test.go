package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inbox-triage/triage/internal/config"
	"github.com/inbox-triage/triage/internal/triage"
)

const reviewEmail = "Hi team,\nThe project review is on Friday at 3pm in Room 12.\nPlease bring your laptops.\nThanks"

var csrfFieldRE = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 100
	}
	s, err := NewServer(cfg, triage.NewAnalyzer(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

type apiResponse struct {
	ID     string        `json:"id"`
	Result triage.Result `json:"result"`
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestIndexRendersForm(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<textarea id="email" name="email"`)
	assert.Regexp(t, csrfFieldRE, body)
	assert.NotContains(t, body, `id="result"`)
	assert.NotEmpty(t, rec.Result().Cookies(), "CSRF cookie is set")
}

func TestFormAnalyze(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	// Fetch the form for a token and cookie
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	m := csrfFieldRE.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2)

	form := url.Values{"email": {reviewEmail}, "gorilla.csrf.Token": {m[1]}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<span class="route">calendar</span>`)
	assert.Contains(t, body, "The project review is on Friday at 3pm in Room 12.")
	assert.Contains(t, body, "Day: Friday")
	assert.Contains(t, body, "<li>Bring your laptops</li>")
	assert.NotContains(t, body, "No tasks found.")
}

func TestFormEmptyEmail(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	m := csrfFieldRE.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2)

	form := url.Values{"email": {"   "}, "gorilla.csrf.Token": {m[1]}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="result"`)
	assert.Contains(t, body, `<span class="route">summary</span>`)
	assert.Contains(t, body, "No summary generated.")
	assert.Contains(t, body, "No calendar events found.")
	assert.Contains(t, body, "No tasks found.")
}

func TestFormRequiresCSRFToken(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	form := url.Values{"email": {reviewEmail}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPIAnalyze(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := postJSON(h, "/api/analyze", `{"text": "Please send the report by tomorrow."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)
	assert.Equal(t, triage.RouteTasks, resp.Result.Route)
	assert.Equal(t, []string{"Send the report by tomorrow"}, resp.Result.Tasks)
	assert.Nil(t, resp.Result.CalendarEvents)

	// The stored result can be fetched again
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/"+resp.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, resp, fetched)
}

func TestAPIAnalyzeEmptyText(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}).Handler()

	rec := postJSON(h, "/api/analyze", `{"text": ""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, triage.Result{Route: triage.RouteSummary}, resp.Result)
}

func TestAPIAnalyzeErrors(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{MaxBodyBytes: 64}).Handler()

	t.Run("invalid JSON", func(t *testing.T) {
		rec := postJSON(h, "/api/analyze", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		body := `{"text": "` + strings.Repeat("a", 200) + `"}`
		rec := postJSON(h, "/api/analyze", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unknown result", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/"+uuid.New().String(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{RateLimit: 2}).Handler()

	for i := 0; i < 2; i++ {
		rec := postJSON(h, "/api/analyze", `{"text": "hello"}`)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := postJSON(h, "/api/analyze", `{"text": "hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health checks are not limited
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{})
	assert.NoError(t, s.Shutdown(context.Background()))

	// The cleanup goroutines are told to exit
	assert.True(t, isClosed(s.rateLimiter.stop))
	assert.True(t, isClosed(s.results.done))

	// A second shutdown is harmless
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()

	assert.True(t, isClosed(rl.stop))
	assert.True(t, rl.Allow("a"))
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestServerLogsWithComponent(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewServer(config.ServerConfig{Port: 8080}, triage.NewAnalyzer(zerolog.Nop()), zerolog.New(&buf))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	s.log.Info().Msg("ready")
	assert.Contains(t, buf.String(), `"component":"web"`)
}
