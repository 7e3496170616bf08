package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"

	"github.com/inbox-triage/triage/internal/config"
	"github.com/inbox-triage/triage/internal/logger"
	"github.com/inbox-triage/triage/internal/report"
	"github.com/inbox-triage/triage/internal/triage"
)

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
	defaultResultTTL  = 30 * time.Minute
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

// Allow records a request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := time.Now().Add(-rl.window)
	for key, times := range rl.requests {
		recent := rl.filterRecent(times, windowStart)
		if len(recent) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = recent
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Server serves the local analysis form and the JSON API
type Server struct {
	config      config.ServerConfig
	analyzer    *triage.Analyzer
	log         zerolog.Logger
	templates   map[string]*template.Template
	httpServer  *http.Server
	csrfKey     []byte
	results     *ResultStore
	rateLimiter *RateLimiter
}

func NewServer(cfg config.ServerConfig, analyzer *triage.Analyzer, log zerolog.Logger) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	s := &Server{
		config:      cfg,
		analyzer:    analyzer,
		log:         logger.Component(log, "web"),
		csrfKey:     csrfKey,
		results:     NewResultStore(defaultResultTTL),
		rateLimiter: NewRateLimiter(limit, defaultRateWindow),
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// parseTemplates parses every page together with the shared layout.
// Each page gets its own template set to avoid "content" block conflicts.
func parseTemplates() (map[string]*template.Template, error) {
	layoutContent, err := templatesFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout template: %w", err)
	}

	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make(map[string]*template.Template)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == "layout.html" || !strings.HasSuffix(name, ".html") {
			continue
		}

		content, err := templatesFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		pageTmpl := template.New(name)
		if _, err := pageTmpl.Parse(string(layoutContent)); err != nil {
			return nil, fmt.Errorf("failed to parse layout for %s: %w", name, err)
		}
		if _, err := pageTmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = pageTmpl
	}

	return templates, nil
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Start starts the web server and, if asked, opens the browser
func (s *Server) Start(open bool) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.config.Port),
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", s.config.Port)
	if open {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	s.log.Info().Str("url", url).Msg("starting web UI (press Ctrl+C to stop)")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	s.results.Close()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setupRouter configures all routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(limitBody(s.config.MaxBodyBytes))

		// HTML form, CSRF-protected. The server only listens on loopback
		// over plain HTTP.
		r.Group(func(r chi.Router) {
			r.Use(plaintextHTTP)
			r.Use(csrf.Protect(
				s.csrfKey,
				csrf.Secure(false),
				csrf.Path("/"),
				csrf.HttpOnly(true),
				csrf.SameSite(csrf.SameSiteLaxMode),
				csrf.TrustedOrigins([]string{
					"localhost", "127.0.0.1",
					fmt.Sprintf("localhost:%d", s.config.Port),
					fmt.Sprintf("127.0.0.1:%d", s.config.Port),
				}),
				csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFError)),
			))
			r.Get("/", s.handleIndex)
			r.Post("/", s.handleAnalyzeForm)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.With(middleware.AllowContentType("application/json")).Post("/analyze", s.handleAPIAnalyze)
			r.Get("/results/{resultID}", s.handleAPIResult)
		})
	})

	return r
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Pages are self-contained: inline styles only, no scripts
		csp := "default-src 'self'; " +
			"script-src 'none'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"form-action 'self'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		// Submitted emails should never be cached
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

		next.ServeHTTP(w, r)
	})
}

// plaintextHTTP tells the CSRF middleware that requests arrive over HTTP,
// so it does not demand an HTTPS Referer
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// requestLogger logs one line per request
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

// rateLimit rejects clients that exceed the configured requests per minute
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(clientKey(r)) {
			s.log.Warn().Str("client", clientKey(r)).Msg("rate limit exceeded")
			http.Error(w, "Too many requests, please slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitBody rejects request bodies larger than max bytes
func limitBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max > 0 {
				if r.ContentLength > max {
					http.Error(w, "Email is too large", http.StatusRequestEntityTooLarge)
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		return
	}

	exec.Command(cmd, args...).Start()
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderWithCSRF(w, r, "index.html", map[string]interface{}{
		"Title": "Analyze an email",
	})
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Email is too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	text := r.FormValue("email")
	data := map[string]interface{}{
		"Title": "Analyze an email",
		"Email": text,
	}

	// Blank submissions still run the pipeline and show "none found"
	res := s.analyzer.Analyze("web", text)
	data["Result"] = res
	data["Analyzed"] = true
	data["NoSummary"] = report.NoSummary
	data["NoEvents"] = report.NoEvents
	data["NoTasks"] = report.NoTasks

	s.renderWithCSRF(w, r, "index.html", data)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "email is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res := s.analyzer.Analyze("api", req.Text)
	writeJSON(w, http.StatusOK, s.results.Save(res))
}

func (s *Server) handleAPIResult(w http.ResponseWriter, r *http.Request) {
	stored := s.results.Get(chi.URLParam(r, "resultID"))
	if stored == nil {
		writeError(w, http.StatusNotFound, "result not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleCSRFError(w http.ResponseWriter, r *http.Request) {
	s.log.Warn().Err(csrf.FailureReason(r)).Str("path", r.URL.Path).Msg("CSRF check failed")
	http.Error(w, "Forbidden - invalid CSRF token, reload the page and try again", http.StatusForbidden)
}

func (s *Server) renderWithCSRF(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	data["CSRFField"] = csrf.TemplateField(r)

	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("template error")
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
