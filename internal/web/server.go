// Package web serves the lookup form, a JSON API and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/dossier/internal/metrics"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/store"
)

// Looker runs company lookups
type Looker interface {
	Run(ctx context.Context, company, country string) *pipeline.Result
}

// History reads saved lookups
type History interface {
	List(ctx context.Context, company string, limit int) ([]store.Lookup, error)
	Get(ctx context.Context, id string) (*store.Lookup, error)
}

// Server is the HTTP front end
type Server struct {
	looker  Looker
	history History
	logger  *zap.Logger
	policy  *bluemonday.Policy
	timeout time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithHistory enables the history endpoints and the recent lookups list
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithLookupTimeout bounds a single lookup
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// NewServer creates a server
func NewServer(looker Looker, opts ...Option) *Server {
	s := &Server{
		looker:  looker,
		logger:  zap.NewNop(),
		policy:  bluemonday.UGCPolicy(),
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/", s.handleIndex)
	r.Post("/lookup", s.handleLookupForm)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/lookup", s.handleLookupAPI)
		r.Get("/history", s.handleHistoryList)
		r.Get("/history/{id}", s.handleHistoryGet)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("web server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// observe logs requests and counts them by route pattern
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type pageData struct {
	Company    string
	Country    string
	Warning    string
	Result     *pipeline.Result
	References []template.HTML
	Recent     []store.Lookup
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, pageData{})
}

func (s *Server) handleLookupForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderPage(w, r, http.StatusBadRequest, pageData{Warning: "Invalid form submission."})
		return
	}

	company := strings.TrimSpace(r.PostFormValue("company"))
	country := strings.TrimSpace(r.PostFormValue("country"))
	if company == "" {
		s.renderPage(w, r, http.StatusBadRequest, pageData{Country: country, Warning: pipeline.EmptyCompanyWarning})
		return
	}

	res := s.lookup(r.Context(), company, country)
	s.renderPage(w, r, http.StatusOK, pageData{
		Company:    company,
		Country:    country,
		Result:     res,
		References: s.referenceItems(res),
	})
}

func (s *Server) handleLookupAPI(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(r.URL.Query().Get("company"))
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if company == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": pipeline.EmptyCompanyWarning})
		return
	}

	writeJSON(w, http.StatusOK, s.lookup(r.Context(), company, country))
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	lookups, err := s.history.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("company")), limit)
	if err != nil {
		s.logger.Error("history list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if lookups == nil {
		lookups = []store.Lookup{}
	}
	writeJSON(w, http.StatusOK, lookups)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}

	lookup, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("history get failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, pipeline.FromLookup(*lookup))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) lookup(ctx context.Context, company, country string) *pipeline.Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.looker.Run(ctx, company, country)
}

// referenceItems renders each reference line as sanitized HTML, linking the
// URL when the line carries one
func (s *Server) referenceItems(res *pipeline.Result) []template.HTML {
	var items []template.HTML
	for _, ref := range res.ReferenceList() {
		var raw string
		if ref.URL != "" {
			label := ref.Label
			if label == "" {
				label = ref.URL
			}
			raw = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(ref.URL), html.EscapeString(label))
		} else {
			raw = html.EscapeString(ref.Raw)
		}
		items = append(items, template.HTML(s.policy.Sanitize(raw)))
	}
	return items
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	if s.history != nil && data.Result == nil {
		recent, err := s.history.List(r.Context(), "", 10)
		if err != nil {
			s.logger.Warn("recent lookups unavailable", zap.Error(err))
		}
		data.Recent = recent
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("render page failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
