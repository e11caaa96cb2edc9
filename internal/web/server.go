package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/wardrobe/internal/artstore"
	"github.com/vbonduro/wardrobe/internal/metrics"
	"github.com/vbonduro/wardrobe/internal/service"
)

type Server struct {
	service  *service.AvatarService
	artStg   artstore.ArtworkStore
	validate *Validator
	mux      *http.ServeMux
	logger   *slog.Logger
}

func NewServer(svc *service.AvatarService, as artstore.ArtworkStore, logger *slog.Logger) *Server {
	s := &Server{
		service:  svc,
		artStg:   as,
		validate: NewValidator(),
		mux:      http.NewServeMux(),
		logger:   logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /items", s.handleListItems)
	s.mux.HandleFunc("POST /items", s.handleCreateItem)
	s.mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	s.mux.HandleFunc("GET /items/{id}/artwork", s.handleGetArtwork)
	s.mux.HandleFunc("PATCH /items/{id}/placement", s.handleUpdatePlacement)
	s.mux.HandleFunc("POST /items/{id}/approval", s.handleSetApproval)
	s.mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)

	s.mux.HandleFunc("POST /avatars", s.handleCreateAvatar)
	s.mux.HandleFunc("GET /avatars/{id}", s.handleGetAvatar)
	s.mux.HandleFunc("PATCH /avatars/{id}", s.handleUpdateAvatar)
	s.mux.HandleFunc("DELETE /avatars/{id}", s.handleDeleteAvatar)
	s.mux.HandleFunc("GET /owners/{type}/{id}/avatar", s.handleGetOwnerAvatar)

	s.mux.HandleFunc("GET /avatars/{id}/layers", s.handleLayers)
	s.mux.HandleFunc("GET /avatars/{id}/image", s.handleImage)
	s.mux.HandleFunc("POST /preview", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// securityHeaders sets the hardening headers on every response.
// The API serves JSON and images only, so nothing may be loaded or framed.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs every request and records it in the HTTP metrics. The
// route pattern rather than the raw path labels the metrics, so ids do not
// blow up cardinality.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())

		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"pattern", pattern,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
