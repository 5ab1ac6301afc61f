// Package api exposes the HTTP interface for the rendering service.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/config"
	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/ratelimit"
	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/telemetry"
)

// ServiceName is echoed by the health endpoint.
const ServiceName = "token-renderer"

// HeadlessRenderer is the browser-backed render path.
type HeadlessRenderer interface {
	RenderToImage(ctx context.Context, req render.Request) (string, error)
	RenderToMarkup(ctx context.Context, req render.Request) (string, error)
	RenderImageBatch(ctx context.Context, reqs []render.Request) []render.BatchResult
	RenderMarkupBatch(ctx context.Context, reqs []render.Request) []render.BatchResult
}

// StaticRenderer is the browserless fast path.
type StaticRenderer interface {
	RenderToSVG(iconName string, size icons.Size) string
}

// Server wires HTTP handlers to the renderers.
type Server struct {
	router   chi.Router
	headless HeadlessRenderer
	static   StaticRenderer
	limiter  *ratelimit.Limiter
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	headless HeadlessRenderer,
	static StaticRenderer,
	limiter *ratelimit.Limiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		headless: headless,
		static:   static,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(telemetry.Middleware)

	r.Get("/health", s.health)
	r.Get("/metrics", telemetry.Handler().ServeHTTP)
	r.Get("/", s.previewIndex)
	r.Get("/icons/{name}.svg", s.iconAsset)

	// Rendering endpoints share the per-client rate limiter; the health
	// check and the preview bundle stay outside it.
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Post("/render-icon", s.renderIcon)
		r.Post("/render-svg", s.renderSVG)
		r.Post("/render-token", s.renderTokenLegacy)
		r.Post("/render-icons", s.renderIconBatch)
		r.Post("/render-svgs", s.renderSVGBatch)
		r.Post("/render-tokens", s.renderTokenBatchLegacy)
		r.Post("/render-svg-static", s.renderSVGStatic)
		r.Post("/normalize-svg", s.normalizeSVG)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}

// previewIndex serves the prebuilt preview bundle's entry page, which the
// headless browser navigates back to.
func (s *Server) previewIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.cfg.Preview.Dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.Error(w, "preview bundle not built", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, index)
}

// iconAsset exposes the embedded icon sources so the preview page can render
// them client-side.
func (s *Server) iconAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	source, err := icons.Source(name)
	if err != nil {
		http.Error(w, "unknown icon", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write([]byte(source)); err != nil {
		s.logger.Error("write icon asset failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware enforces the fixed-window cap per client address and
// advertises the window state on every response.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.limiter.Allow(clientAddr(r))
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
		if !d.Allowed {
			telemetry.ObserveRateLimited()
			retry := int(time.Until(d.Reset).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			h.Set("Retry-After", strconv.Itoa(retry))
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
