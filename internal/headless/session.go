// Package headless renders icons and tokens by screenshotting the service's
// own preview page in a shared headless Chrome instance.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/telemetry"
)

// Sentinel failures surfaced by the render contract.
var (
	// ErrPreviewMissing means the static preview bundle has not been built;
	// every render fails deterministically until it exists.
	ErrPreviewMissing = errors.New("preview bundle not built")
	// ErrNoElement means no selectable icon/token element appeared on the page.
	ErrNoElement = errors.New("no element found for component")
	// ErrEmptyScreenshot means the browser produced a zero-byte capture.
	ErrEmptyScreenshot = errors.New("screenshot buffer is empty")
)

type captureMode int

const (
	captureImage captureMode = iota
	captureMarkup
)

func (m captureMode) String() string {
	if m == captureMarkup {
		return "markup"
	}
	return "image"
}

// Config controls the headless session.
type Config struct {
	// BaseURL is where the browser finds the service's preview page.
	BaseURL string
	// PreviewDir is the prebuilt static bundle on disk.
	PreviewDir string
	// NavTimeout bounds a whole page render.
	NavTimeout time.Duration
	// ElementWait bounds the wait for a non-empty <svg>; on timeout the
	// render proceeds best-effort.
	ElementWait time.Duration
	// MaxParallel caps concurrently open pages.
	MaxParallel int
	// PageOpensPerSec throttles page creation; zero disables throttling.
	PageOpensPerSec float64
	// BatchConcurrency caps in-flight items per batch; defaults to MaxParallel.
	BatchConcurrency int
}

// pageRunner executes one page lifecycle: navigate, select, capture. The
// indirection keeps the session's validation and scheduling testable without
// a browser.
type pageRunner interface {
	run(ctx context.Context, pageURL string, kind render.Kind, mode captureMode) (string, error)
}

// Session owns the process-wide headless browser. The browser is launched
// lazily on the first render and reused for the session's lifetime; pages,
// not the browser, are the unit of failure.
type Session struct {
	cfg    Config
	logger *zap.Logger
	runner pageRunner

	sem      chan struct{}
	pageRate *rate.Limiter

	browserOnce   sync.Once
	browserErr    error
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	previewOK atomic.Bool
}

// New constructs a Session. No browser process starts until the first render.
func New(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.ElementWait <= 0 {
		cfg.ElementWait = 10 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = cfg.MaxParallel
	}

	s := &Session{
		cfg:    cfg,
		logger: logger.Named("headless"),
		sem:    make(chan struct{}, cfg.MaxParallel),
	}
	if cfg.PageOpensPerSec > 0 {
		s.pageRate = rate.NewLimiter(rate.Limit(cfg.PageOpensPerSec), 1)
	}
	s.runner = &chromedpRunner{session: s}
	return s
}

// RenderToImage renders the component and returns its element screenshot as
// base64 PNG. Failures follow the empty-result contract: the payload is empty
// and the error describes the reason; no error ever escapes as a panic.
func (s *Session) RenderToImage(ctx context.Context, req render.Request) (string, error) {
	return s.renderOne(ctx, req, captureImage)
}

// RenderToMarkup renders the component and returns the selected element's
// outer HTML.
func (s *Session) RenderToMarkup(ctx context.Context, req render.Request) (string, error) {
	return s.renderOne(ctx, req, captureMarkup)
}

func (s *Session) renderOne(ctx context.Context, req render.Request, mode captureMode) (string, error) {
	// Validation happens before any page is opened; an invalid request must
	// not cause browser navigation.
	if err := req.Validate(); err != nil {
		return "", err
	}
	req = req.Normalized()
	if err := s.checkPreview(); err != nil {
		return "", err
	}
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	if s.pageRate != nil {
		if err := s.pageRate.Wait(ctx); err != nil {
			return "", fmt.Errorf("page open rate wait: %w", err)
		}
	}

	start := time.Now()
	payload, err := s.runner.run(ctx, s.previewURL(req), req.Kind, mode)
	telemetry.ObserveRender(string(req.Kind), err == nil, time.Since(start))
	if err != nil {
		s.logger.Warn("render failed",
			zap.String("icon", req.Icon),
			zap.String("kind", string(req.Kind)),
			zap.String("mode", mode.String()),
			zap.Error(err))
		return "", err
	}
	return payload, nil
}

func (s *Session) previewURL(req render.Request) string {
	q := url.Values{}
	q.Set("iconType", req.Icon)
	q.Set("componentType", string(req.Kind))
	q.Set("size", string(req.Size))
	return s.cfg.BaseURL + "/?" + q.Encode()
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (s *Session) release() {
	select {
	case <-s.sem:
	default:
	}
}

// Close tears down the browser and allocator. Safe to call when the browser
// was never launched, and safe to call more than once.
func (s *Session) Close() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}
