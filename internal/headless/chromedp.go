package headless

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/telemetry"
)

// targetSelector addresses whatever element the selection script marked.
const targetSelector = `[data-render-target]`

// svgReadyExpr is the bounded-wait condition: an <svg> with non-empty content.
const svgReadyExpr = `(() => {
	const el = document.querySelector('svg');
	return !!el && el.innerHTML.trim().length > 0;
})()`

// chromedpRunner drives one page lifecycle on the session's shared browser.
type chromedpRunner struct {
	session *Session
}

// ensureBrowser launches the headless browser exactly once, even under
// concurrent first renders. A launch failure is sticky for the session.
func (s *Session) ensureBrowser() error {
	s.browserOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("hide-scrollbars", true),
		)
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			s.browserErr = fmt.Errorf("chromedp warmup: %w", err)
			return
		}
		s.browserCtx = browserCtx
		s.browserCancel = browserCancel
		s.allocCancel = allocCancel
		s.logger.Info("headless browser started")
	})
	return s.browserErr
}

func (r *chromedpRunner) run(ctx context.Context, pageURL string, kind render.Kind, mode captureMode) (string, error) {
	s := r.session
	if err := s.ensureBrowser(); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	// Cleanup never fails the render: a close error after a captured result
	// must not mask that result.
	defer func() {
		if err := chromedp.Cancel(tabCtx); err != nil {
			s.logger.Debug("page close failed", zap.Error(err))
		}
		cancelTab()
	}()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	telemetry.IncActivePages()
	defer telemetry.DecActivePages()

	if err := chromedp.Run(taskCtx,
		// Captures must sit on an opaque white background regardless of the
		// page theme; the embedding pipeline assumes white-bg/black-glyph.
		emulation.SetDefaultBackgroundColorOverride().
			WithColor(&cdp.RGBA{R: 255, G: 255, B: 255, A: 1}),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("navigate preview page: %w", err)
	}

	// Bounded wait for a populated <svg>; timing out downgrades to a warning
	// and the render proceeds best-effort.
	err := chromedp.Run(taskCtx,
		chromedp.Poll(svgReadyExpr, nil, chromedp.WithPollingTimeout(s.cfg.ElementWait)))
	if err != nil {
		if !errors.Is(err, chromedp.ErrPollingTimeout) {
			return "", fmt.Errorf("wait for svg content: %w", err)
		}
		s.logger.Warn("svg content wait timed out, proceeding",
			zap.String("url", pageURL))
	}

	var found bool
	if err := chromedp.Run(taskCtx,
		chromedp.Evaluate(selectionScript(kind), &found)); err != nil {
		return "", fmt.Errorf("evaluate element selection: %w", err)
	}
	if !found {
		return "", fmt.Errorf("%w %q", ErrNoElement, kind)
	}

	switch mode {
	case captureMarkup:
		var outer string
		if err := chromedp.Run(taskCtx,
			chromedp.OuterHTML(targetSelector, &outer, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("serialize element markup: %w", err)
		}
		return outer, nil
	default:
		var buf []byte
		if err := chromedp.Run(taskCtx,
			chromedp.Screenshot(targetSelector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("capture element screenshot: %w", err)
		}
		if len(buf) == 0 {
			return "", ErrEmptyScreenshot
		}
		return base64.StdEncoding.EncodeToString(buf), nil
	}
}

// forwardCancel propagates the caller's cancellation into the chromedp task.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
