package headless

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iconsearch/token-renderer/internal/render"
)

// RenderImageBatch renders every item concurrently and returns one result per
// input, in input order. Items fail independently; a bad identifier never
// aborts its siblings.
func (s *Session) RenderImageBatch(ctx context.Context, reqs []render.Request) []render.BatchResult {
	return s.renderBatch(ctx, reqs, captureImage)
}

// RenderMarkupBatch is RenderImageBatch for outer-HTML capture.
func (s *Session) RenderMarkupBatch(ctx context.Context, reqs []render.Request) []render.BatchResult {
	return s.renderBatch(ctx, reqs, captureMarkup)
}

func (s *Session) renderBatch(ctx context.Context, reqs []render.Request, mode captureMode) []render.BatchResult {
	results := make([]render.BatchResult, len(reqs))

	g := &errgroup.Group{}
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		i := i
		req := req.Normalized()
		g.Go(func() error {
			payload, err := s.renderOne(ctx, req, mode)
			results[i] = render.BatchResult{Request: req, Payload: payload, Err: err}
			// Per-item failures are carried in the result, never returned to
			// the group, so sibling renders keep running.
			return nil
		})
	}
	// Wait never returns an error here; the group exists for the join and the
	// concurrency cap.
	_ = g.Wait()
	return results
}
