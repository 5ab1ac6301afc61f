// Package pipeline runs offline batch renders: capture, normalize, store,
// notify.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/imaging"
	"github.com/iconsearch/token-renderer/internal/publish"
	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/storage"
	svgnorm "github.com/iconsearch/token-renderer/internal/svg"
)

const (
	pngContentType = "image/png"
	svgContentType = "image/svg+xml"
)

// Renderer is the image-producing side of the headless session.
type Renderer interface {
	RenderToImage(ctx context.Context, req render.Request) (string, error)
}

// SVGRenderer is the browserless static path. Optional; when present the
// pipeline stores a normalized SVG artifact alongside each icon's PNG.
type SVGRenderer interface {
	RenderToSVG(iconName string, size icons.Size) string
}

// Config tunes one pipeline run.
type Config struct {
	// Prefix is prepended to every stored object name.
	Prefix string
	// TargetSize is the normalized square dimension in pixels.
	TargetSize int
	// Concurrency caps in-flight items; defaults to 4.
	Concurrency int
}

// Summary counts the outcomes of a run.
type Summary struct {
	Rendered  int
	Stored    int
	Published int
	Failed    int
}

// Pipeline renders icons and persists the normalized artifacts.
type Pipeline struct {
	cfg      Config
	renderer Renderer
	svg      SVGRenderer
	store    storage.Provider
	pub      publish.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// New assembles a pipeline. Nil store and publisher default to no-ops.
func New(cfg Config, renderer Renderer, store storage.Provider, pub publish.Publisher, logger *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = imaging.DefaultTargetSize
	}
	if store == nil {
		store = storage.NoOp{}
	}
	if pub == nil {
		pub = publish.NoOp{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		renderer: renderer,
		store:    store,
		pub:      pub,
		logger:   logger.Named("pipeline"),
		now:      time.Now,
	}
}

// WithSVGRenderer enables the additional static SVG artifact for icon renders.
func (p *Pipeline) WithSVGRenderer(r SVGRenderer) *Pipeline {
	p.svg = r
	return p
}

// Run processes every request. Items fail independently; the summary reports
// how far each stage got.
func (p *Pipeline) Run(ctx context.Context, reqs []render.Request) Summary {
	var rendered, stored, published, failed atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(p.cfg.Concurrency)
	for _, req := range reqs {
		req := req.Normalized()
		g.Go(func() error {
			if err := p.processOne(ctx, req, &rendered, &stored, &published); err != nil {
				failed.Add(1)
				p.logger.Warn("pipeline item failed",
					zap.String("icon", req.Icon),
					zap.String("kind", string(req.Kind)),
					zap.String("size", string(req.Size)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return Summary{
		Rendered:  int(rendered.Load()),
		Stored:    int(stored.Load()),
		Published: int(published.Load()),
		Failed:    int(failed.Load()),
	}
}

func (p *Pipeline) processOne(ctx context.Context, req render.Request, rendered, stored, published *atomic.Int64) error {
	encoded, err := p.renderer.RenderToImage(ctx, req)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	rendered.Add(1)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode capture: %w", err)
	}
	normalized, err := imaging.NormalizePNG(raw, p.cfg.TargetSize)
	if err != nil {
		return fmt.Errorf("normalize capture: %w", err)
	}

	if err := p.persist(ctx, req, "png", pngContentType, normalized, stored, published); err != nil {
		return err
	}

	// The static path covers plain icons only; tokens exist solely as the
	// wrapped component on the preview page.
	if p.svg != nil && req.Kind == render.KindIcon {
		markup := p.svg.RenderToSVG(req.Icon, req.Size)
		if markup != "" {
			canonical := svgnorm.Normalize(svgnorm.Extract(markup), p.cfg.TargetSize)
			if err := p.persist(ctx, req, "svg", svgContentType, []byte(canonical), stored, published); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, req render.Request, ext, contentType string, data []byte, stored, published *atomic.Int64) error {
	objectName := p.objectName(req, ext)
	uri, err := p.store.Put(ctx, objectName, contentType, data)
	if err != nil {
		return fmt.Errorf("store %s: %w", objectName, err)
	}
	stored.Add(1)

	if _, err := p.pub.Publish(ctx, publish.Notification{
		IconName:      req.Icon,
		ComponentType: string(req.Kind),
		Size:          string(req.Size),
		ObjectURI:     uri,
		ContentType:   contentType,
		RenderedAt:    p.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("publish %s: %w", objectName, err)
	}
	published.Add(1)
	return nil
}

func (p *Pipeline) objectName(req render.Request, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", req.Icon, req.Size, ext)
	return path.Join(p.cfg.Prefix, string(req.Kind), name)
}
