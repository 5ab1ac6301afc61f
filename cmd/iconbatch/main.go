// Package main runs the offline batch pipeline: render every requested
// icon/token, normalize the captures, store them, and notify the indexer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/config"
	"github.com/iconsearch/token-renderer/internal/headless"
	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/logging"
	"github.com/iconsearch/token-renderer/internal/pipeline"
	"github.com/iconsearch/token-renderer/internal/publish"
	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	iconList := flag.String("icons", "all", `Comma-separated icon names, or "all" for the full corpus`)
	kindList := flag.String("kinds", "icon,token", "Comma-separated component kinds to render")
	sizeFlag := flag.String("size", "m", "Size token for every render")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reqs, err := buildRequests(*iconList, *kindList, *sizeFlag)
	if err != nil {
		logger.Fatal("invalid arguments", zap.Error(err))
	}

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("storage close failed", zap.Error(err))
		}
	}()

	pub, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
	}()

	session := headless.New(headless.Config{
		BaseURL:          cfg.Server.BaseURL,
		PreviewDir:       cfg.Preview.Dir,
		NavTimeout:       cfg.NavTimeout(),
		ElementWait:      cfg.ElementWait(),
		MaxParallel:      cfg.Headless.MaxParallel,
		PageOpensPerSec:  cfg.Headless.PageOpensPerSec,
		BatchConcurrency: cfg.Batch.Concurrency,
	}, logger)
	defer session.Close()

	p := pipeline.New(pipeline.Config{
		Prefix:      cfg.Storage.Prefix,
		TargetSize:  cfg.Render.TargetSize,
		Concurrency: cfg.Batch.Concurrency,
	}, session, store, pub, logger).
		WithSVGRenderer(render.NewStatic(logger))

	logger.Info("batch started", zap.Int("items", len(reqs)))
	summary := p.Run(ctx, reqs)
	logger.Info("batch finished",
		zap.Int("rendered", summary.Rendered),
		zap.Int("stored", summary.Stored),
		zap.Int("published", summary.Published),
		zap.Int("failed", summary.Failed))

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// buildRequests expands the CLI flags into one request per icon and kind.
func buildRequests(iconList, kindList, sizeFlag string) ([]render.Request, error) {
	size, err := icons.ParseSize(sizeFlag, icons.SizeM)
	if err != nil {
		return nil, err
	}

	var names []string
	if iconList == "all" {
		names = icons.Names()
	} else {
		for _, name := range strings.Split(iconList, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !icons.Has(name) {
				return nil, fmt.Errorf("unknown icon %q", name)
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no icons selected")
	}

	var kinds []render.Kind
	for _, raw := range strings.Split(kindList, ",") {
		kind, err := render.ParseKind(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}

	reqs := make([]render.Request, 0, len(names)*len(kinds))
	for _, name := range names {
		for _, kind := range kinds {
			reqs = append(reqs, render.Request{Icon: name, Kind: kind, Size: size})
		}
	}
	return reqs, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		return storage.NewGCS(ctx, cfg.Storage.GCS.Bucket, logger)
	case "local":
		return storage.NewLocal(cfg.Storage.Local.Dir)
	case "memory":
		return storage.NewMemory(), nil
	default:
		return storage.NoOp{}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (publish.Publisher, error) {
	switch cfg.Publish.Provider {
	case "pubsub":
		return publish.NewPubSub(ctx, cfg.Publish.ProjectID, cfg.Publish.TopicID)
	case "memory":
		return publish.NewMemory(), nil
	default:
		return publish.NoOp{}, nil
	}
}
