// Package main runs the icon/token rendering HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/api"
	"github.com/iconsearch/token-renderer/internal/config"
	"github.com/iconsearch/token-renderer/internal/headless"
	"github.com/iconsearch/token-renderer/internal/logging"
	"github.com/iconsearch/token-renderer/internal/ratelimit"
	"github.com/iconsearch/token-renderer/internal/render"
)

const limiterSweepInterval = time.Minute

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
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

	limiter := ratelimit.New(cfg.RateLimit.PerMinute)
	go limiter.Sweep(ctx, limiterSweepInterval)

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

	static := render.NewStatic(logger)

	apiServer := api.NewServer(session, static, limiter, cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
