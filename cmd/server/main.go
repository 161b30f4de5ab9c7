package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/pothole-api/internal/config"
	"github.com/Brownie44l1/pothole-api/internal/handlers"
	"github.com/Brownie44l1/pothole-api/internal/logging"
	"github.com/Brownie44l1/pothole-api/internal/model"
	"github.com/Brownie44l1/pothole-api/internal/segment"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile, Development: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("loading model", "path", cfg.ModelPath)
	modelServer, err := model.NewServer(model.Config{
		ModelPath:         cfg.ModelPath,
		MetadataPath:      cfg.MetadataPath,
		SharedLibraryPath: cfg.OnnxRuntimeLib,
		PoolSize:          cfg.PoolSize,
		IntraOpThreads:    cfg.IntraOpThreads,
	}, logger)
	if err != nil {
		logger.Fatalw("failed to initialize model server", "error", err)
	}
	defer modelServer.Close()

	opts := cfg.Options()
	opts.InputSize = modelServer.Metadata.ImageSize
	if opts.Class, err = segment.ParseClass(modelServer.Metadata.Classes[0]); err != nil {
		logger.Fatalw("unsupported model class", "error", err)
	}
	pipeline := segment.NewPipeline(modelServer, logger, opts)
	handler := handlers.NewHandler(pipeline, handlers.Limits{
		AllowedContentTypes: cfg.AllowedContentTypes,
		MaxUploadSize:       cfg.MaxUploadSize,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handlers.NewRouter(handler, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infow("server starting",
		"addr", srv.Addr,
		"class", opts.Class,
		"input_size", opts.InputSize,
		"threshold", cfg.ConfThreshold,
		"policy", cfg.SelectionPolicy,
		"sessions", cfg.PoolSize)
	logger.Info("endpoints: GET /health, POST /predict (multipart field \"file\")")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}
