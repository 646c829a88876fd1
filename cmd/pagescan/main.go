package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
	"golang.org/x/sync/errgroup"

	gcsadapter "github.com/ericfisherdev/pagescan/internal/adapter/driven/gcs"
	"github.com/ericfisherdev/pagescan/internal/adapter/driven/imagefs"
	sqliteadapter "github.com/ericfisherdev/pagescan/internal/adapter/driven/sqlite"
	visionadapter "github.com/ericfisherdev/pagescan/internal/adapter/driven/vision"
	httphandler "github.com/ericfisherdev/pagescan/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/pagescan/internal/adapter/driving/web"
	"github.com/ericfisherdev/pagescan/internal/application"
	"github.com/ericfisherdev/pagescan/internal/config"
	"github.com/ericfisherdev/pagescan/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Seed the environment from .env when present; real env vars win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// 2. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"image_dir", cfg.ImageDir,
		"gcs_bucket", cfg.GCSBucket,
		"ocr_enabled", cfg.HasVisionKey(),
		"max_image_bytes", cfg.MaxImageBytes,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer, logger); err != nil {
		return err
	}
	logger.Info("database ready", "path", db.Path())

	// 5. Wire driven adapters.
	resultStore := sqliteadapter.NewResultRepo(db)

	imageStore, closeImages, err := openImageStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeImages()

	// A nil detector keeps the server up with OCR answering "unavailable".
	var detector driven.TextDetector
	if cfg.HasVisionKey() {
		visionClient, err := visionadapter.New(ctx, cfg.VisionAPIKey, cfg.VisionEndpoint, logger)
		if err != nil {
			return err
		}
		detector = visionClient
	} else {
		logger.Warn("PAGESCAN_VISION_API_KEY not configured, OCR requests will fail until it is set")
	}

	// 6. Application services.
	tokenSvc := application.NewTokenService(cfg.Credential(), logger)
	ocrSvc := application.NewOCRService(imageStore, resultStore, detector, cfg.MaxImageBytes, logger)
	exportSvc := application.NewExportService(resultStore, imageStore, logger)

	// 7. HTTP API and web GUI share one mux.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(db, tokenSvc, ocrSvc, exportSvc, resultStore, imageStore,
		webhandler.RenderMarkdown, cfg.CookieSecure, logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(tokenSvc, resultStore, cfg.CookieSecure, logger)
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // covers the OCR provider round trip
		IdleTimeout:       120 * time.Second,
	}

	// 8. Serve until the signal context is cancelled, then drain.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// openImageStore selects Cloud Storage when a bucket is configured and the
// local image directory otherwise. The returned func releases the client.
func openImageStore(ctx context.Context, cfg *config.Config) (driven.ImageStore, func(), error) {
	if cfg.UsesGCS() {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("image store: gcs", "bucket", cfg.GCSBucket, "prefix", cfg.GCSPrefix)
		return gcsadapter.New(client, cfg.GCSBucket, cfg.GCSPrefix), func() { _ = client.Close() }, nil
	}

	store, err := imagefs.New(cfg.ImageDir)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("image store: local", "dir", store.Dir())
	return store, func() {}, nil
}
