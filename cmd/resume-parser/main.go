// The resume-parser service accepts PDF resume uploads, runs the dual
// OCR extraction pipeline against them and stores the validated JSON
// document per user.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/resumedocumentflow/internal/config"
	"github.com/Lllllllleong/resumedocumentflow/internal/gcp"
	"github.com/Lllllllleong/resumedocumentflow/internal/parser"
	"github.com/Lllllllleong/resumedocumentflow/internal/server"
	"github.com/Lllllllleong/resumedocumentflow/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Local development convenience; in deployment the environment is the
	// source of truth and no .env file exists.
	_ = godotenv.Load()

	if err := run(logger); err != nil {
		logger.Error("Service terminated.", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VisionModel, cfg.ReconcilerModel)
	if err != nil {
		return err
	}
	defer vertexClient.Close()

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}
	defer firestoreClient.Close()

	var archive server.Archiver
	if cfg.ArchiveBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return err
		}
		defer storageClient.Close()
		archive = store.NewArchive(storageClient, cfg.ArchiveBucket)
		logger.Info("Upload archiving enabled.", "bucket", cfg.ArchiveBucket)
	}

	pool := parser.NewWorkerPool(cfg.WorkerPoolSize)
	primary := parser.NewDocIntelStrategy(parser.DocIntelConfig{
		Endpoint: cfg.DocIntelEndpoint,
		APIKey:   cfg.DocIntelAPIKey,
		Timeout:  cfg.AdapterTimeout,
		Retries:  cfg.AdapterRetries,
	}, pool, logger)
	secondary := parser.NewVisionStrategy(vertexClient.VisionModel, pool, cfg.AdapterTimeout, cfg.AdapterRetries, cfg.VisionBatchSize, logger)
	combiner := parser.NewVertexCombiner(vertexClient.ReconcilerModel, pool, cfg.AdapterTimeout, logger)
	repairer := parser.NewVertexRepairer(vertexClient.RepairModel, pool, cfg.AdapterTimeout, logger)

	pipeline := parser.New(parser.Config{
		MaxFileSizeBytes:   cfg.MaxFileSizeBytes,
		PageCountThreshold: cfg.PageCountThreshold,
		AdapterTimeout:     cfg.AdapterTimeout,
		AdapterRetries:     cfg.AdapterRetries,
		VisionBatchSize:    cfg.VisionBatchSize,
	}, primary, secondary, combiner, repairer, logger)

	resumes := store.NewResumes(firestoreClient, cfg.FirestoreCollection)
	srv := server.New(pipeline, resumes, archive, cfg.APIToken, cfg.MaxFileSizeBytes, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Resume parser listening.", "port", cfg.Port, "pageCountThreshold", cfg.PageCountThreshold)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, draining connections.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
