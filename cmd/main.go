package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"object-detect/config"
	httpapi "object-detect/internal/api/http"
	"object-detect/internal/api/telegram"
	"object-detect/internal/container"
	"object-detect/internal/domain/port"
	"object-detect/internal/infrastructure/onnx"
	"object-detect/internal/infrastructure/storage"
	"object-detect/internal/infrastructure/vision"
	"object-detect/internal/infrastructure/yolo"
	"object-detect/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

// run собирает сервис и обслуживает запросы до отмены ctx.
// Все ресурсы закрываются через defer и при ошибке запуска.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer closeLog()

	files := storage.NewFileStore(cfg.UploadDir, cfg.ResultsDir)
	if err := files.EnsureDirs(); err != nil {
		logger.WithError(err).Error("failed to create working directories")
		return err
	}

	detector, err := newDetector(cfg)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"backend": cfg.DetectorBackend,
			"model":   cfg.ModelPath,
		}).Error("failed to load model")
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer detector.Close()
	logger.WithField("backend", cfg.DetectorBackend).Info("model loaded")

	jobs, closeJobs, err := newJobRepository(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to open job store")
		return err
	}
	defer closeJobs()

	// Без токена уведомления просто отключены.
	var notifier port.ResultNotifier
	if cfg.NotifierEnabled() {
		n, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.WithError(err).Error("failed to create telegram notifier")
			return err
		}
		notifier = n
	}

	c := container.New(container.Deps{
		Jobs:      jobs,
		Files:     files,
		Media:     vision.NewMediaCodec(cfg.VideoCodec),
		Detector:  detector,
		Annotator: vision.NewAnnotator(),
		Notifier:  notifier,
		Logger:    logger,
	})

	handler := httpapi.NewHandler(c.DetectionService, c.JobService, files, logger)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, logger),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server is running")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
	return nil
}

func newDetector(cfg *config.Config) (port.ObjectDetector, error) {
	labels, err := yolo.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	switch cfg.DetectorBackend {
	case config.BackendONNX:
		return onnx.NewDetector(cfg.ONNXLibraryPath, cfg.ModelPath, labels)
	default:
		return vision.NewGoCVDetector(cfg.ModelPath, labels)
	}
}

func newJobRepository(cfg *config.Config) (port.JobRepository, func() error, error) {
	if cfg.JobStore == config.StoreSQLite {
		repo, err := storage.NewSQLiteJobRepository(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
	return storage.NewMemoryJobRepository(), func() error { return nil }, nil
}
