package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	httpadapter "application-pdf/internal/adapter/http"
	"application-pdf/internal/adapter/repository"
	"application-pdf/internal/infrastructure/config"
	"application-pdf/internal/infrastructure/logger"
	"application-pdf/internal/infrastructure/metrics"
	"application-pdf/internal/infrastructure/migration"
	"application-pdf/internal/infrastructure/token"
	"application-pdf/internal/model"
	"application-pdf/internal/usecase"
	infra "application-pdf/pkg/infrastructure"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)), nil
}

func newFileStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (usecase.FileStore, error) {
	if cfg.Driver == "s3" {
		s, err := infra.NewS3Store(ctx, infra.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
			Prefix:       cfg.S3.Prefix,
		}, log.Named("s3"))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return infra.NewLocalStore(cfg.Dir, log.Named("storage"))
}

func newRenderer(cfg config.RendererConfig, log *zap.Logger) usecase.Renderer {
	if cfg.Engine == "chromedp" {
		return infra.NewChromedpRenderer(infra.ChromedpConfig{
			ExecPath:  cfg.ChromeExecPath,
			Timeout:   cfg.Timeout,
			NoSandbox: cfg.ChromeNoSandbox,
		}, log.Named("chromedp"))
	}
	return infra.NewFPDFRenderer(log.Named("fpdf"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.OpenDB(ctx, infra.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := migration.RunMigrations(ctx, db, log.Named("migration")); err != nil {
			return err
		}
	}

	store, err := newFileStore(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("create file store: %w", err)
	}
	renderer := newRenderer(cfg.Renderer, log)
	m := metrics.New()

	repo := repository.NewSubmissionsRepo(db, log.Named("repository"))
	proc := usecase.NewProcessor(renderer, repo, store, usecase.ProcessorConfig{
		Workers:     cfg.Processing.Workers,
		MaxAttempts: cfg.Processing.MaxAttempts,
		Backoff:     cfg.Processing.RetryBackoff,
		StaleAfter:  cfg.Processing.StaleAfter,
	}, m, log.Named("processor"))
	svc := usecase.NewService(model.NewValidator(cfg.Upload.MaxFileSize), repo, store, proc, m, log.Named("service"))

	signer := token.NewDownloadSigner(cfg.Download.Secret, cfg.Download.TTL, cfg.App.Name)
	h := httpadapter.NewHandler(svc, signer, cfg.Upload.MaxFileSize, cfg.HTTP.PublicURL)
	app := httpadapter.NewApp(httpadapter.ServerConfig{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.BodyLimit(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, h, m, db.PingContext, log.Named("http"))

	if _, err := proc.ResumePending(ctx, 500); err != nil {
		log.Warn("resuming pending submissions failed", zap.Error(err))
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("renderer", renderer.Name()))
		listenErr <- app.Listen(cfg.HTTP.Addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := proc.Wait(waitCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	log.Info("stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := infra.OpenDB(cmd.Context(), infra.DBConfig{URL: cfg.Database.URL})
	if err != nil {
		return err
	}
	defer db.Close()
	return migration.RunMigrations(cmd.Context(), db, log.Named("migration"))
}
