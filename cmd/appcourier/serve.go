package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appcourier/appcourier/internal/api"
	"github.com/appcourier/appcourier/internal/app"
	"github.com/appcourier/appcourier/internal/archive"
	"github.com/appcourier/appcourier/internal/broker"
	"github.com/appcourier/appcourier/internal/catalog/playstore"
	"github.com/appcourier/appcourier/internal/fetcher"
	"github.com/appcourier/appcourier/internal/history"
	"github.com/appcourier/appcourier/internal/infra/config"
	"github.com/appcourier/appcourier/internal/infra/logger"
	"github.com/appcourier/appcourier/internal/janitor"
	"github.com/appcourier/appcourier/internal/mirror"
	"github.com/appcourier/appcourier/internal/session"
	"github.com/appcourier/appcourier/internal/transport/gateway"
	"github.com/labstack/echo/v5"
	"github.com/spf13/afero"
)

func runServe() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, err := newHistoryStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("history backend: %w", err)
	}
	defer hist.Close()

	fs := afero.NewOsFs()

	svc := broker.NewService(cfg, log, broker.Deps{
		Transport: gateway.New(cfg.Chat.BaseURL, cfg.Chat.Token, cfg.Download.FetchTimeout),
		Catalog:   playstore.New(cfg.Catalog.BaseURL, cfg.Catalog.Lang, cfg.Catalog.Country, cfg.Catalog.ResultLimit),
		Sessions:  session.NewStore(cfg.Download.SessionTTL),
		Prober:    mirror.NewProber(cfg.Sources(), cfg.Download.ProbeTimeout, log),
		Fetcher:   fetcher.New(fs, cfg.Download.FetchTimeout, cfg.Download.ProgressStep, log),
		Inspector: archive.NewInspector(cfg.Download.AuxSizeLimit),
		History:   hist,
		Fs:        fs,
	})

	appCtx := app.NewContext(cfg, log)
	appCtx.Broker = svc
	appCtx.History = hist

	j := janitor.New(fs, cfg.Download.TempDir, cfg.Download.SweepInterval, cfg.Download.SweepMaxAge, log)
	go j.Run(ctx)

	e := echo.New()
	api.RegisterRoutes(e, appCtx)

	sc := echo.StartConfig{Address: ":" + cfg.Port, GracefulTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on :%s", cfg.Port)
		errCh <- sc.Start(ctx, e)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	return <-errCh
}

func newHistoryStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "postgres":
		return history.NewPostgresStore(ctx, cfg.History.PostgresDSN)
	default:
		return history.NewSQLiteStore(cfg.History.SQLitePath)
	}
}
