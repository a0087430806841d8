package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/keywarden/internal/app"
	"github.com/dropDatabas3/keywarden/internal/config"
	httpx "github.com/dropDatabas3/keywarden/internal/http"
	"github.com/dropDatabas3/keywarden/internal/observability/logger"
)

func main() {
	var (
		flagConfig  = flag.String("config", "", "ruta a config.yaml (opcional, env manda)")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "keywarden",
		Version:     app.Version,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg)
	if err != nil {
		logger.L().Fatal("wiring failed", logger.Err(err))
	}
	defer container.Close()

	router, err := container.Router()
	if err != nil {
		logger.L().Fatal("router failed", logger.Err(err))
	}

	logger.L().Info("keywarden listening",
		logger.Any("addr", cfg.Server.Addr),
		logger.Any("storage_driver", cfg.Storage.Driver),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpx.Start(gctx, cfg.Server.Addr, router)
	})

	if err := g.Wait(); err != nil {
		logger.L().Fatal("server failed", logger.Err(err))
	}
	logger.L().Info("shutdown complete")
}
