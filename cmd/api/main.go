package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Haleralex/catalog/internal/config"
	"github.com/Haleralex/catalog/internal/container"
)

func main() {
	var (
		configPath string
		configName string
	)
	flag.StringVar(&configPath, "config-path", "configs", "Directory with the config file")
	flag.StringVar(&configName, "config", "config", "Config file name without extension")
	flag.Parse()

	// .env опционален: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", slog.String("error", err.Error()))
	}

	cfg, err := config.Load(configPath, configName)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := container.New(cfg)
	if err := app.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	runErr := app.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		app.Logger().Error("Shutdown failed", slog.String("error", err.Error()))
	}

	if runErr != nil {
		app.Logger().Error("Server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}

	app.Logger().Info("Server stopped gracefully")
}
