package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/data"
	"github.com/KotFed0t/crypto_portfolio_api/data/cache"
	"github.com/KotFed0t/crypto_portfolio_api/data/repository"
	"github.com/KotFed0t/crypto_portfolio_api/internal/auth"
	"github.com/KotFed0t/crypto_portfolio_api/internal/externalApi/marketApi"
	"github.com/KotFed0t/crypto_portfolio_api/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/crypto_portfolio_api/internal/scheduler"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service/authService"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service/portfolioService"
	"github.com/KotFed0t/crypto_portfolio_api/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	marketApiClient := marketApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	authSrv := authService.New(cfg, pgRepo, tokenManager)
	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, marketApiClient, reportGenerator)

	sched := scheduler.New()
	sched.NewIntervalJob("sync asset prices", portfolioSrv.SyncAssetPrices, cfg.Jobs.PriceSyncInterval, true)
	sched.Start()
	defer sched.Stop()

	controller := rest.NewController(cfg, authSrv, portfolioSrv)
	router := rest.NewRouter(cfg, controller, authSrv)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		slog.Info("http server started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.String("err", err.Error()))
		}
	}()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
