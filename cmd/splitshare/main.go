// Package main запускает HTTP-сервер сервиса совместных подписок.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/splitshare/splitshare-system/internal/config"
	"github.com/splitshare/splitshare-system/internal/gateway"
	"github.com/splitshare/splitshare-system/internal/handler"
	"github.com/splitshare/splitshare-system/internal/middleware"
	"github.com/splitshare/splitshare-system/internal/notifier"
	"github.com/splitshare/splitshare-system/internal/repository"
	"github.com/splitshare/splitshare-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var gatewayClient service.Gateway
	if cfg.GatewayAddress != "" {
		gatewayClient = gateway.NewClient(cfg.GatewayAddress, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	}

	svc := service.NewService(repo, gatewayClient, notifier.NewLogNotifier(logger), service.Options{
		MinWithdrawalCents: cfg.MinWithdrawal * 100,
		SweepInterval:      cfg.SweepInterval,
		SyncInterval:       cfg.SyncInterval,
	})
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-Webhook-Signature"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: corsHandler.Handler(h.SetupRouter()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фоновых процессов: завершение истёкших участий и сверка платежей
	g.Go(func() error {
		svc.StartExpirySweep(ctx)
		svc.StartPaymentSync(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting splitshare server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
