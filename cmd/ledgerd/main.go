package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"omnia/internal/bootstrap"
	"omnia/internal/config"
	"omnia/internal/httpserver"
	"omnia/internal/ledger"
	"omnia/internal/logx"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	factory, ping, cleanup, err := bootstrap.BuildSessionFactory(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap session factory", zap.Error(err))
	}
	defer cleanup()

	idem, closeIdem, err := bootstrap.BuildIdempotency(cfg)
	if err != nil {
		logger.Fatal("bootstrap idempotency", zap.Error(err))
	}
	defer closeIdem()

	svc := ledger.NewService(factory, idem, logger)
	srv := httpserver.NewServer(svc, ping)
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
