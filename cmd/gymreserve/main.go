// Package main запускает HTTP-сервер сервиса бронирования спортивных объектов.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/gymreserve/internal/auth"
	"github.com/mmeshcher/gymreserve/internal/catalog"
	"github.com/mmeshcher/gymreserve/internal/config"
	"github.com/mmeshcher/gymreserve/internal/gateway"
	"github.com/mmeshcher/gymreserve/internal/handler"
	"github.com/mmeshcher/gymreserve/internal/middleware"
	"github.com/mmeshcher/gymreserve/internal/repository"
	"github.com/mmeshcher/gymreserve/internal/service"
	"github.com/mmeshcher/gymreserve/internal/workflow"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		repo, err = repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
	} else {
		sugar.Warn("DATABASE_URI is not set, sessions and drafts are kept in memory")
		repo = repository.NewMemoryRepository()
	}

	var (
		facilities  workflow.FacilityLookup
		instruments workflow.InstrumentLister
	)
	if cfg.BackendAddress != "" {
		c := catalog.NewClient(cfg.BackendAddress, cfg.SubmitTimeout)
		facilities, instruments = c, c
	} else {
		sugar.Warn("BACKEND_ADDRESS is not set, using built-in catalog")
		c := catalog.NewStatic()
		facilities, instruments = c, c
	}

	submitter := gateway.NewClient(cfg.BackendAddress, cfg.SubmitTimeout)
	authClient := auth.NewClient(cfg.BackendAddress, cfg.SubmitTimeout)

	wf := workflow.New(facilities, instruments, submitter, logger)

	svc := service.NewService(repo, authClient, wf, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware([]byte(cfg.SessionHashKey), []byte(cfg.SessionBlockKey), svc, logger)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting gymreserve server", "addr", cfg.RunAddress, "backend", cfg.BackendAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка сервера)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		// Отправка бронирования не прерывается, поэтому ждём дольше таймаута шлюза.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SubmitTimeout+5*time.Second)
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
