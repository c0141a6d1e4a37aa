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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/picmap/internal/logger"
	"github.com/kailas-cloud/picmap/internal/metrics"
	chiTransport "github.com/kailas-cloud/picmap/internal/transport/chi"
	healthuc "github.com/kailas-cloud/picmap/internal/usecase/health"
	"github.com/kailas-cloud/picmap/internal/usecase/session"
)

func runServe(ctx context.Context, env string) error {
	a, err := newApp(ctx, env, true)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	cfg := a.cfg

	sessions := session.NewManager(a.search, session.Options{
		TTL:         time.Duration(cfg.Sessions.TTLSec) * time.Second,
		MaxSessions: cfg.Sessions.MaxSessions,
	})
	runCtx, stopSessions := context.WithCancel(logpkg.ContextWithLogger(ctx, logger))
	sessionsDone := make(chan struct{})
	go func() {
		defer close(sessionsDone)
		sessions.Run(runCtx)
	}()

	healthSvc := healthuc.New(a.store, a.elastic).WithBreaker(a.backend)
	server := chiTransport.NewServer(a.search, sessions, healthSvc, a.elastic, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, chiTransport.AuthOptions{PublicRead: cfg.Auth.PublicRead}))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		logger.Error("HTTP server error", zap.Error(err))
		stopSessions()
		<-sessionsDone
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	stopSessions()
	<-sessionsDone

	logger.Info("Server stopped gracefully")
	return nil
}
