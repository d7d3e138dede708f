// cmd/org-service/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"orgmgr/internal/backend"
	"orgmgr/internal/orgapi"
	"orgmgr/pkg/config"
	"orgmgr/pkg/logger"
	"orgmgr/pkg/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	stores, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalw("storage", "err", err)
	}
	mgr, issuer, err := backend.NewManager(ctx, cfg, stores, prometheus.DefaultRegisterer, log)
	if err != nil {
		log.Fatalw("lifecycle", "err", err)
	}
	if cfg.ReconcileOnStart {
		if n, err := mgr.Reconcile(ctx); err != nil {
			log.Warnw("reconcile", "resolved", n, "err", err)
		} else if n > 0 {
			log.Infow("reconciled interrupted operations", "resolved", n)
		}
	}
	if _, err := orgapi.ImportSeed(ctx, mgr, log, cfg.SeedFile); err != nil {
		log.Warnw("seed", "err", err)
	}
	cancel()

	app := orgapi.New(log, mgr, issuer, orgapi.Config{
		CORSOrigins: cfg.CORSOrigins,
		Tracing:     middleware.Tracing(cfg, log),
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: app.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("org-service listening", "addr", cfg.HTTPAddr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
	_ = middleware.ShutdownTracing(shutdownCtx)
	if err := stores.Close(shutdownCtx); err != nil {
		log.Warnw("close storage", "err", err)
	}
	log.Infow("org-service stopped")
}
