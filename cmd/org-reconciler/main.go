// cmd/org-reconciler/main.go runs one reconciliation pass over the operation journal and exits.
package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"orgmgr/internal/backend"
	"orgmgr/pkg/config"
	"orgmgr/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTTL+time.Minute)
	defer cancel()

	stores, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Errorw("storage", "err", err)
		return 1
	}
	defer stores.Close(context.Background())

	mgr, _, err := backend.NewManager(ctx, cfg, stores, prometheus.NewRegistry(), log)
	if err != nil {
		log.Errorw("lifecycle", "err", err)
		return 1
	}
	n, err := mgr.Reconcile(ctx)
	if err != nil {
		log.Errorw("reconcile finished with errors", "resolved", n, "err", err)
		return 1
	}
	log.Infow("reconcile finished", "resolved", n)
	return 0
}
