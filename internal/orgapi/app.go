package orgapi

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"orgmgr/internal/lifecycle"
	"orgmgr/pkg/middleware"
	"orgmgr/pkg/tokens"
)

// Service is the lifecycle surface the HTTP layer drives.
type Service interface {
	Create(ctx context.Context, name, email, password string) (lifecycle.Created, error)
	Get(ctx context.Context, name string) (lifecycle.View, error)
	Update(ctx context.Context, claim tokens.Claim, req lifecycle.UpdateRequest) (lifecycle.View, error)
	Delete(ctx context.Context, name string, claim tokens.Claim) (lifecycle.Deleted, error)
	Login(ctx context.Context, email, password string) (lifecycle.Token, error)
}

// Config holds HTTP specific configuration.
type Config struct {
	CORSOrigins []string
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
	// Tracing wraps the router, typically middleware.Tracing.
	Tracing func(http.Handler) http.Handler
}

// App is the HTTP application container. Handlers are methods on it.
type App struct {
	log      *zap.SugaredLogger
	svc      Service
	verifier middleware.Verifier
	cfg      Config
}

func New(log *zap.SugaredLogger, svc Service, verifier middleware.Verifier, cfg Config) *App {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}
	return &App{log: log, svc: svc, verifier: verifier, cfg: cfg}
}
