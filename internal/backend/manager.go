package backend

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"orgmgr/internal/authz"
	"orgmgr/internal/lifecycle"
	"orgmgr/pkg/config"
	"orgmgr/pkg/credentials"
	"orgmgr/pkg/tenants"
	"orgmgr/pkg/tokens"
)

// NewManager builds the lifecycle manager over s and the token issuer it signs with.
func NewManager(ctx context.Context, cfg config.Config, s *Stores, reg prometheus.Registerer, log *zap.SugaredLogger) (*lifecycle.Manager, *tokens.Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, nil, fmt.Errorf("JWT_SECRET is required")
	}
	policy, err := authz.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	issuer := tokens.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL)
	mgr := lifecycle.New(lifecycle.Deps{
		Registry:    s.Registry,
		Admins:      s.Admins,
		Journal:     s.Journal,
		Collections: s.Collections,
		Locker:      s.Locker,
		Hasher:      credentials.NewHasher(cfg.BcryptCost),
		Tokens:      issuer,
		Authorizer:  policy,
		Naming:      tenants.Naming{Prefix: cfg.CollectionPrefix},
		LockTTL:     cfg.LockTTL,
		Metrics:     lifecycle.NewMetrics(reg),
		Log:         log,
	})
	return mgr, issuer, nil
}
