// pkg/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"orgmgr/pkg/problems"
	"orgmgr/pkg/tokens"
)

// Verifier validates a raw bearer token.
type Verifier interface {
	Verify(raw string) (tokens.Claim, error)
}

type ctxClaimKey struct{}

// BearerAuth rejects requests without a valid bearer token and stores the verified claim
// in the request context.
func BearerAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				problems.Write(w, problems.New(http.StatusUnauthorized, "unauthorized", "missing bearer token"))
				return
			}
			raw := strings.TrimSpace(authz[len("Bearer "):])
			claim, err := v.Verify(raw)
			if err != nil {
				problems.Write(w, problems.New(http.StatusUnauthorized, "unauthorized", "invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaim(r.Context(), claim)))
		})
	}
}

func WithClaim(ctx context.Context, c tokens.Claim) context.Context {
	return context.WithValue(ctx, ctxClaimKey{}, c)
}

// ClaimFrom returns the claim stored by BearerAuth.
func ClaimFrom(ctx context.Context) (tokens.Claim, bool) {
	c, ok := ctx.Value(ctxClaimKey{}).(tokens.Claim)
	return c, ok
}
