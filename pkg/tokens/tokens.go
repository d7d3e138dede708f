// Package tokens issues and verifies the bearer tokens carried by tenant admins.
package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken covers malformed, unsigned, expired and incomplete tokens.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultIssuer = "orgmgr"
	DefaultTTL    = 24 * time.Hour

	claimTenant = "org"
)

// Claim is the verified identity carried by a bearer token.
type Claim struct {
	AdminID    string
	TenantName string
	ExpiresAt  time.Time
}

// Issuer mints and verifies HS256 tokens.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, issuer string, ttl time.Duration) *Issuer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for adminID acting on tenant.
func (i *Issuer) Issue(adminID, tenant string) (string, Claim, error) {
	now := i.now()
	c := Claim{AdminID: adminID, TenantName: tenant, ExpiresAt: now.Add(i.ttl).Truncate(time.Second)}
	tok, err := jwt.NewBuilder().
		Issuer(i.issuer).
		Subject(adminID).
		IssuedAt(now).
		Expiration(c.ExpiresAt).
		Claim(claimTenant, tenant).
		Build()
	if err != nil {
		return "", Claim{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.key))
	if err != nil {
		return "", Claim{}, fmt.Errorf("sign token: %w", err)
	}
	return string(signed), c, nil
}

// Verify checks signature, issuer and expiry and extracts the claim.
func (i *Issuer) Verify(raw string) (Claim, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claim{}, ErrInvalidToken
	}
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, i.key),
		jwt.WithIssuer(i.issuer),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	v, _ := tok.Get(claimTenant)
	tenant, _ := v.(string)
	if tok.Subject() == "" || tenant == "" || tok.Expiration().IsZero() {
		return Claim{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return Claim{AdminID: tok.Subject(), TenantName: tenant, ExpiresAt: tok.Expiration()}, nil
}
