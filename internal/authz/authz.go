// Package authz decides whether a verified claim may act on a tenant.
package authz

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Actions evaluated by the policy.
const (
	ActionUpdate = "tenant.update"
	ActionDelete = "tenant.delete"
)

//go:embed policy.rego
var policyModule string

// Input is the document the policy is evaluated against.
type Input struct {
	Action  string
	AdminID string
	Tenant  string // tenant named in the claim
	Target  string // tenant being acted on
}

// Policy evaluates data.orgs.authz.allow with a query prepared once at startup.
type Policy struct {
	query rego.PreparedEvalQuery
}

// New compiles the embedded policy.
func New(ctx context.Context) (*Policy, error) {
	q, err := rego.New(
		rego.Query("data.orgs.authz.allow"),
		rego.Module("policy.rego", policyModule),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile authz policy: %w", err)
	}
	return &Policy{query: q}, nil
}

// Allow reports whether in is permitted.
func (p *Policy) Allow(ctx context.Context, in Input) (bool, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"action": in.Action,
		"claim":  map[string]any{"admin_id": in.AdminID, "tenant": in.Tenant},
		"target": in.Target,
	}))
	if err != nil {
		return false, fmt.Errorf("evaluate authz policy: %w", err)
	}
	return rs.Allowed(), nil
}
