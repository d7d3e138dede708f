package tenants

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Registry owns the mapping from normalized tenant name to Tenant.
// Implementations enforce name uniqueness themselves; callers must not rely on a prior Lookup.
type Registry interface {
	Lookup(ctx context.Context, name string) (Tenant, error)
	// LookupID finds a tenant by its stable ID, whatever its current name.
	LookupID(ctx context.Context, id string) (Tenant, error)
	// FindByAdmin returns the tenant administered by adminID.
	FindByAdmin(ctx context.Context, adminID string) (Tenant, error)
	Insert(ctx context.Context, t Tenant) error
	// Rename moves the record identified by oldName to newName in a single update,
	// keeping its ID.
	Rename(ctx context.Context, oldName, newName, newCollection string) (Tenant, error)
	Remove(ctx context.Context, name string) error
}

// AdminStore persists admin credential records.
type AdminStore interface {
	Create(ctx context.Context, a Admin) error
	Get(ctx context.Context, id string) (Admin, error)
	// ListByEmail returns every admin with email, ordered by ID. Emails are not unique.
	ListByEmail(ctx context.Context, email string) ([]Admin, error)
	SetTenantLink(ctx context.Context, id, tenant string) error
	// UpdateCredentials sets the non-nil fields only.
	UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) error
	Delete(ctx context.Context, id string) error
}

// Journal records in-flight renames and deletes so an interrupted one can be finished later.
type Journal interface {
	Begin(ctx context.Context, op Operation) (Operation, error)
	Advance(ctx context.Context, id, stage string) error
	Finish(ctx context.Context, id string) error
	Pending(ctx context.Context) ([]Operation, error)
}
