package tenants

import "time"

// RoleAdmin is the role marker stored on every tenant admin.
const RoleAdmin = "admin"

// Tenant is one organization's registry record.
type Tenant struct {
	ID             string    // uuid, stable across renames
	Name           string    // normalized organization name (unique)
	CollectionName string    // always Naming.CollectionName(Name)
	AdminID        string    // owning admin
	CreatedAt      time.Time // set once at creation
}

// Admin is the credential record that administers exactly one tenant.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	TenantName   string // tenant-link: normalized name of the administered tenant
}

// Operation kinds and stages recorded in the journal.
const (
	OpRename = "rename"
	OpDelete = "delete"

	StageStarted  = "started"
	StageMetadata = "metadata" // registry + admin link updated, data step pending
)

// Operation is a durable marker for a multi-step lifecycle operation that is in flight.
type Operation struct {
	ID        string
	Kind      string
	TenantID  string
	Tenant    string // tenant name when the operation started
	Target    string // new name for renames, empty for deletes
	Stage     string
	StartedAt time.Time
}
