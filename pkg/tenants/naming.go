package tenants

import "strings"

// DefaultCollectionPrefix is prepended to a tenant name to form its data collection name.
const DefaultCollectionPrefix = "org_"

// MaxCollectionNameBytes is the longest collection name every backend keeps intact.
// Postgres truncates identifiers beyond 63 bytes.
const MaxCollectionNameBytes = 63

// Normalize returns the canonical registry key for a tenant name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Naming derives physical collection names from tenant names.
// It is the only place the rule is defined.
type Naming struct {
	Prefix string
}

// DefaultNaming uses DefaultCollectionPrefix.
func DefaultNaming() Naming { return Naming{Prefix: DefaultCollectionPrefix} }

// CollectionName maps a tenant name to its collection name. The name is normalized first.
func (n Naming) CollectionName(tenant string) string {
	return n.Prefix + Normalize(tenant)
}

// MaxNameBytes is the longest tenant name, in bytes, whose collection name fits
// MaxCollectionNameBytes.
func (n Naming) MaxNameBytes() int {
	return MaxCollectionNameBytes - len(n.Prefix)
}
