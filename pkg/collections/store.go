// Package collections manages the physical data partition of each tenant.
package collections

import (
	"context"
	"errors"
)

// ErrSourceMissing is reported when a copy source does not exist. Callers treat it as
// "nothing to migrate".
var ErrSourceMissing = errors.New("source collection missing")

// Store creates, drops and migrates tenant data collections inside a shared database.
type Store interface {
	// EnsureCollection creates name unless it already exists. Concurrent calls for the same
	// name all succeed.
	EnsureCollection(ctx context.Context, name string) error
	// DropCollection removes name; a missing collection is not an error.
	DropCollection(ctx context.Context, name string) error
	// CopyAndRetarget copies every document of oldName into newName with a server-side bulk
	// operation and drops oldName only after the copy succeeded. A missing oldName is a no-op.
	CopyAndRetarget(ctx context.Context, oldName, newName string) error
	Exists(ctx context.Context, name string) (bool, error)
}
