package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"orgmgr/pkg/tenants"
)

// Reconcile finishes renames and deletes that were interrupted after their journal entry
// was written. Entries whose tenant is locked by a live operation are skipped. It returns
// the number of entries resolved.
func (m *Manager) Reconcile(ctx context.Context) (n int, err error) {
	ctx, done := m.observe(ctx, "reconcile")
	defer done(&err)

	ops, err := m.journal.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending operations: %w", err)
	}
	var errs []error
	for _, op := range ops {
		ok, err := m.reconcileOne(ctx, op)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s (%s): %w", op.Kind, op.Tenant, op.ID, err))
			continue
		}
		if ok {
			n++
			m.metrics.reconciled(op.Kind)
		}
	}
	return n, errors.Join(errs...)
}

func (m *Manager) reconcileOne(ctx context.Context, op tenants.Operation) (bool, error) {
	// Same order as a live rename: current name, then target.
	names := []string{op.Tenant}
	if op.Target != "" && op.Target != op.Tenant {
		names = append(names, op.Target)
	}
	for _, name := range names {
		release, err := m.lock(ctx, name)
		if err != nil {
			if errors.Is(err, ErrBusy) {
				m.log.Infow("skip busy operation", "op", op.ID, "tenant", name)
				return false, nil
			}
			return false, err
		}
		defer m.unlock(release, name)
	}

	var err error
	switch op.Kind {
	case tenants.OpRename:
		err = m.resumeRename(ctx, op)
	case tenants.OpDelete:
		err = m.resumeDelete(ctx, op)
	default:
		m.log.Warnw("unknown journal entry kind", "op", op.ID, "kind", op.Kind)
	}
	if err != nil {
		return false, err
	}
	if err := m.journal.Finish(ctx, op.ID); err != nil {
		return false, fmt.Errorf("finish journal entry: %w", err)
	}
	m.log.Infow("operation reconciled", "op", op.ID, "kind", op.Kind, "tenant", op.Tenant, "target", op.Target)
	return true, nil
}

// resumeRename settles a rename by where the registry left the tenant. If the tenant still
// has its old name the rename never took effect. If it carries the target, the admin link
// and the data move are redone; both steps are idempotent. A tenant that was deleted in
// between only leaves its old collection behind.
func (m *Manager) resumeRename(ctx context.Context, op tenants.Operation) error {
	t, err := m.registry.LookupID(ctx, op.TenantID)
	if errors.Is(err, tenants.ErrNotFound) {
		return m.dropStale(ctx, op)
	}
	if err != nil {
		return fmt.Errorf("lookup tenant: %w", err)
	}
	switch t.Name {
	case op.Tenant:
		return nil
	case op.Target:
	default:
		return fmt.Errorf("tenant %s is now %q, collection %s needs a manual merge", t.ID, t.Name, m.naming.CollectionName(op.Tenant))
	}
	if err := m.admins.SetTenantLink(ctx, t.AdminID, t.Name); err != nil && !errors.Is(err, tenants.ErrNotFound) {
		return fmt.Errorf("relink admin: %w", err)
	}
	if err := m.colls.CopyAndRetarget(ctx, m.naming.CollectionName(op.Tenant), t.CollectionName); err != nil {
		return fmt.Errorf("migrate collection: %w", err)
	}
	return nil
}

// dropStale drops the collection a rename left under its old name, unless another tenant
// has since taken that name.
func (m *Manager) dropStale(ctx context.Context, op tenants.Operation) error {
	if _, err := m.registry.Lookup(ctx, op.Tenant); err == nil {
		return nil
	} else if !errors.Is(err, tenants.ErrNotFound) {
		return fmt.Errorf("lookup tenant: %w", err)
	}
	if err := m.colls.DropCollection(ctx, m.naming.CollectionName(op.Tenant)); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// resumeDelete removes whatever is left of the tenant, provided the name still belongs to
// the tenant the delete started on.
func (m *Manager) resumeDelete(ctx context.Context, op tenants.Operation) error {
	t, err := m.registry.Lookup(ctx, op.Tenant)
	if errors.Is(err, tenants.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup tenant: %w", err)
	}
	if t.ID != op.TenantID {
		return nil
	}
	return m.removeArtifacts(ctx, t)
}
