// Package lifecycle sequences tenant create, rename and delete across the registry,
// the admin store and the collection store.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"orgmgr/internal/authz"
	"orgmgr/pkg/collections"
	"orgmgr/pkg/locks"
	"orgmgr/pkg/tenants"
	"orgmgr/pkg/tokens"
)

// DefaultLockTTL bounds how long a rename or delete may hold a tenant lease.
const DefaultLockTTL = 5 * time.Minute

// PasswordHasher hashes and checks admin passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenIssuer mints bearer tokens for a logged in admin.
type TokenIssuer interface {
	Issue(adminID, tenant string) (string, tokens.Claim, error)
}

// Authorizer decides whether a claim may act on a tenant.
type Authorizer interface {
	Allow(ctx context.Context, in authz.Input) (bool, error)
}

// Deps are the collaborators of a Manager. Metrics is optional.
type Deps struct {
	Registry    tenants.Registry
	Admins      tenants.AdminStore
	Journal     tenants.Journal
	Collections collections.Store
	Locker      locks.Locker
	Hasher      PasswordHasher
	Tokens      TokenIssuer
	Authorizer  Authorizer
	Naming      tenants.Naming
	LockTTL     time.Duration
	Metrics     *Metrics
	Log         *zap.SugaredLogger
}

// Manager is the tenant lifecycle orchestrator.
type Manager struct {
	registry tenants.Registry
	admins   tenants.AdminStore
	journal  tenants.Journal
	colls    collections.Store
	locker   locks.Locker
	hasher   PasswordHasher
	tokens   TokenIssuer
	authz    Authorizer
	naming   tenants.Naming
	lockTTL  time.Duration
	metrics  *Metrics
	log      *zap.SugaredLogger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(d Deps) *Manager {
	if d.Naming.Prefix == "" {
		d.Naming = tenants.DefaultNaming()
	}
	if d.LockTTL <= 0 {
		d.LockTTL = DefaultLockTTL
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	return &Manager{
		registry: d.Registry,
		admins:   d.Admins,
		journal:  d.Journal,
		colls:    d.Collections,
		locker:   d.Locker,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		authz:    d.Authorizer,
		naming:   d.Naming,
		lockTTL:  d.LockTTL,
		metrics:  d.Metrics,
		log:      d.Log,
		tracer:   otel.Tracer("orgmgr/lifecycle"),
		now:      time.Now,
	}
}

// Created is returned by Create.
type Created struct {
	Name           string
	CollectionName string
	AdminID        string
}

// View is the externally visible form of a tenant.
type View struct {
	ID             string
	Name           string
	CollectionName string
	AdminID        string
	CreatedAt      time.Time
}

// UpdateRequest carries the new tenant name and optional credential changes.
type UpdateRequest struct {
	Name     string
	Email    *string
	Password *string
}

// Deleted is returned by Delete.
type Deleted struct {
	Status string
	Tenant string
}

// Token is returned by Login.
type Token struct {
	AccessToken string
	TokenType   string
}

func viewOf(t tenants.Tenant) View {
	return View{
		ID:             t.ID,
		Name:           t.Name,
		CollectionName: t.CollectionName,
		AdminID:        t.AdminID,
		CreatedAt:      t.CreatedAt,
	}
}

// observe starts a span for op and returns a func that records the outcome.
func (m *Manager) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := m.now()
	ctx, span := m.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		err := *errp
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Code(err))
		}
		span.End()
		m.metrics.observe(op, err, m.now().Sub(start))
	}
}

// Create provisions a tenant: its collection, its admin and its registry record.
func (m *Manager) Create(ctx context.Context, name, email, password string) (out Created, err error) {
	name = tenants.Normalize(name)
	email = normalizeEmail(email)
	ctx, done := m.observe(ctx, "create", attribute.String("tenant", name))
	defer done(&err)

	if err := check(createInput{Name: name, Email: email, Password: password}); err != nil {
		return Created{}, err
	}
	if err := checkNameBytes(name, m.naming.MaxNameBytes()); err != nil {
		return Created{}, err
	}
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return Created{}, fmt.Errorf("hash password: %w", err)
	}

	release, err := m.lock(ctx, name)
	if err != nil {
		return Created{}, err
	}
	defer m.unlock(release, name)

	if _, err := m.registry.Lookup(ctx, name); err == nil {
		return Created{}, fmt.Errorf("tenant %q: %w", name, ErrAlreadyExists)
	} else if !errors.Is(err, tenants.ErrNotFound) {
		return Created{}, fmt.Errorf("lookup tenant: %w", err)
	}
	// An unfinished rename may still hold data under this name.
	if err := m.pendingFor(ctx, name); err != nil {
		return Created{}, err
	}

	coll := m.naming.CollectionName(name)
	if err := m.colls.EnsureCollection(ctx, coll); err != nil {
		return Created{}, fmt.Errorf("ensure collection: %w", err)
	}

	admin := tenants.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         tenants.RoleAdmin,
		TenantName:   name,
	}
	if err := m.admins.Create(ctx, admin); err != nil {
		return Created{}, fmt.Errorf("create admin: %w", err)
	}

	t := tenants.Tenant{
		ID:             uuid.NewString(),
		Name:           name,
		CollectionName: coll,
		AdminID:        admin.ID,
		CreatedAt:      m.now().UTC(),
	}
	if err := m.registry.Insert(ctx, t); err != nil {
		// Lost the race to a concurrent create: the winner owns the collection.
		if errors.Is(err, tenants.ErrAlreadyExists) {
			if derr := m.admins.Delete(ctx, admin.ID); derr != nil {
				m.log.Warnw("cleanup admin after duplicate create", "tenant", name, "admin_id", admin.ID, "err", derr)
			}
			return Created{}, fmt.Errorf("tenant %q: %w", name, ErrAlreadyExists)
		}
		return Created{}, fmt.Errorf("insert tenant: %w", err)
	}

	m.log.Infow("tenant created", "tenant", name, "collection", coll, "admin_id", admin.ID)
	return Created{Name: name, CollectionName: coll, AdminID: admin.ID}, nil
}

// Get returns the tenant registered under name.
func (m *Manager) Get(ctx context.Context, name string) (out View, err error) {
	name = tenants.Normalize(name)
	ctx, done := m.observe(ctx, "get", attribute.String("tenant", name))
	defer done(&err)

	t, err := m.registry.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return View{}, fmt.Errorf("tenant %q: %w", name, ErrNotFound)
		}
		return View{}, fmt.Errorf("lookup tenant: %w", err)
	}
	return viewOf(t), nil
}

// Update renames the claim's tenant and applies optional credential changes.
// The tenant acted on always comes from the claim.
func (m *Manager) Update(ctx context.Context, claim tokens.Claim, req UpdateRequest) (out View, err error) {
	current := tenants.Normalize(claim.TenantName)
	target := tenants.Normalize(req.Name)
	ctx, done := m.observe(ctx, "update",
		attribute.String("tenant", current), attribute.String("target", target))
	defer done(&err)

	if err := m.authorize(ctx, authz.ActionUpdate, claim, current); err != nil {
		return View{}, err
	}
	if err := check(nameInput{Name: target}); err != nil {
		return View{}, err
	}
	if err := checkNameBytes(target, m.naming.MaxNameBytes()); err != nil {
		return View{}, err
	}
	var email, hash *string
	if req.Email != nil {
		e := normalizeEmail(*req.Email)
		if err := check(emailInput{Email: e}); err != nil {
			return View{}, err
		}
		email = &e
	}
	if req.Password != nil {
		if err := check(passwordInput{Password: *req.Password}); err != nil {
			return View{}, err
		}
		h, err := m.hasher.Hash(*req.Password)
		if err != nil {
			return View{}, fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}

	release, err := m.lock(ctx, current)
	if err != nil {
		return View{}, err
	}
	defer m.unlock(release, current)

	t, err := m.owned(ctx, claim, current)
	if err != nil {
		return View{}, err
	}
	if err := m.settleRenames(ctx, t); err != nil {
		return View{}, err
	}

	if target != t.Name {
		t, err = m.rename(ctx, t, target)
		if err != nil {
			return View{}, err
		}
	}

	if email != nil || hash != nil {
		if err := m.admins.UpdateCredentials(ctx, t.AdminID, email, hash); err != nil {
			return View{}, fmt.Errorf("update admin credentials: %w", err)
		}
	}
	return viewOf(t), nil
}

// rename runs the journaled rename protocol with both names locked.
// Metadata moves before data so a crash leaves the registry pointing at the new name.
func (m *Manager) rename(ctx context.Context, t tenants.Tenant, target string) (tenants.Tenant, error) {
	release, err := m.lock(ctx, target)
	if err != nil {
		return t, err
	}
	defer m.unlock(release, target)

	if _, err := m.registry.Lookup(ctx, target); err == nil {
		return t, fmt.Errorf("tenant %q: %w", target, ErrAlreadyExists)
	} else if !errors.Is(err, tenants.ErrNotFound) {
		return t, fmt.Errorf("lookup tenant: %w", err)
	}
	if err := m.pendingFor(ctx, target); err != nil {
		return t, err
	}

	op, err := m.journal.Begin(ctx, tenants.Operation{
		Kind:     tenants.OpRename,
		TenantID: t.ID,
		Tenant:   t.Name,
		Target:   target,
	})
	if err != nil {
		return t, fmt.Errorf("journal rename: %w", err)
	}

	oldColl := t.CollectionName
	newColl := m.naming.CollectionName(target)
	renamed, err := m.registry.Rename(ctx, t.Name, target, newColl)
	if err != nil {
		if errors.Is(err, tenants.ErrAlreadyExists) || errors.Is(err, tenants.ErrNotFound) {
			m.abandon(ctx, op)
			return t, fmt.Errorf("rename %q to %q: %w", t.Name, target, err)
		}
		return t, fmt.Errorf("rename tenant: %w", err)
	}
	if err := m.admins.SetTenantLink(ctx, renamed.AdminID, target); err != nil {
		return t, fmt.Errorf("relink admin: %w", err)
	}
	if err := m.journal.Advance(ctx, op.ID, tenants.StageMetadata); err != nil {
		return t, fmt.Errorf("journal rename: %w", err)
	}

	start := m.now()
	if err := m.colls.CopyAndRetarget(ctx, oldColl, newColl); err != nil {
		return t, fmt.Errorf("migrate collection %s to %s: %w", oldColl, newColl, err)
	}
	m.metrics.migration(m.now().Sub(start))

	if err := m.journal.Finish(ctx, op.ID); err != nil {
		m.log.Warnw("finish journal entry", "op", op.ID, "err", err)
	}
	m.log.Infow("tenant renamed", "tenant", target, "from", t.Name, "admin_id", renamed.AdminID, "took", m.now().Sub(start))
	return renamed, nil
}

// Delete removes the named tenant, its admin and its collection.
func (m *Manager) Delete(ctx context.Context, name string, claim tokens.Claim) (out Deleted, err error) {
	name = tenants.Normalize(name)
	ctx, done := m.observe(ctx, "delete", attribute.String("tenant", name))
	defer done(&err)

	if err := m.authorize(ctx, authz.ActionDelete, claim, name); err != nil {
		return Deleted{}, err
	}

	release, err := m.lock(ctx, name)
	if err != nil {
		return Deleted{}, err
	}
	defer m.unlock(release, name)

	t, err := m.owned(ctx, claim, name)
	if err != nil {
		return Deleted{}, err
	}

	op, err := m.journal.Begin(ctx, tenants.Operation{Kind: tenants.OpDelete, TenantID: t.ID, Tenant: t.Name})
	if err != nil {
		return Deleted{}, fmt.Errorf("journal delete: %w", err)
	}
	if err := m.removeArtifacts(ctx, t); err != nil {
		return Deleted{}, err
	}
	if err := m.dropRenameLeftovers(ctx, t); err != nil {
		return Deleted{}, err
	}
	if err := m.journal.Finish(ctx, op.ID); err != nil {
		m.log.Warnw("finish journal entry", "op", op.ID, "err", err)
	}

	m.log.Infow("tenant deleted", "tenant", name, "admin_id", t.AdminID)
	return Deleted{Status: "deleted", Tenant: name}, nil
}

// removeArtifacts drops data, then the admin, then the registry record. Each step tolerates
// an earlier partial run.
func (m *Manager) removeArtifacts(ctx context.Context, t tenants.Tenant) error {
	if err := m.colls.DropCollection(ctx, t.CollectionName); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if err := m.admins.Delete(ctx, t.AdminID); err != nil && !errors.Is(err, tenants.ErrNotFound) {
		return fmt.Errorf("delete admin: %w", err)
	}
	if err := m.registry.Remove(ctx, t.Name); err != nil && !errors.Is(err, tenants.ErrNotFound) {
		return fmt.Errorf("remove tenant: %w", err)
	}
	return nil
}

// Login checks admin credentials and issues a bearer token for the admin's tenant.
func (m *Manager) Login(ctx context.Context, email, password string) (out Token, err error) {
	email = normalizeEmail(email)
	ctx, done := m.observe(ctx, "login")
	defer done(&err)

	candidates, err := m.admins.ListByEmail(ctx, email)
	if err != nil {
		return Token{}, fmt.Errorf("find admin: %w", err)
	}
	// The same email may administer several tenants; the password picks the account.
	var admin tenants.Admin
	found := false
	for _, a := range candidates {
		if m.hasher.Verify(a.PasswordHash, password) {
			admin, found = a, true
			break
		}
	}
	if !found {
		return Token{}, ErrUnauthorized
	}
	t, err := m.registry.FindByAdmin(ctx, admin.ID)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return Token{}, ErrUnauthorized
		}
		return Token{}, fmt.Errorf("resolve admin tenant: %w", err)
	}
	raw, _, err := m.tokens.Issue(admin.ID, t.Name)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{AccessToken: raw, TokenType: "bearer"}, nil
}

func (m *Manager) authorize(ctx context.Context, action string, claim tokens.Claim, target string) error {
	ok, err := m.authz.Allow(ctx, authz.Input{
		Action:  action,
		AdminID: claim.AdminID,
		Tenant:  tenants.Normalize(claim.TenantName),
		Target:  target,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s on %q: %w", action, target, ErrForbidden)
	}
	return nil
}

// owned loads name and checks that the claim's admin still administers it. A token minted
// for a deleted tenant must not act on a new tenant that reused the name.
func (m *Manager) owned(ctx context.Context, claim tokens.Claim, name string) (tenants.Tenant, error) {
	t, err := m.registry.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return t, fmt.Errorf("tenant %q: %w", name, ErrNotFound)
		}
		return t, fmt.Errorf("lookup tenant: %w", err)
	}
	if t.AdminID != claim.AdminID {
		return t, fmt.Errorf("tenant %q not administered by %s: %w", name, claim.AdminID, ErrForbidden)
	}
	return t, nil
}

// pendingFor reports ErrBusy while an unfinished rename involves name.
func (m *Manager) pendingFor(ctx context.Context, name string) error {
	ops, err := m.journal.Pending(ctx)
	if err != nil {
		return fmt.Errorf("list pending operations: %w", err)
	}
	for _, op := range ops {
		if op.Kind == tenants.OpRename && (op.Tenant == name || op.Target == name) {
			return fmt.Errorf("tenant %q has unfinished %s %s: %w", name, op.Kind, op.ID, ErrBusy)
		}
	}
	return nil
}

// pendingRenames lists unfinished renames of the tenant with the given ID.
func (m *Manager) pendingRenames(ctx context.Context, id string) ([]tenants.Operation, error) {
	ops, err := m.journal.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}
	var out []tenants.Operation
	for _, op := range ops {
		if op.Kind == tenants.OpRename && op.TenantID == id {
			out = append(out, op)
		}
	}
	return out, nil
}

// settleRenames completes earlier renames of t before t is renamed again, so their data is
// never stranded under a name the registry no longer knows.
func (m *Manager) settleRenames(ctx context.Context, t tenants.Tenant) error {
	ops, err := m.pendingRenames(ctx, t.ID)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := m.resumeRename(ctx, op); err != nil {
			return fmt.Errorf("settle rename %s: %w", op.ID, err)
		}
		if err := m.journal.Finish(ctx, op.ID); err != nil {
			return fmt.Errorf("finish journal entry: %w", err)
		}
		m.log.Infow("settled unfinished rename", "op", op.ID, "tenant", t.Name, "from", op.Tenant)
	}
	return nil
}

// dropRenameLeftovers removes collections still held under names t had before an
// unfinished rename.
func (m *Manager) dropRenameLeftovers(ctx context.Context, t tenants.Tenant) error {
	ops, err := m.pendingRenames(ctx, t.ID)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := m.dropStale(ctx, op); err != nil {
			return err
		}
		if err := m.journal.Finish(ctx, op.ID); err != nil {
			return fmt.Errorf("finish journal entry: %w", err)
		}
	}
	return nil
}

func (m *Manager) lock(ctx context.Context, name string) (locks.Release, error) {
	release, err := m.locker.Acquire(ctx, "tenant:"+name, m.lockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrHeld) {
			return nil, fmt.Errorf("tenant %q: %w", name, ErrBusy)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return release, nil
}

func (m *Manager) unlock(release locks.Release, name string) {
	// Release on a fresh context so a cancelled request still frees the lease.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := release(ctx); err != nil {
		m.log.Warnw("release lock", "tenant", name, "err", err)
	}
}

// abandon drops a journal entry whose first step never took effect.
func (m *Manager) abandon(ctx context.Context, op tenants.Operation) {
	if err := m.journal.Finish(ctx, op.ID); err != nil {
		m.log.Warnw("abandon journal entry", "op", op.ID, "err", err)
	}
}
