package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"orgmgr/internal/authz"
	"orgmgr/pkg/collections"
	"orgmgr/pkg/credentials"
	"orgmgr/pkg/locks"
	"orgmgr/pkg/tenants"
	"orgmgr/pkg/tokens"
)

type harness struct {
	mgr    *Manager
	store  *tenants.MemoryStore
	colls  *collections.Memory
	locker *locks.Memory
	tokens *tokens.Issuer
	reg    *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	policy, err := authz.New(context.Background())
	require.NoError(t, err)

	h := &harness{
		store:  tenants.NewMemoryStore(),
		colls:  collections.NewMemory(),
		locker: locks.NewMemory(),
		tokens: tokens.NewIssuer([]byte("test-secret"), "", time.Hour),
		reg:    prometheus.NewRegistry(),
	}
	h.mgr = New(Deps{
		Registry:    h.store,
		Admins:      h.store,
		Journal:     h.store,
		Collections: h.colls,
		Locker:      h.locker,
		Hasher:      credentials.NewHasher(bcrypt.MinCost),
		Tokens:      h.tokens,
		Authorizer:  policy,
		Metrics:     NewMetrics(h.reg),
	})
	return h
}

func (h *harness) login(t *testing.T, email, password string) tokens.Claim {
	t.Helper()
	tok, err := h.mgr.Login(context.Background(), email, password)
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)
	claim, err := h.tokens.Verify(tok.AccessToken)
	require.NoError(t, err)
	return claim
}

func strPtr(s string) *string { return &s }

func TestCreateDistinctAndDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "alpha", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "beta", "b@x.com", "secret1")
	require.NoError(t, err)

	_, err = h.mgr.Create(ctx, "  ALPHA ", "c@x.com", "secret1")
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, CodeAlreadyExists, Code(err))

	assert.Equal(t, 2, h.store.Count())
	assert.Equal(t, 2, h.store.AdminCount())
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := map[string][3]string{
		"short name":     {" ab ", "a@x.com", "secret1"},
		"bad email":      {"acme", "not-an-email", "secret1"},
		"short password": {"acme", "a@x.com", "12345"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.mgr.Create(ctx, in[0], in[1], in[2])
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, 0, h.store.Count())
		})
	}
}

// blindRegistry hides existing tenants from Lookup so two creates race into Insert.
type blindRegistry struct {
	*tenants.MemoryStore
}

func (blindRegistry) Lookup(context.Context, string) (tenants.Tenant, error) {
	return tenants.Tenant{}, tenants.ErrNotFound
}

func TestCreateLosingInsertRemovesAdmin(t *testing.T) {
	h := newHarness(t)
	h.mgr.registry = blindRegistry{h.store}
	ctx := context.Background()

	first, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "acme", "b@x.com", "secret1")
	require.ErrorIs(t, err, ErrAlreadyExists)

	assert.Equal(t, 1, h.store.Count())
	assert.Equal(t, 1, h.store.AdminCount())
	losers, err := h.store.ListByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Empty(t, losers)

	got, err := h.store.Lookup(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first.AdminID, got.AdminID)
}

func TestCreateRejectsOverlongPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	long := strings.Repeat("p", 80)
	_, err := h.mgr.Create(ctx, "acme", "a@x.com", long)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 400, HTTPStatus(err))
	exists, err := h.colls.Exists(ctx, "org_acme")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, h.store.AdminCount())

	// Exactly 72 bytes is accepted.
	_, err = h.mgr.Create(ctx, "acme", "a@x.com", strings.Repeat("p", 72))
	require.NoError(t, err)
	claim := h.login(t, "a@x.com", strings.Repeat("p", 72))

	_, err = h.mgr.Update(ctx, claim, UpdateRequest{Name: "acme", Password: strPtr(long)})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNameLengthLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	longest := strings.Repeat("a", 59)
	created, err := h.mgr.Create(ctx, longest, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, created.CollectionName, tenants.MaxCollectionNameBytes)

	_, err = h.mgr.Create(ctx, strings.Repeat("b", 60), "b@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidRequest)
	// Multi-byte names are measured in bytes.
	_, err = h.mgr.Create(ctx, strings.Repeat("é", 30), "b@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidRequest)

	claim := h.login(t, "a@x.com", "secret1")
	_, err = h.mgr.Update(ctx, claim, UpdateRequest{Name: strings.Repeat("c", 60)})
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = h.mgr.Get(ctx, longest)
	require.NoError(t, err)
}

func TestGetNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgr.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 404, HTTPStatus(err))
}

func TestEndToEndRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.mgr.Create(ctx, "Acme Corp", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "acme corp", created.Name)
	assert.Equal(t, "org_acme corp", created.CollectionName)
	assert.NotEmpty(t, created.AdminID)

	docs := []map[string]any{{"sku": "a1"}, {"sku": "b2"}, {"sku": "c3"}}
	h.colls.Insert("org_acme corp", docs...)

	claim := h.login(t, "a@x.com", "secret1")
	assert.Equal(t, "acme corp", claim.TenantName)
	assert.Equal(t, created.AdminID, claim.AdminID)

	view, err := h.mgr.Update(ctx, claim, UpdateRequest{Name: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", view.Name)
	assert.Equal(t, "org_acme", view.CollectionName)

	got, err := h.mgr.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	_, err = h.mgr.Get(ctx, "acme corp")
	require.ErrorIs(t, err, ErrNotFound)

	assert.ElementsMatch(t, docs, h.colls.Documents("org_acme"))
	exists, err := h.colls.Exists(ctx, "org_acme corp")
	require.NoError(t, err)
	assert.False(t, exists)

	admin, err := h.store.Get(ctx, created.AdminID)
	require.NoError(t, err)
	assert.Equal(t, "acme", admin.TenantName)

	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The new token names the new tenant.
	assert.Equal(t, "acme", h.login(t, "a@x.com", "secret1").TenantName)
}

func TestRenameToSameNameStillUpdatesCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	h.colls.Insert("org_acme", map[string]any{"k": 1})
	claim := h.login(t, "a@x.com", "secret1")

	view, err := h.mgr.Update(ctx, claim, UpdateRequest{
		Name:     " ACME ",
		Email:    strPtr("New@X.com"),
		Password: strPtr("secret2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", view.Name)
	assert.Len(t, h.colls.Documents("org_acme"), 1)

	_, err = h.mgr.Login(ctx, "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "acme", h.login(t, "new@x.com", "secret2").TenantName)
}

func TestRenameOntoExistingTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "other", "o@x.com", "secret1")
	require.NoError(t, err)
	claim := h.login(t, "a@x.com", "secret1")

	_, err = h.mgr.Update(ctx, claim, UpdateRequest{Name: "other"})
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = h.mgr.Get(ctx, "acme")
	require.NoError(t, err)
	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeleteRemovesAllArtifacts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	h.colls.Insert("org_acme", map[string]any{"k": 1})
	claim := h.login(t, "a@x.com", "secret1")

	out, err := h.mgr.Delete(ctx, "Acme", claim)
	require.NoError(t, err)
	assert.Equal(t, Deleted{Status: "deleted", Tenant: "acme"}, out)

	_, err = h.mgr.Get(ctx, "acme")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.store.Get(ctx, created.AdminID)
	require.ErrorIs(t, err, tenants.ErrNotFound)
	assert.Nil(t, h.colls.Documents("org_acme"))
}

func TestCrossTenantMutationsForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acme, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "other", "o@x.com", "secret1")
	require.NoError(t, err)
	h.colls.Insert("org_other", map[string]any{"k": 1})
	claim := h.login(t, "a@x.com", "secret1")

	_, err = h.mgr.Delete(ctx, "other", claim)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 403, HTTPStatus(err))

	// A claim naming "other" but carrying acme's admin cannot rename it.
	forged := tokens.Claim{AdminID: acme.AdminID, TenantName: "other"}
	_, err = h.mgr.Update(ctx, forged, UpdateRequest{Name: "taken"})
	require.ErrorIs(t, err, ErrForbidden)

	got, err := h.mgr.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "org_other", got.CollectionName)
	assert.Len(t, h.colls.Documents("org_other"), 1)
}

func TestStaleClaimAfterRecreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	stale := h.login(t, "a@x.com", "secret1")
	_, err = h.mgr.Delete(ctx, "acme", stale)
	require.NoError(t, err)

	_, err = h.mgr.Create(ctx, "acme", "b@x.com", "secret1")
	require.NoError(t, err)

	_, err = h.mgr.Delete(ctx, "acme", stale)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = h.mgr.Get(ctx, "acme")
	require.NoError(t, err)
}

func TestBusyTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	claim := h.login(t, "a@x.com", "secret1")

	release, err := h.locker.Acquire(ctx, "tenant:acme", time.Minute)
	require.NoError(t, err)

	_, err = h.mgr.Delete(ctx, "acme", claim)
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, CodeBusy, Code(err))

	require.NoError(t, release(ctx))
	_, err = h.mgr.Delete(ctx, "acme", claim)
	require.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = h.mgr.Login(ctx, "a@x.com", "wrong-password")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.mgr.Login(ctx, "nobody@x.com", "secret1")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 401, HTTPStatus(err))

	// Email is matched case-insensitively.
	h.login(t, "A@X.COM", "secret1")
}

func TestReconcileFinishesInterruptedRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.mgr.Create(ctx, "acme corp", "a@x.com", "secret1")
	require.NoError(t, err)
	h.colls.Insert("org_acme corp", map[string]any{"k": 1}, map[string]any{"k": 2})
	before, err := h.store.Lookup(ctx, "acme corp")
	require.NoError(t, err)

	// Crash after the metadata step: registry renamed, data not migrated.
	_, err = h.store.Begin(ctx, tenants.Operation{
		Kind: tenants.OpRename, TenantID: before.ID, Tenant: "acme corp", Target: "acme",
	})
	require.NoError(t, err)
	_, err = h.store.Rename(ctx, "acme corp", "acme", "org_acme")
	require.NoError(t, err)

	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Len(t, h.colls.Documents("org_acme"), 2)
	assert.Nil(t, h.colls.Documents("org_acme corp"))
	admin, err := h.store.Get(ctx, created.AdminID)
	require.NoError(t, err)
	assert.Equal(t, "acme", admin.TenantName)

	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.mgr.metrics.Reconciled.WithLabelValues(tenants.OpRename)))
}

func TestReconcileDiscardsRenameThatNeverApplied(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	h.colls.Insert("org_acme", map[string]any{"k": 1})
	tn, err := h.store.Lookup(ctx, "acme")
	require.NoError(t, err)

	_, err = h.store.Begin(ctx, tenants.Operation{
		Kind: tenants.OpRename, TenantID: tn.ID, Tenant: "acme", Target: "acme2",
	})
	require.NoError(t, err)

	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, h.colls.Documents("org_acme"), 1)
	assert.Nil(t, h.colls.Documents("org_acme2"))
	_, err = h.mgr.Get(ctx, "acme")
	require.NoError(t, err)
}

func TestReconcileFinishesInterruptedDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	tn, err := h.store.Lookup(ctx, "acme")
	require.NoError(t, err)

	// Crash after the data and admin were removed.
	_, err = h.store.Begin(ctx, tenants.Operation{Kind: tenants.OpDelete, TenantID: tn.ID, Tenant: "acme"})
	require.NoError(t, err)
	require.NoError(t, h.colls.DropCollection(ctx, "org_acme"))
	require.NoError(t, h.store.Delete(ctx, created.AdminID))

	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = h.mgr.Get(ctx, "acme")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconcileSkipsBusyTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	tn, err := h.store.Lookup(ctx, "acme")
	require.NoError(t, err)
	_, err = h.store.Begin(ctx, tenants.Operation{Kind: tenants.OpDelete, TenantID: tn.ID, Tenant: "acme"})
	require.NoError(t, err)

	_, err = h.locker.Acquire(ctx, "tenant:acme", time.Minute)
	require.NoError(t, err)

	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestOperationMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.Error(t, err)

	ops := h.mgr.metrics.Operations
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("create", CodeAlreadyExists)))
}

// flakyCollections fails the next failures data migrations.
type flakyCollections struct {
	*collections.Memory
	failures int
}

func (f *flakyCollections) CopyAndRetarget(ctx context.Context, oldName, newName string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("copy interrupted")
	}
	return f.Memory.CopyAndRetarget(ctx, oldName, newName)
}

// interruptedRename renames "acme corp" to "acme" with the data step failing, leaving the
// registry on the new name and the documents under the old collection.
func interruptedRename(t *testing.T, h *harness) []map[string]any {
	t.Helper()
	ctx := context.Background()

	_, err := h.mgr.Create(ctx, "acme corp", "a@x.com", "secret1")
	require.NoError(t, err)
	docs := []map[string]any{{"sku": "a1"}, {"sku": "b2"}}
	h.colls.Insert("org_acme corp", docs...)
	claim := h.login(t, "a@x.com", "secret1")

	h.mgr.colls = &flakyCollections{Memory: h.colls, failures: 1}
	_, err = h.mgr.Update(ctx, claim, UpdateRequest{Name: "acme"})
	require.Error(t, err)

	got, err := h.mgr.Get(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "org_acme", got.CollectionName)
	require.ElementsMatch(t, docs, h.colls.Documents("org_acme corp"))
	return docs
}

func TestCreateBlockedByUnfinishedRename(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := interruptedRename(t, h)

	_, err := h.mgr.Create(ctx, "acme corp", "evil@x.com", "secret1")
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 409, HTTPStatus(err))
	assert.ElementsMatch(t, docs, h.colls.Documents("org_acme corp"))
	assert.Equal(t, 1, h.store.AdminCount())

	// Once the rename is finished the old name is free again, with none of the old data.
	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, docs, h.colls.Documents("org_acme"))

	_, err = h.mgr.Create(ctx, "acme corp", "evil@x.com", "secret1")
	require.NoError(t, err)
	assert.Empty(t, h.colls.Documents("org_acme corp"))
}

func TestCreateWhileTenantLocked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.locker.Acquire(ctx, "tenant:acme", time.Minute)
	require.NoError(t, err)
	_, err = h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.ErrorIs(t, err, ErrBusy)
	exists, err := h.colls.Exists(ctx, "org_acme")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRenameAgainAfterFailedMigration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := interruptedRename(t, h)

	claim := h.login(t, "a@x.com", "secret1")
	assert.Equal(t, "acme", claim.TenantName)
	view, err := h.mgr.Update(ctx, claim, UpdateRequest{Name: "acme2"})
	require.NoError(t, err)
	assert.Equal(t, "org_acme2", view.CollectionName)

	assert.ElementsMatch(t, docs, h.colls.Documents("org_acme2"))
	for _, name := range []string{"org_acme corp", "org_acme"} {
		exists, err := h.colls.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeleteAfterFailedMigration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	interruptedRename(t, h)

	claim := h.login(t, "a@x.com", "secret1")
	_, err := h.mgr.Delete(ctx, "acme", claim)
	require.NoError(t, err)

	for _, name := range []string{"org_acme corp", "org_acme"} {
		exists, err := h.colls.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconcileDropsCollectionOfDeletedTenant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	interruptedRename(t, h)

	// The tenant disappears without the rename entry being settled.
	tn, err := h.store.Lookup(ctx, "acme")
	require.NoError(t, err)
	require.NoError(t, h.store.Remove(ctx, "acme"))
	require.NoError(t, h.store.Delete(ctx, tn.AdminID))

	n, err := h.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, h.colls.Documents("org_acme corp"))
}

func TestReconcileKeepsRenameItCannotPlace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := interruptedRename(t, h)

	// A later rename bypassed the journal, so the data has no obvious home.
	_, err := h.store.Rename(ctx, "acme", "acme2", "org_acme2")
	require.NoError(t, err)

	n, err := h.mgr.Reconcile(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.ElementsMatch(t, docs, h.colls.Documents("org_acme corp"))
	pending, err := h.store.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestLoginSharedEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.mgr.Create(ctx, "acme", "a@x.com", "secret1")
	require.NoError(t, err)
	second, err := h.mgr.Create(ctx, "other", "a@x.com", "secret2")
	require.NoError(t, err)

	c1 := h.login(t, "a@x.com", "secret1")
	assert.Equal(t, "acme", c1.TenantName)
	assert.Equal(t, first.AdminID, c1.AdminID)

	c2 := h.login(t, "a@x.com", "secret2")
	assert.Equal(t, "other", c2.TenantName)
	assert.Equal(t, second.AdminID, c2.AdminID)

	_, err = h.mgr.Login(ctx, "a@x.com", "secret3")
	require.ErrorIs(t, err, ErrUnauthorized)
}
