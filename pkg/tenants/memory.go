// pkg/tenants/memory.go
package tenants

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Registry, AdminStore and Journal for dev and tests.
type MemoryStore struct {
	mu     sync.Mutex
	byName map[string]Tenant
	admins map[string]Admin
	ops    map[string]Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byName: map[string]Tenant{},
		admins: map[string]Admin{},
		ops:    map[string]Operation{},
	}
}

func (m *MemoryStore) Lookup(ctx context.Context, name string) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	return Tenant{}, ErrNotFound
}

func (m *MemoryStore) FindByAdmin(ctx context.Context, adminID string) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byName {
		if t.AdminID == adminID {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}

func (m *MemoryStore) LookupID(ctx context.Context, id string) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byName {
		if t.ID == id {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}

func (m *MemoryStore) Insert(ctx context.Context, t Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[t.Name]; ok {
		return ErrAlreadyExists
	}
	m.byName[t.Name] = t
	return nil
}

func (m *MemoryStore) Rename(ctx context.Context, oldName, newName, newCollection string) (Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byName[oldName]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	if _, taken := m.byName[newName]; taken && newName != oldName {
		return Tenant{}, ErrAlreadyExists
	}
	delete(m.byName, oldName)
	t.Name = newName
	t.CollectionName = newCollection
	m.byName[newName] = t
	return t, nil
}

func (m *MemoryStore) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; !ok {
		return ErrNotFound
	}
	delete(m.byName, name)
	return nil
}

// Count returns the number of registered tenants.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byName)
}

func (m *MemoryStore) Create(ctx context.Context, a Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.ID]; ok {
		return ErrAlreadyExists
	}
	m.admins[a.ID] = a
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admins[id]; ok {
		return a, nil
	}
	return Admin{}, ErrNotFound
}

func (m *MemoryStore) ListByEmail(ctx context.Context, email string) ([]Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Admin
	for _, a := range m.admins {
		if a.Email == email {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SetTenantLink(ctx context.Context, id, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.TenantName = tenant
	m.admins[id] = a
	return nil
}

func (m *MemoryStore) UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return ErrNotFound
	}
	if email != nil {
		a.Email = *email
	}
	if passwordHash != nil {
		a.PasswordHash = *passwordHash
	}
	m.admins[id] = a
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

// AdminCount returns the number of admin records.
func (m *MemoryStore) AdminCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admins)
}

func (m *MemoryStore) Begin(ctx context.Context, op Operation) (Operation, error) {
	op = prepareOperation(op)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op.ID] = op
	return op, nil
}

func (m *MemoryStore) Advance(ctx context.Context, id, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return ErrNotFound
	}
	op.Stage = stage
	m.ops[id] = op
	return nil
}

func (m *MemoryStore) Finish(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ops, id)
	return nil
}

func (m *MemoryStore) Pending(ctx context.Context) ([]Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Operation, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// prepareOperation fills in the generated fields of a new journal entry.
func prepareOperation(op Operation) Operation {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Stage == "" {
		op.Stage = StageStarted
	}
	if op.StartedAt.IsZero() {
		op.StartedAt = time.Now().UTC()
	}
	return op
}
