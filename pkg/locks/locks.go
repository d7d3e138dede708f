// Package locks provides short-lived per-key leases used to serialize lifecycle
// operations on a single tenant.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned when another holder owns the lease.
var ErrHeld = errors.New("lock held")

// Release gives a lease back. Releasing an expired lease is a no-op.
type Release func(ctx context.Context) error

// Locker grants exclusive leases on keys.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Memory is an in-process Locker.
type Memory struct {
	mu     sync.Mutex
	leases map[string]memLease
	seq    uint64
	now    func() time.Time
}

type memLease struct {
	token   uint64
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{leases: map[string]memLease{}, now: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return nil, ErrHeld
	}
	m.seq++
	token := m.seq
	m.leases[key] = memLease{token: token, expires: now.Add(ttl)}
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.leases[key]; ok && l.token == token {
			delete(m.leases, key)
		}
		return nil
	}, nil
}
