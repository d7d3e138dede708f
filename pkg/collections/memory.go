package collections

import (
	"context"
	"sync"
)

// Memory keeps collections as in-process document slices. Used for dev and tests.
type Memory struct {
	mu    sync.Mutex
	colls map[string][]map[string]any
}

func NewMemory() *Memory {
	return &Memory{colls: map[string][]map[string]any{}}
}

func (m *Memory) EnsureCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.colls[name]; !ok {
		m.colls[name] = []map[string]any{}
	}
	return nil
}

func (m *Memory) DropCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.colls, name)
	return nil
}

func (m *Memory) CopyAndRetarget(ctx context.Context, oldName, newName string) error {
	if err := m.copy(oldName, newName); err != nil {
		if err == ErrSourceMissing {
			return nil
		}
		return err
	}
	return m.DropCollection(ctx, oldName)
}

// copy replaces newName with a copy of oldName, like an aggregation $out stage.
func (m *Memory) copy(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.colls[oldName]
	if !ok {
		return ErrSourceMissing
	}
	dst := make([]map[string]any, 0, len(src))
	for _, doc := range src {
		cp := make(map[string]any, len(doc))
		for k, v := range doc {
			cp[k] = v
		}
		dst = append(dst, cp)
	}
	m.colls[newName] = dst
	return nil
}

func (m *Memory) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.colls[name]
	return ok, nil
}

// Insert appends documents to name, creating it if needed.
func (m *Memory) Insert(name string, docs ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colls[name] = append(m.colls[name], docs...)
}

// Documents returns the documents of name, or nil if it does not exist.
func (m *Memory) Documents(name string) []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.colls[name]
	if !ok {
		return nil
	}
	out := make([]map[string]any, len(docs))
	copy(out, docs)
	return out
}
