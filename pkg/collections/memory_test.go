package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Insert("org_acme", map[string]any{"k": 1})

	require.NoError(t, m.EnsureCollection(ctx, "org_acme"))
	assert.Len(t, m.Documents("org_acme"), 1)

	require.NoError(t, m.EnsureCollection(ctx, "org_new"))
	ok, err := m.Exists(ctx, "org_new")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, m.Documents("org_new"))
}

func TestMemoryCopyAndRetarget(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	docs := []map[string]any{{"k": 1}, {"k": 2}}
	m.Insert("org_old", docs...)
	m.Insert("org_new", map[string]any{"stale": true})

	require.NoError(t, m.CopyAndRetarget(ctx, "org_old", "org_new"))
	assert.Equal(t, docs, m.Documents("org_new"))
	ok, err := m.Exists(ctx, "org_old")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCopyMissingSourceIsNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CopyAndRetarget(ctx, "org_ghost", "org_new"))
	assert.Nil(t, m.Documents("org_new"))
	require.NoError(t, m.DropCollection(ctx, "org_ghost"))
}
