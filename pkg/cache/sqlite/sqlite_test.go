package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/pkg/cache"
	"github.com/quizdesk/quizdesk/pkg/model"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(context.Background(), InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v1"))
	require.NoError(t, c.Set(ctx, "k", "v2"))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, c.Remove(ctx, "k", "never-set"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_EntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)

	entry := cache.Entry{PersistentID: "p1", Role: model.RoleStudent, Username: "alice"}
	require.NoError(t, cache.Save(ctx, c, entry))
	require.NoError(t, c.Set(ctx, cache.KeyRedirectURL, "/quizzes"))

	got, err := cache.Load(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
	assert.True(t, got.Complete())

	require.NoError(t, cache.Clear(ctx, c))

	got, err = cache.Load(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, cache.Entry{}, got)
	assert.False(t, got.Complete())

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{cache.KeyRedirectURL: "/quizzes"}, all)
}

func TestCache_UnknownRoleIsIncomplete(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)

	require.NoError(t, c.Set(ctx, cache.KeyUserID, "p1"))
	require.NoError(t, c.Set(ctx, cache.KeyUserRole, "superuser"))

	got, err := cache.Load(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PersistentID)
	assert.Equal(t, model.Role(0), got.Role)
	assert.False(t, got.Complete())
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quizdesk-cache.db")

	c, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, cache.KeyUserID, "p1"))
	require.NoError(t, c.Close())

	c, err = Open(ctx, path)
	require.NoError(t, err)
	defer c.Close()

	v, ok, err := c.Get(ctx, cache.KeyUserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p1", v)
}
