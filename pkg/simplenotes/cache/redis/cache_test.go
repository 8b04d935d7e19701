package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := New("redis://"+s.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, s
}

func sampleTree(libraryID uuid.UUID) []*simplenotes.TreeNode {
	parent := &simplenotes.Node{ID: uuid.New(), Kind: simplenotes.KindPage, Title: "Parent", LibraryID: libraryID, IsPublic: true}
	parentID := parent.ID
	child := &simplenotes.Node{ID: uuid.New(), Kind: simplenotes.KindPage, Title: "Child", LibraryID: libraryID, ParentID: &parentID, IsPublic: true}
	return []*simplenotes.TreeNode{{
		Node:     parent,
		Children: []*simplenotes.TreeNode{{Node: child, Children: []*simplenotes.TreeNode{}}},
	}}
}

func TestCache_Miss(t *testing.T) {
	cache, _ := setupTestCache(t)

	tree, ok, err := cache.GetTree(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tree)
}

func TestCache_SetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	libraryID := uuid.New()

	require.NoError(t, cache.SetTree(ctx, libraryID, sampleTree(libraryID)))

	tree, ok, err := cache.GetTree(ctx, libraryID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tree, 1)
	assert.Equal(t, "Parent", tree[0].Title)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Child", tree[0].Children[0].Title)
	assert.Equal(t, tree[0].ID, *tree[0].Children[0].ParentID)
}

func TestCache_EmptyTreeIsAHit(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	libraryID := uuid.New()

	require.NoError(t, cache.SetTree(ctx, libraryID, []*simplenotes.TreeNode{}))

	tree, ok, err := cache.GetTree(ctx, libraryID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, tree)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, cache.SetTree(ctx, a, sampleTree(a)))
	require.NoError(t, cache.SetTree(ctx, b, sampleTree(b)))

	require.NoError(t, cache.Invalidate(ctx, a))

	_, ok, err := cache.GetTree(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.GetTree(ctx, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	cache, s := setupTestCache(t)
	ctx := context.Background()
	libraryID := uuid.New()

	require.NoError(t, cache.SetTree(ctx, libraryID, sampleTree(libraryID)))
	s.FastForward(2 * time.Minute)

	_, ok, err := cache.GetTree(ctx, libraryID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptEntry(t *testing.T) {
	cache, s := setupTestCache(t)
	libraryID := uuid.New()

	require.NoError(t, s.Set(cache.key(libraryID), "not json"))

	_, ok, err := cache.GetTree(context.Background(), libraryID)
	assert.Error(t, err)
	assert.False(t, ok)
}
