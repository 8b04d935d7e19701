package simplenotes_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// mapCache is an in-process PublicCache that counts its traffic
type mapCache struct {
	mu          sync.Mutex
	trees       map[uuid.UUID][]*simplenotes.TreeNode
	hits        int
	invalidated []uuid.UUID
}

func newMapCache() *mapCache {
	return &mapCache{trees: map[uuid.UUID][]*simplenotes.TreeNode{}}
}

func (c *mapCache) GetTree(ctx context.Context, libraryID uuid.UUID) ([]*simplenotes.TreeNode, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.trees[libraryID]
	if ok {
		c.hits++
	}
	return tree, ok, nil
}

func (c *mapCache) SetTree(ctx context.Context, libraryID uuid.UUID, tree []*simplenotes.TreeNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[libraryID] = tree
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, libraryIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range libraryIDs {
		delete(c.trees, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func (f *fixture) publish(id uuid.UUID, public bool) *simplenotes.Node {
	f.t.Helper()
	n, err := f.svc.UpdateNode(f.ctx, testUser, id, simplenotes.UpdateNodeRequest{IsPublic: ptr(public)})
	require.NoError(f.t, err)
	return n
}

func TestFindPageBySlug(t *testing.T) {
	f := setup(t)
	lib := f.library("Notes", false)
	page := f.page(lib.ID, nil, "Shared")
	hidden := f.page(lib.ID, nil, "Hidden")

	tag, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "public"})
	require.NoError(t, err)
	require.NoError(t, f.svc.AttachTag(f.ctx, testUser, page.ID, tag.ID))

	page = f.publish(page.ID, true)

	got, err := f.svc.FindPageBySlug(f.ctx, page.PublicSlug)
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "public", got.Tags[0].Name)
	assert.Equal(t, "Notes", got.LibraryTitle)
	assert.Empty(t, got.ParentTitle)

	// Titles of private ancestors are still shown
	child := f.page(lib.ID, hidden, "Nested")
	child = f.publish(child.ID, true)
	got, err = f.svc.FindPageBySlug(f.ctx, child.PublicSlug)
	require.NoError(t, err)
	assert.Equal(t, "Notes", got.LibraryTitle)
	assert.Equal(t, "Hidden", got.ParentTitle)

	// Private pages, libraries and unknown slugs all look the same
	_, err = f.svc.FindPageBySlug(f.ctx, hidden.ID.String())
	assert.ErrorIs(t, err, simplenotes.ErrPageNotFound)

	libNode := f.publish(lib.ID, true)
	_, err = f.svc.FindPageBySlug(f.ctx, libNode.PublicSlug)
	assert.ErrorIs(t, err, simplenotes.ErrPageNotFound)

	_, err = f.svc.FindPageBySlug(f.ctx, "no-such-slug")
	assert.ErrorIs(t, err, simplenotes.ErrPageNotFound)

	_, err = f.svc.FindPageBySlug(f.ctx, "  ")
	assert.ErrorIs(t, err, simplenotes.ErrPageNotFound)

	f.publish(page.ID, false)
	_, err = f.svc.FindPageBySlug(f.ctx, page.PublicSlug)
	assert.ErrorIs(t, err, simplenotes.ErrPageNotFound)
}

func TestFindBySlug_IDFallback(t *testing.T) {
	tests := []struct {
		name     string
		fallback bool
		wantErr  error
	}{
		{"fallback enabled", true, nil},
		{"fallback disabled", false, simplenotes.ErrPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, simplenotes.WithPublicIDFallback(tt.fallback))
			lib := f.library("Notes", false)
			page := f.page(lib.ID, nil, "Shared")
			f.publish(page.ID, true)

			got, err := f.svc.FindPageBySlug(f.ctx, page.ID.String())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, page.ID, got.ID)
		})
	}
}

func TestFindLibraryBySlug(t *testing.T) {
	f := setup(t)
	lib := f.library("Garden", false)
	p1 := f.page(lib.ID, nil, "One")
	f.page(lib.ID, p1, "Child")
	f.page(lib.ID, nil, "Two")

	_, err := f.svc.FindLibraryBySlug(f.ctx, lib.ID.String())
	assert.ErrorIs(t, err, simplenotes.ErrLibraryNotFound)

	lib = f.publish(lib.ID, true)
	f.publish(p1.ID, false)

	got, err := f.svc.FindLibraryBySlug(f.ctx, lib.PublicSlug)
	require.NoError(t, err)
	assert.Equal(t, lib.ID, got.ID)
	assert.Equal(t, 1, got.PageCount)
	assert.NotNil(t, got.Tags)

	pageSlug := f.get(p1.ID).PublicSlug
	_, err = f.svc.FindLibraryBySlug(f.ctx, pageSlug)
	assert.ErrorIs(t, err, simplenotes.ErrLibraryNotFound)
}

func TestGetPublicTree(t *testing.T) {
	f := setup(t)
	lib, err := f.svc.CreateNode(f.ctx, testUser, simplenotes.CreateNodeRequest{Kind: simplenotes.KindLibrary, Title: "Garden"})
	require.NoError(t, err)
	p1 := f.page(lib.ID, nil, "One")
	c1 := f.page(lib.ID, p1, "Child")
	g1 := f.page(lib.ID, c1, "Grandchild")
	p2 := f.page(lib.ID, nil, "Two")

	tree, err := f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)

	// The library stays private; only its pages are published
	f.publish(c1.ID, true)
	f.publish(p2.ID, true)
	require.False(t, f.get(lib.ID).IsPublic)

	tree, err = f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	// The child of a private page becomes a root
	roots := map[uuid.UUID]*simplenotes.TreeNode{}
	for _, n := range tree {
		roots[n.ID] = n
		assert.Nil(t, n.Content)
	}
	require.Contains(t, roots, c1.ID)
	require.Contains(t, roots, p2.ID)
	require.Len(t, roots[c1.ID].Children, 1)
	assert.Equal(t, g1.ID, roots[c1.ID].Children[0].ID)
	assert.Nil(t, roots[c1.ID].Children[0].Content)
	assert.Empty(t, roots[p2.ID].Children)

	// Stripping content for the projection leaves the stored page alone
	assert.NotEmpty(t, f.get(c1.ID).Content)

	_, err = f.svc.GetPublicTree(f.ctx, p2.ID)
	assert.ErrorIs(t, err, simplenotes.ErrLibraryNotFound)
	_, err = f.svc.GetPublicTree(f.ctx, uuid.New())
	assert.ErrorIs(t, err, simplenotes.ErrLibraryNotFound)
}

func TestGetPublicTree_Cache(t *testing.T) {
	cache := newMapCache()
	f := setup(t, simplenotes.WithPublicCache(cache))
	lib := f.library("Garden", true)
	page := f.page(lib.ID, nil, "One")
	f.publish(page.ID, true)

	tree, err := f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, 0, cache.hits)

	_, err = f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	// Writes inside the library drop the cached tree
	f.page(lib.ID, nil, "Two")
	assert.Contains(t, cache.invalidated, lib.ID)

	_, err = f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	// Unpublishing the library cascades and drops the cached tree
	f.publish(lib.ID, false)
	tree, err = f.svc.GetPublicTree(f.ctx, lib.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
	assert.Equal(t, 1, cache.hits)
}

func TestMoveInvalidatesBothLibraries(t *testing.T) {
	cache := newMapCache()
	f := setup(t, simplenotes.WithPublicCache(cache))
	src := f.library("Source", false)
	dst := f.library("Destination", false)
	page := f.page(src.ID, nil, "Moving")

	cache.invalidated = nil
	_, err := f.svc.MoveNode(f.ctx, testUser, page.ID, simplenotes.MoveNodeRequest{NewLibraryID: &dst.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{src.ID, dst.ID}, cache.invalidated)
}

func TestSearchPublic(t *testing.T) {
	f := setup(t)
	lib := f.library("Notes", true)

	recipe, err := f.svc.CreateNode(f.ctx, testUser, simplenotes.CreateNodeRequest{
		Kind:      simplenotes.KindPage,
		LibraryID: lib.ID,
		Title:     "Sourdough Recipe",
	})
	require.NoError(t, err)
	body, err := f.svc.CreateNode(f.ctx, testUser, simplenotes.CreateNodeRequest{
		Kind:      simplenotes.KindPage,
		LibraryID: lib.ID,
		Title:     "Notes",
		Content:   doc("feed the SOURDOUGH starter"),
	})
	require.NoError(t, err)
	private := f.page(lib.ID, nil, "Sourdough secrets")
	f.publish(recipe.ID, true)
	f.clock.Advance(1)
	f.publish(body.ID, true)

	results, err := f.svc.SearchPublic(f.ctx, "sourdough")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, body.ID, results[0].ID)
	assert.Equal(t, recipe.ID, results[1].ID)
	for _, r := range results {
		assert.NotEqual(t, private.ID, r.ID)
	}

	results, err = f.svc.SearchPublic(f.ctx, "   ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results, err = f.svc.SearchPublic(f.ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, results)
}
