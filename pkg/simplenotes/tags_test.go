package simplenotes_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

func TestTagCatalogue(t *testing.T) {
	f := setup(t)

	tag, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "  golang ", Color: "#00ADD8"})
	require.NoError(t, err)
	assert.Equal(t, "golang", tag.Name)
	assert.Equal(t, "#00ADD8", tag.Color)

	_, err = f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "golang"})
	assert.ErrorIs(t, err, simplenotes.ErrTagExists)

	_, err = f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "   "})
	assert.ErrorIs(t, err, simplenotes.ErrTagNameRequired)

	_, err = f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "alpha"})
	require.NoError(t, err)

	tags, err := f.svc.ListTags(f.ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "alpha", tags[0].Name)
	assert.Equal(t, "golang", tags[1].Name)

	got, err := f.svc.GetTag(f.ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, tag.ID, got.ID)

	missing := uuid.New()
	_, err = f.svc.GetTag(f.ctx, missing)
	var notFound *simplenotes.TagNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, missing, notFound.TagID)
	assert.True(t, simplenotes.IsNotFound(err))

	require.NoError(t, f.svc.DeleteTag(f.ctx, tag.ID))
	assert.ErrorIs(t, f.svc.DeleteTag(f.ctx, tag.ID), simplenotes.ErrTagNotFound)
}

func TestTagAssociations(t *testing.T) {
	f := setup(t)
	lib := f.library("Notes", false)
	page := f.page(lib.ID, nil, "Tagged")

	work, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "work"})
	require.NoError(t, err)
	idea, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "idea"})
	require.NoError(t, err)

	require.NoError(t, f.svc.AttachTag(f.ctx, testUser, page.ID, work.ID))
	require.NoError(t, f.svc.AttachTag(f.ctx, testUser, page.ID, idea.ID))

	err = f.svc.AttachTag(f.ctx, testUser, page.ID, work.ID)
	assert.ErrorIs(t, err, simplenotes.ErrTagAlreadyAttached)
	assert.True(t, simplenotes.IsConflict(err))

	err = f.svc.AttachTag(f.ctx, testUser, page.ID, uuid.New())
	assert.ErrorIs(t, err, simplenotes.ErrTagNotFound)

	tags, err := f.svc.ListPageTags(f.ctx, testUser, page.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "idea", tags[0].Name)

	detail := f.get(page.ID)
	assert.Len(t, detail.Tags, 2)

	require.NoError(t, f.svc.DetachTag(f.ctx, testUser, page.ID, idea.ID))
	err = f.svc.DetachTag(f.ctx, testUser, page.ID, idea.ID)
	assert.ErrorIs(t, err, simplenotes.ErrTagNotAttached)

	// Deleting a tag drops its links
	require.NoError(t, f.svc.DeleteTag(f.ctx, work.ID))
	tags, err = f.svc.ListPageTags(f.ctx, testUser, page.ID)
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)

	// Another user's page is invisible
	err = f.svc.AttachTag(f.ctx, "user-2", page.ID, idea.ID)
	assert.True(t, simplenotes.IsNotFound(err))
	_, err = f.svc.ListPageTags(f.ctx, "user-2", page.ID)
	assert.True(t, simplenotes.IsNotFound(err))
}

func TestReplaceTags(t *testing.T) {
	f := setup(t)
	lib := f.library("Notes", false)
	page := f.page(lib.ID, nil, "Tagged")

	a, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "a"})
	require.NoError(t, err)
	b, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "b"})
	require.NoError(t, err)
	c, err := f.svc.CreateTag(f.ctx, simplenotes.CreateTagRequest{Name: "c"})
	require.NoError(t, err)

	require.NoError(t, f.svc.AttachTag(f.ctx, testUser, page.ID, a.ID))

	require.NoError(t, f.svc.ReplaceTags(f.ctx, testUser, page.ID, []uuid.UUID{b.ID, c.ID, b.ID}))
	tags, err := f.svc.ListPageTags(f.ctx, testUser, page.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "b", tags[0].Name)
	assert.Equal(t, "c", tags[1].Name)

	// An unknown tag leaves the set untouched
	missing := uuid.New()
	err = f.svc.ReplaceTags(f.ctx, testUser, page.ID, []uuid.UUID{a.ID, missing})
	var notFound *simplenotes.TagNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, missing, notFound.TagID)

	tags, err = f.svc.ListPageTags(f.ctx, testUser, page.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	require.NoError(t, f.svc.ReplaceTags(f.ctx, testUser, page.ID, nil))
	tags, err = f.svc.ListPageTags(f.ctx, testUser, page.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
