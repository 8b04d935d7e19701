package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
	"github.com/tendant/simple-notes/pkg/simplenotes/admin"
	"github.com/tendant/simple-notes/pkg/simplenotes/repo/memory"
)

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc, err := simplenotes.New(simplenotes.WithStore(store))
	require.NoError(t, err)

	lib, err := svc.CreateNode(ctx, "user-1", simplenotes.CreateNodeRequest{Kind: simplenotes.KindLibrary, Title: "Notes", IsPublic: true})
	require.NoError(t, err)
	page, err := svc.CreateNode(ctx, "user-1", simplenotes.CreateNodeRequest{Kind: simplenotes.KindPage, LibraryID: lib.ID, Title: "One"})
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, "user-1", simplenotes.CreateNodeRequest{Kind: simplenotes.KindPage, LibraryID: lib.ID, Title: "Two"})
	require.NoError(t, err)
	_, err = svc.CreateVersion(ctx, "user-1", page.ID, "snapshot")
	require.NoError(t, err)
	_, err = svc.CreateTag(ctx, simplenotes.CreateTagRequest{Name: "go"})
	require.NoError(t, err)

	// Another user's data is not counted
	_, err = svc.CreateNode(ctx, "user-2", simplenotes.CreateNodeRequest{Kind: simplenotes.KindLibrary, Title: "Other"})
	require.NoError(t, err)

	resp, err := admin.New(store).GetStatistics(ctx, admin.StatisticsRequest{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, 1, resp.Statistics.Libraries)
	assert.Equal(t, 2, resp.Statistics.Pages)
	assert.Equal(t, 1, resp.Statistics.PublicNodes)
	assert.Equal(t, 1, resp.Statistics.Versions)
	assert.Equal(t, 1, resp.Statistics.Tags)
	assert.False(t, resp.GeneratedAt.IsZero())
}

func TestGetStatistics_RequiresUser(t *testing.T) {
	_, err := admin.New(memory.New()).GetStatistics(context.Background(), admin.StatisticsRequest{})
	assert.ErrorIs(t, err, admin.ErrUserRequired)
}
