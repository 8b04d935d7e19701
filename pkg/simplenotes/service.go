package simplenotes

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-notes library
type Service interface {
	// Node operations
	CreateNode(ctx context.Context, userID string, req CreateNodeRequest) (*Node, error)
	GetNode(ctx context.Context, userID string, id uuid.UUID) (*NodeDetail, error)
	ListNodes(ctx context.Context, userID string, req ListNodesRequest) (*PageList, error)
	UpdateNode(ctx context.Context, userID string, id uuid.UUID, req UpdateNodeRequest) (*Node, error)
	DeleteNode(ctx context.Context, userID string, id uuid.UUID) error
	MarkViewed(ctx context.Context, userID string, id uuid.UUID) error

	// Tree operations
	MoveNode(ctx context.Context, userID string, id uuid.UUID, req MoveNodeRequest) (*Node, error)
	GetTree(ctx context.Context, userID string, libraryID uuid.UUID) ([]*TreeNode, error)

	// Version history
	ListVersions(ctx context.Context, userID string, pageID uuid.UUID) ([]*Version, error)
	CreateVersion(ctx context.Context, userID string, pageID uuid.UUID, message string) (*Version, error)
	CreateAutomaticVersionIfApplicable(ctx context.Context, userID string, pageID uuid.UUID) (*Version, error)
	RestoreVersion(ctx context.Context, userID string, pageID, versionID uuid.UUID) (*Node, error)
	CleanupVersions(ctx context.Context, userID string, pageID uuid.UUID, period CleanupPeriod) (int, error)
	DeleteVersion(ctx context.Context, userID string, pageID, versionID uuid.UUID) error
	UpdatePageSettings(ctx context.Context, userID string, pageID uuid.UUID, req PageSettingsRequest) (*Node, error)

	// Tag catalogue
	CreateTag(ctx context.Context, req CreateTagRequest) (*Tag, error)
	GetTag(ctx context.Context, id uuid.UUID) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error

	// Tag associations
	AttachTag(ctx context.Context, userID string, pageID, tagID uuid.UUID) error
	DetachTag(ctx context.Context, userID string, pageID, tagID uuid.UUID) error
	ReplaceTags(ctx context.Context, userID string, pageID uuid.UUID, tagIDs []uuid.UUID) error
	ListPageTags(ctx context.Context, userID string, pageID uuid.UUID) ([]*Tag, error)

	// Public projection
	FindPageBySlug(ctx context.Context, slug string) (*PublicPage, error)
	FindLibraryBySlug(ctx context.Context, slug string) (*PublicLibrary, error)
	GetPublicTree(ctx context.Context, libraryID uuid.UUID) ([]*TreeNode, error)
	SearchPublic(ctx context.Context, query string) ([]*Node, error)
}
