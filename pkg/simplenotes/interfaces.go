package simplenotes

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for node, version and tag persistence.
//
// Node reads are scoped by user ID unless the method name says otherwise;
// a row owned by another user is reported as ErrNodeNotFound.
type Repository interface {
	// Node operations
	CreateNode(ctx context.Context, node *Node) error
	GetNode(ctx context.Context, userID string, id uuid.UUID) (*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNodes(ctx context.Context, userID string, ids []uuid.UUID) error
	ListNodes(ctx context.Context, filter NodeFilter) ([]*Node, int, error)

	// Tree queries. AncestorIDs treats maxDepth <= 0 as unbounded.
	AncestorIDs(ctx context.Context, userID string, id uuid.UUID, maxDepth int) ([]uuid.UUID, error)
	Descendants(ctx context.Context, userID string, id uuid.UUID) ([]*Node, error)
	MaxSortOrder(ctx context.Context, scope SiblingScope) (int, error)
	ShiftSortOrders(ctx context.Context, scope SiblingScope, from int, exclude uuid.UUID) error

	// Public lookups (not user scoped)
	GetNodeBySlug(ctx context.Context, slug string) (*Node, error)
	GetNodeByID(ctx context.Context, id uuid.UUID) (*Node, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListPublicPages(ctx context.Context, libraryID uuid.UUID) ([]*Node, error)
	SearchPublicPages(ctx context.Context, query string, limit int) ([]*Node, error)

	// Version operations
	CreateVersion(ctx context.Context, version *Version) error
	GetVersion(ctx context.Context, pageID, versionID uuid.UUID) (*Version, error)
	LatestVersion(ctx context.Context, pageID uuid.UUID) (*Version, error)
	ListVersions(ctx context.Context, pageID uuid.UUID) ([]*Version, error)
	CountVersions(ctx context.Context, pageID uuid.UUID) (int, error)
	DeleteVersion(ctx context.Context, pageID, versionID uuid.UUID) error
	DeleteVersionsBefore(ctx context.Context, pageID uuid.UUID, cutoff time.Time) (int, error)
	TrimVersions(ctx context.Context, pageID uuid.UUID, keep int) (int, error)

	// Tag operations
	CreateTag(ctx context.Context, tag *Tag) error
	GetTag(ctx context.Context, id uuid.UUID) (*Tag, error)
	GetTagByName(ctx context.Context, name string) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)
	DeleteTag(ctx context.Context, id uuid.UUID) error

	// Page/tag associations
	AttachTag(ctx context.Context, pageID, tagID uuid.UUID) error
	DetachTag(ctx context.Context, pageID, tagID uuid.UUID) error
	HasTag(ctx context.Context, pageID, tagID uuid.UUID) (bool, error)
	ClearTags(ctx context.Context, pageID uuid.UUID) error
	ListNodeTags(ctx context.Context, pageID uuid.UUID) ([]*Tag, error)

	// Statistics
	CountUserVersions(ctx context.Context, userID string) (int, error)
}

// Store is a Repository that can run a function inside a transaction.
//
// The Repository handed to fn sees its own writes; they become visible to
// other callers only when fn returns nil.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(repo Repository) error) error
}

// SiblingScope identifies the sibling set that shares sort order: nodes of
// one kind with the same library and parent. Libraries are scoped per user.
type SiblingScope struct {
	UserID    string
	Kind      NodeKind
	LibraryID uuid.UUID
	ParentID  *uuid.UUID
}

// SortField is an allow-listed list ordering column.
type SortField string

// Sort field constants (typed).
const (
	SortByUpdatedAt    SortField = "updatedAt"
	SortByCreatedAt    SortField = "createdAt"
	SortByTitle        SortField = "title"
	SortBySortOrder    SortField = "sortOrder"
	SortByLastViewedAt SortField = "lastViewedAt"
)

// NodeFilter narrows ListNodes.
type NodeFilter struct {
	UserID    string
	Kind      NodeKind
	LibraryID *uuid.UUID
	// ParentID filters by parent; a pointer to uuid.Nil matches parentless nodes.
	ParentID *uuid.UUID
	IsPublic *bool
	SortBy   SortField
	Desc     bool
	Offset   int
	// Limit of zero returns every match.
	Limit int
}

// EventSink defines the interface for event handling
type EventSink interface {
	// NodeCreated is fired when a library or page is created
	NodeCreated(ctx context.Context, node *Node) error

	// NodeUpdated is fired when a node is updated or moved
	NodeUpdated(ctx context.Context, node *Node) error

	// NodeDeleted is fired once per delete with every removed node ID
	NodeDeleted(ctx context.Context, rootID uuid.UUID, removed []uuid.UUID) error

	// VersionCreated is fired when a version snapshot is written
	VersionCreated(ctx context.Context, version *Version) error
}

// PublicCache stores rendered public trees per library.
type PublicCache interface {
	GetTree(ctx context.Context, libraryID uuid.UUID) ([]*TreeNode, bool, error)
	SetTree(ctx context.Context, libraryID uuid.UUID, tree []*TreeNode) error
	Invalidate(ctx context.Context, libraryIDs ...uuid.UUID) error
}
