package simplenotes

import "github.com/google/uuid"

// Request DTOs

// CreateNodeRequest contains parameters for creating a library or a page.
// LibraryID and ParentID are ignored for libraries.
type CreateNodeRequest struct {
	Kind        NodeKind
	Title       string
	LibraryID   uuid.UUID
	ParentID    *uuid.UUID
	Content     Document
	Description string
	Icon        string
	CoverImage  string
	IsPublic    bool
	PublicSlug  string
}

// UpdateNodeRequest contains the fields to change; nil fields are left as is.
//
// ParentID pointing at uuid.Nil moves the page to the root of its library.
// Empty strings clear Icon, CoverImage and Description.
type UpdateNodeRequest struct {
	Title       *string
	Content     Document
	Description *string
	Icon        *string
	CoverImage  *string
	LibraryID   *uuid.UUID
	ParentID    *uuid.UUID
	IsPublic    *bool
	PublicSlug  *string
}

// MoveNodeRequest contains the destination of a move.
//
// NewParentID pointing at uuid.Nil moves the page to the root; nil leaves
// the parent alone. SortOrder, when set, inserts at that position.
type MoveNodeRequest struct {
	NewParentID  *uuid.UUID
	NewLibraryID *uuid.UUID
	SortOrder    *int
}

// ListNodesRequest contains parameters for listing nodes.
type ListNodesRequest struct {
	Kind      NodeKind
	LibraryID *uuid.UUID
	// ParentID pointing at uuid.Nil lists parentless nodes only.
	ParentID  *uuid.UUID
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PageSettingsRequest contains per-page settings.
type PageSettingsRequest struct {
	VersionRetentionLimit *int
}

// CreateTagRequest contains parameters for creating a tag.
type CreateTagRequest struct {
	Name  string
	Color string
}
