package simplenotes

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeKind tags a Node as a library or a page.
type NodeKind string

// Node kind constants (typed).
const (
	KindLibrary NodeKind = "library"
	KindPage    NodeKind = "page"
)

// Valid reports whether k is a known kind.
func (k NodeKind) Valid() bool {
	return k == KindLibrary || k == KindPage
}

// MetadataVersionRetentionLimit is the metadata key holding the per-node
// version retention limit.
const MetadataVersionRetentionLimit = "versionRetentionLimit"

// DefaultVersionRetentionLimit applies when a node carries no explicit limit.
const DefaultVersionRetentionLimit = 99

// Document is a rich-text document stored verbatim as JSON.
type Document []byte

// EmptyDocument returns a fresh empty editor document.
func EmptyDocument() Document {
	return Document(`{"type":"doc","content":[]}`)
}

// MarshalJSON emits the document as raw JSON.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps a copy of the raw JSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], data...)
	return nil
}

// Clone returns an independent copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return append(Document(nil), d...)
}

// Validate checks that the document is a JSON object.
func (d Document) Validate() error {
	trimmed := bytes.TrimSpace(d)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidDocument
	}
	return nil
}

// Node is a library or a page. Both kinds share one record; the Kind field
// tells them apart.
//
// A library is self-rooted: its LibraryID equals its ID and it never has a
// parent. A page always belongs to a library and optionally nests under
// another page of the same library.
type Node struct {
	ID           uuid.UUID              `json:"id"`
	Kind         NodeKind               `json:"type"`
	Title        string                 `json:"title"`
	Content      Document               `json:"content"`
	Description  string                 `json:"description,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	CoverImage   string                 `json:"coverImage,omitempty"`
	IsPublic     bool                   `json:"isPublic"`
	PublicSlug   string                 `json:"publicSlug,omitempty"`
	SortOrder    int                    `json:"sortOrder"`
	ParentID     *uuid.UUID             `json:"parentId"`
	LibraryID    uuid.UUID              `json:"libraryId"`
	Metadata     map[string]interface{} `json:"metadata"`
	UserID       string                 `json:"userId"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	LastViewedAt *time.Time             `json:"lastViewedAt,omitempty"`
}

// NewLibrary builds a library node owned by userID.
func NewLibrary(userID, title string) (*Node, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	id := uuid.New()
	return &Node{
		ID:        id,
		Kind:      KindLibrary,
		Title:     title,
		Content:   EmptyDocument(),
		LibraryID: id,
		Metadata:  map[string]interface{}{},
		UserID:    userID,
	}, nil
}

// NewPage builds a page node inside libraryID, optionally under parentID.
func NewPage(userID string, libraryID uuid.UUID, parentID *uuid.UUID, title string) (*Node, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if libraryID == uuid.Nil {
		return nil, ErrLibraryNotFound
	}
	return &Node{
		ID:        uuid.New(),
		Kind:      KindPage,
		Title:     title,
		Content:   EmptyDocument(),
		ParentID:  normalizeParent(parentID),
		LibraryID: libraryID,
		Metadata:  map[string]interface{}{},
		UserID:    userID,
	}, nil
}

// IsLibrary reports whether n is a library.
func (n *Node) IsLibrary() bool { return n.Kind == KindLibrary }

// IsPage reports whether n is a page.
func (n *Node) IsPage() bool { return n.Kind == KindPage }

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Content = n.Content.Clone()
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.LastViewedAt != nil {
		t := *n.LastViewedAt
		c.LastViewedAt = &t
	}
	c.Metadata = cloneMetadata(n.Metadata)
	return &c
}

// RetentionLimit returns the node's version retention limit, falling back
// to def when the metadata carries none or an unusable value.
func (n *Node) RetentionLimit(def int) int {
	raw, ok := n.Metadata[MetadataVersionRetentionLimit]
	if !ok || raw == nil {
		return def
	}
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) {
			return def
		}
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}

func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func normalizeParent(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	p := *id
	return &p
}

// Version is an immutable snapshot of a node's content.
type Version struct {
	ID        uuid.UUID `json:"id"`
	PageID    uuid.UUID `json:"pageId"`
	Content   Document  `json:"content"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag is a globally named label.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParentRef is the one-level parent projection of a node.
type ParentRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// NodeDetail is a node assembled with its parent, immediate children and tags.
type NodeDetail struct {
	*Node
	Parent   *ParentRef `json:"parent"`
	Children []*Node    `json:"children"`
	Tags     []*Tag     `json:"tags"`
}

// TreeNode is a node with its nested children.
type TreeNode struct {
	*Node
	Children []*TreeNode `json:"children"`
}

// PageList is a page of list results.
type PageList struct {
	Items    []*Node `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	HasMore  bool    `json:"hasMore"`
}

// PublicPage is the unauthenticated projection of a page. LibraryTitle and
// ParentTitle are filled even when those nodes are private.
type PublicPage struct {
	*Node
	LibraryTitle string `json:"libraryTitle,omitempty"`
	ParentTitle  string `json:"parentTitle,omitempty"`
	Tags         []*Tag `json:"tags"`
}

// PublicLibrary is the unauthenticated projection of a library.
type PublicLibrary struct {
	*Node
	PageCount int    `json:"pageCount"`
	Tags      []*Tag `json:"tags"`
}

// CleanupPeriod selects the age threshold for version cleanup.
type CleanupPeriod string

// Cleanup period constants (typed).
const (
	CleanupDay   CleanupPeriod = "day"
	CleanupWeek  CleanupPeriod = "week"
	CleanupMonth CleanupPeriod = "month"
)

// Cutoff returns the instant before which versions are considered old.
func (p CleanupPeriod) Cutoff(now time.Time) (time.Time, error) {
	switch p {
	case CleanupDay:
		return now.AddDate(0, 0, -1), nil
	case CleanupWeek:
		return now.AddDate(0, 0, -7), nil
	case CleanupMonth:
		return now.AddDate(0, -1, 0), nil
	default:
		return time.Time{}, ErrInvalidCleanupPeriod
	}
}
