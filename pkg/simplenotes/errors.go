package simplenotes

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error kinds. Every error returned by the service wraps exactly one of them.
var (
	// ErrNotFound covers missing entities and entities owned by another user
	ErrNotFound = errors.New("not found")

	// ErrConflict covers uniqueness violations and tree invariant violations
	ErrConflict = errors.New("conflict")

	// ErrBadRequest covers invalid input values
	ErrBadRequest = errors.New("bad request")
)

// Specific errors
var (
	ErrNodeNotFound    = fmt.Errorf("node %w", ErrNotFound)
	ErrPageNotFound    = fmt.Errorf("page %w", ErrNotFound)
	ErrLibraryNotFound = fmt.Errorf("library %w", ErrNotFound)
	ErrParentNotFound  = fmt.Errorf("parent page %w", ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)
	ErrTagNotFound     = fmt.Errorf("tag %w", ErrNotFound)
	ErrTagNotAttached  = fmt.Errorf("tag is not attached to this page: %w", ErrNotFound)

	ErrCircularReference  = fmt.Errorf("circular reference: %w", ErrConflict)
	ErrCrossLibraryParent = fmt.Errorf("parent page must belong to the same library: %w", ErrConflict)
	ErrSlugTaken          = fmt.Errorf("public slug already exists: %w", ErrConflict)
	ErrTagExists          = fmt.Errorf("tag with this name already exists: %w", ErrConflict)
	ErrTagAlreadyAttached = fmt.Errorf("tag is already attached to this page: %w", ErrConflict)

	ErrInvalidRetentionLimit = fmt.Errorf("version retention limit must be non-negative: %w", ErrBadRequest)
	ErrInvalidCleanupPeriod  = fmt.Errorf("cleanup period must be day, week or month: %w", ErrBadRequest)
	ErrTitleRequired         = fmt.Errorf("title is required: %w", ErrBadRequest)
	ErrTagNameRequired       = fmt.Errorf("tag name is required: %w", ErrBadRequest)
	ErrInvalidKind           = fmt.Errorf("invalid node kind: %w", ErrBadRequest)
	ErrLibraryImmovable      = fmt.Errorf("libraries have no parent and cannot be moved: %w", ErrBadRequest)
	ErrInvalidDocument       = fmt.Errorf("content must be a JSON object: %w", ErrBadRequest)
)

// NodeError represents an error related to node operations
type NodeError struct {
	NodeID uuid.UUID
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node operation %s failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// TagNotFoundError names the tag that could not be resolved
type TagNotFoundError struct {
	TagID uuid.UUID
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag not found: %s", e.TagID)
}

func (e *TagNotFoundError) Unwrap() error {
	return ErrTagNotFound
}

// IsNotFound reports whether err is a NotFound failure
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a Conflict failure
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsBadRequest reports whether err is a BadRequest failure
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }
