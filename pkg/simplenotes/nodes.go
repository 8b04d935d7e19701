package simplenotes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Node operations

func (s *service) CreateNode(ctx context.Context, userID string, req CreateNodeRequest) (*Node, error) {
	node, err := s.buildNode(req, userID)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(repo Repository) error {
		if node.IsPage() {
			if _, err := loadNode(ctx, repo, userID, node.LibraryID, KindLibrary); err != nil {
				return err
			}
			if node.ParentID != nil {
				parent, err := resolveParent(ctx, repo, userID, uuid.Nil, *node.ParentID)
				if err != nil {
					return err
				}
				parentID, err := parentInLibrary(parent, node.LibraryID)
				if err != nil {
					return err
				}
				node.ParentID = parentID
			}
		}

		maxSort, err := repo.MaxSortOrder(ctx, scopeOf(node))
		if err != nil {
			return err
		}
		node.SortOrder = maxSort + 1

		if err := s.assignSlug(ctx, repo, node, req.PublicSlug); err != nil {
			return err
		}

		now := s.clock()
		node.CreatedAt = now
		node.UpdatedAt = now
		return repo.CreateNode(ctx, node)
	})
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Op: "create", Err: err}
	}

	s.logger.Info("node created", "node_id", node.ID, "kind", node.Kind, "library_id", node.LibraryID)
	s.fireCreated(ctx, node)
	s.invalidate(ctx, node.LibraryID)
	return node, nil
}

func (s *service) buildNode(req CreateNodeRequest, userID string) (*Node, error) {
	var (
		node *Node
		err  error
	)
	switch req.Kind {
	case KindLibrary:
		node, err = NewLibrary(userID, req.Title)
	case KindPage:
		node, err = NewPage(userID, req.LibraryID, req.ParentID, req.Title)
	default:
		return nil, ErrInvalidKind
	}
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		if err := req.Content.Validate(); err != nil {
			return nil, err
		}
		node.Content = req.Content.Clone()
	}
	node.Description = req.Description
	node.Icon = req.Icon
	node.CoverImage = req.CoverImage
	node.IsPublic = req.IsPublic
	return node, nil
}

// assignSlug applies an explicitly requested slug, or draws one when the
// node is public and has none.
func (s *service) assignSlug(ctx context.Context, repo Repository, node *Node, requested string) error {
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != node.PublicSlug {
		exists, err := repo.SlugExists(ctx, requested)
		if err != nil {
			return err
		}
		if exists {
			return ErrSlugTaken
		}
		node.PublicSlug = requested
	}
	if node.IsPublic && node.PublicSlug == "" {
		slug, err := s.uniqueSlug(ctx, repo, nil)
		if err != nil {
			return err
		}
		node.PublicSlug = slug
	}
	return nil
}

func (s *service) GetNode(ctx context.Context, userID string, id uuid.UUID) (*NodeDetail, error) {
	node, err := loadNode(ctx, s.store, userID, id, "")
	if err != nil {
		return nil, err
	}

	detail := &NodeDetail{Node: node}

	if node.ParentID != nil {
		parent, err := s.store.GetNode(ctx, userID, *node.ParentID)
		if err != nil && !errors.Is(err, ErrNodeNotFound) {
			return nil, err
		}
		if parent != nil {
			detail.Parent = &ParentRef{ID: parent.ID, Title: parent.Title}
		}
	}

	childFilter := NodeFilter{UserID: userID, Kind: KindPage, SortBy: SortBySortOrder}
	if node.IsLibrary() {
		root := uuid.Nil
		childFilter.LibraryID = &node.ID
		childFilter.ParentID = &root
	} else {
		childFilter.ParentID = &node.ID
	}
	children, _, err := s.store.ListNodes(ctx, childFilter)
	if err != nil {
		return nil, err
	}
	detail.Children = children

	tags, err := s.store.ListNodeTags(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	detail.Tags = tags

	return detail, nil
}

func (s *service) ListNodes(ctx context.Context, userID string, req ListNodesRequest) (*PageList, error) {
	filter, page, pageSize := normalizeList(userID, req)

	items, total, err := s.store.ListNodes(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Node{}
	}

	return &PageList{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  page*pageSize < total,
	}, nil
}

func normalizeList(userID string, req ListNodesRequest) (NodeFilter, int, int) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	kind := req.Kind
	if kind == "" {
		kind = KindPage
	}

	sortBy, desc := parseSort(req.SortBy, req.SortOrder)

	return NodeFilter{
		UserID:    userID,
		Kind:      kind,
		LibraryID: req.LibraryID,
		ParentID:  req.ParentID,
		SortBy:    sortBy,
		Desc:      desc,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}, page, pageSize
}

// parseSort applies the sort allow-list. Unknown fields fall back to
// sortOrder ascending.
func parseSort(field, order string) (SortField, bool) {
	switch SortField(field) {
	case SortByUpdatedAt, SortByCreatedAt, SortByTitle, SortBySortOrder, SortByLastViewedAt:
		return SortField(field), strings.EqualFold(order, "DESC")
	default:
		return SortBySortOrder, false
	}
}

func (s *service) UpdateNode(ctx context.Context, userID string, id uuid.UUID, req UpdateNodeRequest) (*Node, error) {
	var (
		updated  *Node
		version  *Version
		affected []uuid.UUID
	)

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrTitleRequired
	}
	if req.Content != nil {
		if err := req.Content.Validate(); err != nil {
			return nil, err
		}
	}

	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadNode(ctx, repo, userID, id, "")
		if err != nil {
			return err
		}
		affected = append(affected, node.LibraryID)

		if node.IsLibrary() {
			if (req.LibraryID != nil && *req.LibraryID != node.ID) || (req.ParentID != nil && *req.ParentID != uuid.Nil) {
				return ErrLibraryImmovable
			}
		} else {
			dest, err := s.updateDestination(ctx, repo, node, req)
			if err != nil {
				return err
			}
			if dest.changed() {
				if err := s.placeNode(ctx, repo, node, dest, nil); err != nil {
					return err
				}
				affected = append(affected, dest.libraryID)
			}
		}

		if req.Title != nil {
			node.Title = *req.Title
		}
		if req.Content != nil {
			node.Content = req.Content.Clone()
		}
		if req.Description != nil {
			node.Description = *req.Description
		}
		if req.Icon != nil {
			node.Icon = *req.Icon
		}
		if req.CoverImage != nil {
			node.CoverImage = *req.CoverImage
		}
		if req.PublicSlug != nil {
			if err := s.assignSlug(ctx, repo, node, *req.PublicSlug); err != nil {
				return err
			}
		}
		if req.IsPublic != nil {
			node.IsPublic = *req.IsPublic
			if err := s.assignSlug(ctx, repo, node, ""); err != nil {
				return err
			}
		}

		node.UpdatedAt = s.clock()
		if err := repo.UpdateNode(ctx, node); err != nil {
			return err
		}

		if req.IsPublic != nil {
			if err := s.cascadePublic(ctx, repo, node); err != nil {
				return err
			}
		}

		if req.Content != nil {
			version, err = s.autoVersion(ctx, repo, node)
			if err != nil {
				return err
			}
		}

		updated = node
		return nil
	})
	if err != nil {
		return nil, &NodeError{NodeID: id, Op: "update", Err: err}
	}

	s.fireUpdated(ctx, updated)
	s.fireVersions(ctx, version)
	s.invalidate(ctx, affected...)
	return updated, nil
}

func (s *service) DeleteNode(ctx context.Context, userID string, id uuid.UUID) error {
	var (
		libraryID uuid.UUID
		removed   []uuid.UUID
	)

	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadNode(ctx, repo, userID, id, "")
		if err != nil {
			return err
		}
		libraryID = node.LibraryID

		// Enumerate the whole subtree before any row goes away.
		sub, err := subtree(ctx, repo, node)
		if err != nil {
			return err
		}
		removed = make([]uuid.UUID, 0, len(sub)+1)
		for _, d := range sub {
			removed = append(removed, d.ID)
		}
		removed = append(removed, node.ID)

		return repo.DeleteNodes(ctx, userID, removed)
	})
	if err != nil {
		return &NodeError{NodeID: id, Op: "delete", Err: err}
	}

	s.logger.Info("node deleted", "node_id", id, "removed", len(removed))
	s.fireDeleted(ctx, id, removed)
	s.invalidate(ctx, libraryID)
	return nil
}

func (s *service) MarkViewed(ctx context.Context, userID string, id uuid.UUID) error {
	node, err := loadNode(ctx, s.store, userID, id, "")
	if err != nil {
		return err
	}
	now := s.clock()
	node.LastViewedAt = &now
	if err := s.store.UpdateNode(ctx, node); err != nil {
		return &NodeError{NodeID: id, Op: "mark_viewed", Err: err}
	}
	return nil
}
