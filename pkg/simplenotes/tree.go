package simplenotes

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// destination is where a page ends up after an update or move.
type destination struct {
	libraryID      uuid.UUID
	parentID       *uuid.UUID
	libraryChanged bool
	parentChanged  bool
}

func (d destination) changed() bool {
	return d.libraryChanged || d.parentChanged
}

func scopeOf(node *Node) SiblingScope {
	if node.IsLibrary() {
		return SiblingScope{UserID: node.UserID, Kind: KindLibrary}
	}
	return SiblingScope{UserID: node.UserID, Kind: KindPage, LibraryID: node.LibraryID, ParentID: node.ParentID}
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// resolveParent loads a candidate parent for nodeID. A zero nodeID skips the
// cycle check (the node does not exist yet).
func resolveParent(ctx context.Context, repo Repository, userID string, nodeID, parentID uuid.UUID) (*Node, error) {
	if nodeID != uuid.Nil && parentID == nodeID {
		return nil, ErrCircularReference
	}
	parent, err := repo.GetNode(ctx, userID, parentID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	if nodeID != uuid.Nil && parent.IsPage() {
		if err := checkCycle(ctx, repo, userID, nodeID, parent.ID); err != nil {
			return nil, err
		}
	}
	return parent, nil
}

// parentInLibrary returns the parent ID to store for a page of libraryID.
// A library given as parent means the root of that library.
func parentInLibrary(parent *Node, libraryID uuid.UUID) (*uuid.UUID, error) {
	if parent.IsLibrary() {
		if parent.ID == libraryID {
			return nil, nil
		}
		return nil, ErrCrossLibraryParent
	}
	if parent.LibraryID != libraryID {
		return nil, ErrCrossLibraryParent
	}
	id := parent.ID
	return &id, nil
}

// checkCycle fails when nodeID is parentID or one of its ancestors. The
// ancestor walk is unbounded in depth and ends at a repeated node.
func checkCycle(ctx context.Context, repo Repository, userID string, nodeID, parentID uuid.UUID) error {
	if nodeID == parentID {
		return ErrCircularReference
	}
	ancestors, err := repo.AncestorIDs(ctx, userID, parentID, 0)
	if err != nil {
		return err
	}
	for _, id := range ancestors {
		if id == nodeID {
			return ErrCircularReference
		}
	}
	return nil
}

// subtree returns every node below node: all pages of a library, or the
// descendant closure of a page.
func subtree(ctx context.Context, repo Repository, node *Node) ([]*Node, error) {
	if node.IsLibrary() {
		libraryID := node.ID
		pages, _, err := repo.ListNodes(ctx, NodeFilter{UserID: node.UserID, Kind: KindPage, LibraryID: &libraryID})
		return pages, err
	}
	return repo.Descendants(ctx, node.UserID, node.ID)
}

// cascadePublic copies node's visibility to its whole subtree and gives a
// slug to every newly public node lacking one. Slugs are never revoked.
func (s *service) cascadePublic(ctx context.Context, repo Repository, node *Node) error {
	sub, err := subtree(ctx, repo, node)
	if err != nil {
		return err
	}
	reserved := map[string]struct{}{}
	for _, d := range sub {
		changed := d.IsPublic != node.IsPublic
		d.IsPublic = node.IsPublic
		if d.IsPublic && d.PublicSlug == "" {
			slug, err := s.uniqueSlug(ctx, repo, reserved)
			if err != nil {
				return &NodeError{NodeID: d.ID, Op: "cascade_public", Err: err}
			}
			d.PublicSlug = slug
			changed = true
		}
		if !changed {
			continue
		}
		if err := repo.UpdateNode(ctx, d); err != nil {
			return &NodeError{NodeID: d.ID, Op: "cascade_public", Err: err}
		}
	}
	return nil
}

func (s *service) updateDestination(ctx context.Context, repo Repository, node *Node, req UpdateNodeRequest) (destination, error) {
	dest := destination{libraryID: node.LibraryID, parentID: node.ParentID}

	if req.LibraryID != nil && *req.LibraryID != node.LibraryID {
		library, err := loadNode(ctx, repo, node.UserID, *req.LibraryID, KindLibrary)
		if err != nil {
			return dest, err
		}
		dest.libraryID = library.ID
		dest.libraryChanged = true
	}

	switch {
	case req.ParentID != nil && *req.ParentID == uuid.Nil:
		dest.parentID = nil
	case req.ParentID != nil && (!sameParent(node.ParentID, req.ParentID) || dest.libraryChanged):
		parent, err := resolveParent(ctx, repo, node.UserID, node.ID, *req.ParentID)
		if err != nil {
			return dest, err
		}
		parentID, err := parentInLibrary(parent, dest.libraryID)
		if err != nil {
			return dest, err
		}
		dest.parentID = parentID
	case req.ParentID == nil && dest.libraryChanged:
		// The old parent stays behind in the old library.
		dest.parentID = nil
	}
	dest.parentChanged = !sameParent(node.ParentID, dest.parentID)

	return dest, nil
}

// placeNode moves node into dest. With sortOrder set, siblings at or after
// that position shift up by one; otherwise a changed scope appends after the
// current maximum. Descendants follow the node into a new library.
func (s *service) placeNode(ctx context.Context, repo Repository, node *Node, dest destination, sortOrder *int) error {
	scope := SiblingScope{UserID: node.UserID, Kind: KindPage, LibraryID: dest.libraryID, ParentID: dest.parentID}

	switch {
	case sortOrder != nil:
		if err := repo.ShiftSortOrders(ctx, scope, *sortOrder, node.ID); err != nil {
			return err
		}
		node.SortOrder = *sortOrder
	case dest.changed():
		maxSort, err := repo.MaxSortOrder(ctx, scope)
		if err != nil {
			return err
		}
		node.SortOrder = maxSort + 1
	}

	if dest.libraryChanged {
		descendants, err := repo.Descendants(ctx, node.UserID, node.ID)
		if err != nil {
			return err
		}
		for _, d := range descendants {
			d.LibraryID = dest.libraryID
			if err := repo.UpdateNode(ctx, d); err != nil {
				return &NodeError{NodeID: d.ID, Op: "rehome", Err: err}
			}
		}
	}

	node.LibraryID = dest.libraryID
	node.ParentID = dest.parentID
	return nil
}

func (s *service) MoveNode(ctx context.Context, userID string, id uuid.UUID, req MoveNodeRequest) (*Node, error) {
	var (
		moved    *Node
		affected []uuid.UUID
	)

	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadNode(ctx, repo, userID, id, "")
		if err != nil {
			return err
		}
		if node.IsLibrary() {
			return ErrLibraryImmovable
		}
		affected = append(affected, node.LibraryID)

		dest := destination{libraryID: node.LibraryID, parentID: node.ParentID}

		if req.NewLibraryID != nil && *req.NewLibraryID != node.LibraryID {
			library, err := loadNode(ctx, repo, userID, *req.NewLibraryID, KindLibrary)
			if err != nil {
				return err
			}
			dest.libraryID = library.ID
			dest.libraryChanged = true
			// Without a new parent the page lands at the root of the new library.
			dest.parentID = nil
		}

		if req.NewParentID != nil {
			if *req.NewParentID == uuid.Nil {
				dest.parentID = nil
			} else {
				parent, err := resolveParent(ctx, repo, userID, node.ID, *req.NewParentID)
				if err != nil {
					return err
				}
				target := parent.LibraryID
				if req.NewLibraryID != nil && *req.NewLibraryID != target {
					return ErrCrossLibraryParent
				}
				parentID, err := parentInLibrary(parent, target)
				if err != nil {
					return err
				}
				dest.parentID = parentID
				dest.libraryID = target
				dest.libraryChanged = target != node.LibraryID
			}
		}
		// An explicit root move always re-appends, like any parent change.
		dest.parentChanged = req.NewParentID != nil || !sameParent(node.ParentID, dest.parentID)

		if err := s.placeNode(ctx, repo, node, dest, req.SortOrder); err != nil {
			return err
		}
		affected = append(affected, node.LibraryID)

		node.UpdatedAt = s.clock()
		if err := repo.UpdateNode(ctx, node); err != nil {
			return err
		}
		moved = node
		return nil
	})
	if err != nil {
		return nil, &NodeError{NodeID: id, Op: "move", Err: err}
	}

	s.logger.Info("node moved", "node_id", id, "library_id", moved.LibraryID, "sort_order", moved.SortOrder)
	s.fireUpdated(ctx, moved)
	s.invalidate(ctx, affected...)
	return moved, nil
}

func (s *service) GetTree(ctx context.Context, userID string, libraryID uuid.UUID) ([]*TreeNode, error) {
	if _, err := loadNode(ctx, s.store, userID, libraryID, KindLibrary); err != nil {
		return nil, err
	}
	pages, _, err := s.store.ListNodes(ctx, NodeFilter{
		UserID:    userID,
		Kind:      KindPage,
		LibraryID: &libraryID,
		SortBy:    SortBySortOrder,
	})
	if err != nil {
		return nil, err
	}
	return buildForest(pages, func(n *Node) bool { return n.ParentID == nil }), nil
}

// buildForest nests nodes (already in sibling order) under their parents,
// starting from the nodes isRoot accepts.
func buildForest(nodes []*Node, isRoot func(*Node) bool) []*TreeNode {
	children := make(map[uuid.UUID][]*Node)
	var roots []*Node
	for _, n := range nodes {
		if isRoot(n) {
			roots = append(roots, n)
			continue
		}
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	visited := make(map[uuid.UUID]bool, len(nodes))
	var build func(n *Node) *TreeNode
	build = func(n *Node) *TreeNode {
		visited[n.ID] = true
		tn := &TreeNode{Node: n, Children: []*TreeNode{}}
		for _, c := range children[n.ID] {
			if visited[c.ID] {
				continue
			}
			tn.Children = append(tn.Children, build(c))
		}
		return tn
	}

	forest := make([]*TreeNode, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, build(r))
	}
	return forest
}
