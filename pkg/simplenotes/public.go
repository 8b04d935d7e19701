package simplenotes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Public projection. Nothing here is scoped by user; only public nodes are
// ever returned.

// findPublic resolves handle by slug, then by raw node ID when the fallback
// is enabled. Private nodes and nodes of another kind are reported missing.
func (s *service) findPublic(ctx context.Context, handle string, kind NodeKind) (*Node, error) {
	missing := notFoundFor(kind)

	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, missing
	}

	node, err := s.store.GetNodeBySlug(ctx, handle)
	if errors.Is(err, ErrNodeNotFound) && s.publicIDFallback {
		if id, perr := uuid.Parse(handle); perr == nil {
			node, err = s.store.GetNodeByID(ctx, id)
		}
	}
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, missing
		}
		return nil, err
	}
	if !node.IsPublic || node.Kind != kind {
		return nil, missing
	}
	return node, nil
}

func (s *service) publicTags(ctx context.Context, nodeID uuid.UUID) ([]*Tag, error) {
	tags, err := s.store.ListNodeTags(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*Tag{}
	}
	return tags, nil
}

func (s *service) FindPageBySlug(ctx context.Context, slug string) (*PublicPage, error) {
	node, err := s.findPublic(ctx, slug, KindPage)
	if err != nil {
		return nil, err
	}
	tags, err := s.publicTags(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	page := &PublicPage{Node: node, Tags: tags}
	if page.LibraryTitle, err = s.titleOf(ctx, &node.LibraryID); err != nil {
		return nil, err
	}
	if page.ParentTitle, err = s.titleOf(ctx, node.ParentID); err != nil {
		return nil, err
	}
	return page, nil
}

// titleOf returns the title of node id, or "" when id is nil or missing.
func (s *service) titleOf(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	node, err := s.store.GetNodeByID(ctx, *id)
	if errors.Is(err, ErrNodeNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return node.Title, nil
}

func (s *service) FindLibraryBySlug(ctx context.Context, slug string) (*PublicLibrary, error) {
	node, err := s.findPublic(ctx, slug, KindLibrary)
	if err != nil {
		return nil, err
	}
	pages, err := s.store.ListPublicPages(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	tags, err := s.publicTags(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return &PublicLibrary{Node: node, PageCount: len(pages), Tags: tags}, nil
}

// GetPublicTree returns the public pages of a library as a forest. The
// library itself may be private. A public page whose parent is private
// becomes a root. Content is omitted.
func (s *service) GetPublicTree(ctx context.Context, libraryID uuid.UUID) ([]*TreeNode, error) {
	library, err := s.store.GetNodeByID(ctx, libraryID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, ErrLibraryNotFound
		}
		return nil, err
	}
	if !library.IsLibrary() {
		return nil, ErrLibraryNotFound
	}

	if s.cache != nil {
		tree, ok, err := s.cache.GetTree(ctx, libraryID)
		if err != nil {
			s.logger.Warn("public cache read failed", "library_id", libraryID, "err", err)
		} else if ok {
			return tree, nil
		}
	}

	pages, err := s.store.ListPublicPages(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	public := make(map[uuid.UUID]struct{}, len(pages))
	stripped := make([]*Node, 0, len(pages))
	for _, p := range pages {
		public[p.ID] = struct{}{}
		c := p.Clone()
		c.Content = nil
		stripped = append(stripped, c)
	}

	tree := buildForest(stripped, func(n *Node) bool {
		if n.ParentID == nil {
			return true
		}
		_, ok := public[*n.ParentID]
		return !ok
	})

	if s.cache != nil {
		if err := s.cache.SetTree(ctx, libraryID, tree); err != nil {
			s.logger.Warn("public cache write failed", "library_id", libraryID, "err", err)
		}
	}
	return tree, nil
}

// SearchPublic matches public pages whose title or content contains query.
func (s *service) SearchPublic(ctx context.Context, query string) ([]*Node, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Node{}, nil
	}
	nodes, err := s.store.SearchPublicPages(ctx, query, publicSearchLimit)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []*Node{}
	}
	return nodes, nil
}
