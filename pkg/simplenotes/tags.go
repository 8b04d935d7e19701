package simplenotes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Tag catalogue

func (s *service) CreateTag(ctx context.Context, req CreateTagRequest) (*Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrTagNameRequired
	}

	tag := &Tag{
		ID:        NewID(),
		Name:      name,
		Color:     strings.TrimSpace(req.Color),
		CreatedAt: s.clock(),
	}

	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetTagByName(ctx, name)
		if err != nil && !errors.Is(err, ErrTagNotFound) {
			return err
		}
		if existing != nil {
			return ErrTagExists
		}
		return repo.CreateTag(ctx, tag)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag created", "tag_id", tag.ID, "name", tag.Name)
	return tag, nil
}

func (s *service) GetTag(ctx context.Context, id uuid.UUID) (*Tag, error) {
	tag, err := s.store.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return nil, &TagNotFoundError{TagID: id}
		}
		return nil, err
	}
	return tag, nil
}

func (s *service) ListTags(ctx context.Context) ([]*Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*Tag{}
	}
	return tags, nil
}

// DeleteTag removes a tag and every association pointing to it.
func (s *service) DeleteTag(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return &TagNotFoundError{TagID: id}
		}
		return err
	}
	s.logger.Info("tag deleted", "tag_id", id)
	return nil
}

// Tag associations

func requireTag(ctx context.Context, repo Repository, id uuid.UUID) error {
	if _, err := repo.GetTag(ctx, id); err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return &TagNotFoundError{TagID: id}
		}
		return err
	}
	return nil
}

func (s *service) AttachTag(ctx context.Context, userID string, pageID, tagID uuid.UUID) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		if _, err := loadNode(ctx, repo, userID, pageID, ""); err != nil {
			return err
		}
		if err := requireTag(ctx, repo, tagID); err != nil {
			return err
		}
		attached, err := repo.HasTag(ctx, pageID, tagID)
		if err != nil {
			return err
		}
		if attached {
			return ErrTagAlreadyAttached
		}
		return repo.AttachTag(ctx, pageID, tagID)
	})
	if err != nil {
		return &NodeError{NodeID: pageID, Op: "attach_tag", Err: err}
	}
	return nil
}

func (s *service) DetachTag(ctx context.Context, userID string, pageID, tagID uuid.UUID) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		if _, err := loadNode(ctx, repo, userID, pageID, ""); err != nil {
			return err
		}
		attached, err := repo.HasTag(ctx, pageID, tagID)
		if err != nil {
			return err
		}
		if !attached {
			return ErrTagNotAttached
		}
		return repo.DetachTag(ctx, pageID, tagID)
	})
	if err != nil {
		return &NodeError{NodeID: pageID, Op: "detach_tag", Err: err}
	}
	return nil
}

// ReplaceTags sets the page's tags to exactly tagIDs. Every ID is checked
// before anything changes; duplicates collapse.
func (s *service) ReplaceTags(ctx context.Context, userID string, pageID uuid.UUID, tagIDs []uuid.UUID) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		if _, err := loadNode(ctx, repo, userID, pageID, ""); err != nil {
			return err
		}

		seen := make(map[uuid.UUID]struct{}, len(tagIDs))
		unique := make([]uuid.UUID, 0, len(tagIDs))
		for _, id := range tagIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			if err := requireTag(ctx, repo, id); err != nil {
				return err
			}
			seen[id] = struct{}{}
			unique = append(unique, id)
		}

		if err := repo.ClearTags(ctx, pageID); err != nil {
			return err
		}
		for _, id := range unique {
			if err := repo.AttachTag(ctx, pageID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &NodeError{NodeID: pageID, Op: "replace_tags", Err: err}
	}
	return nil
}

func (s *service) ListPageTags(ctx context.Context, userID string, pageID uuid.UUID) ([]*Tag, error) {
	if _, err := loadNode(ctx, s.store, userID, pageID, ""); err != nil {
		return nil, err
	}
	tags, err := s.store.ListNodeTags(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []*Tag{}
	}
	return tags, nil
}
