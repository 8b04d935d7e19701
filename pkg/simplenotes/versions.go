package simplenotes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Version history

// loadVersioned fetches the node owning a version log.
func loadVersioned(ctx context.Context, repo Repository, userID string, pageID uuid.UUID) (*Node, error) {
	node, err := repo.GetNode(ctx, userID, pageID)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return node, nil
}

// snapshot appends the node's current content to its version log and evicts
// the oldest versions beyond the retention limit.
func (s *service) snapshot(ctx context.Context, repo Repository, node *Node, message string) (*Version, error) {
	content := node.Content.Clone()
	if len(content) == 0 {
		content = EmptyDocument()
	}
	version := &Version{
		ID:        NewID(),
		PageID:    node.ID,
		Content:   content,
		Message:   message,
		CreatedAt: s.clock(),
	}
	if err := repo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	if limit := node.RetentionLimit(s.defaultRetention); limit > 0 {
		evicted, err := repo.TrimVersions(ctx, node.ID, limit)
		if err != nil {
			return nil, err
		}
		if evicted > 0 {
			s.logger.Debug("versions evicted", "page_id", node.ID, "evicted", evicted, "limit", limit)
		}
	}
	return version, nil
}

// autoVersion snapshots node when it has no version yet or the newest one
// is at least autoVersionInterval old.
func (s *service) autoVersion(ctx context.Context, repo Repository, node *Node) (*Version, error) {
	latest, err := repo.LatestVersion(ctx, node.ID)
	switch {
	case errors.Is(err, ErrVersionNotFound):
	case err != nil:
		return nil, err
	case s.clock().Sub(latest.CreatedAt) < s.autoVersionInterval:
		return nil, nil
	}
	return s.snapshot(ctx, repo, node, AutoVersionMessage)
}

func (s *service) ListVersions(ctx context.Context, userID string, pageID uuid.UUID) ([]*Version, error) {
	if _, err := loadVersioned(ctx, s.store, userID, pageID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []*Version{}
	}
	return versions, nil
}

func (s *service) CreateVersion(ctx context.Context, userID string, pageID uuid.UUID, message string) (*Version, error) {
	var version *Version
	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadVersioned(ctx, repo, userID, pageID)
		if err != nil {
			return err
		}
		version, err = s.snapshot(ctx, repo, node, message)
		return err
	})
	if err != nil {
		return nil, &NodeError{NodeID: pageID, Op: "create_version", Err: err}
	}

	s.fireVersions(ctx, version)
	return version, nil
}

func (s *service) CreateAutomaticVersionIfApplicable(ctx context.Context, userID string, pageID uuid.UUID) (*Version, error) {
	var version *Version
	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadVersioned(ctx, repo, userID, pageID)
		if err != nil {
			return err
		}
		version, err = s.autoVersion(ctx, repo, node)
		return err
	})
	if err != nil {
		return nil, &NodeError{NodeID: pageID, Op: "auto_version", Err: err}
	}

	s.fireVersions(ctx, version)
	return version, nil
}

func (s *service) RestoreVersion(ctx context.Context, userID string, pageID, versionID uuid.UUID) (*Node, error) {
	var (
		restored *Node
		marker   *Version
	)
	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadVersioned(ctx, repo, userID, pageID)
		if err != nil {
			return err
		}
		source, err := repo.GetVersion(ctx, pageID, versionID)
		if err != nil {
			return err
		}

		node.Content = source.Content.Clone()
		node.UpdatedAt = s.clock()
		if err := repo.UpdateNode(ctx, node); err != nil {
			return err
		}

		message := fmt.Sprintf("Restored from version %s", source.CreatedAt.In(s.location).Format(RestoreTimeLayout))
		marker, err = s.snapshot(ctx, repo, node, message)
		if err != nil {
			return err
		}
		restored = node
		return nil
	})
	if err != nil {
		return nil, &NodeError{NodeID: pageID, Op: "restore_version", Err: err}
	}

	s.logger.Info("version restored", "page_id", pageID, "version_id", versionID)
	s.fireUpdated(ctx, restored)
	s.fireVersions(ctx, marker)
	s.invalidate(ctx, restored.LibraryID)
	return restored, nil
}

func (s *service) CleanupVersions(ctx context.Context, userID string, pageID uuid.UUID, period CleanupPeriod) (int, error) {
	cutoff, err := period.Cutoff(s.clock())
	if err != nil {
		return 0, err
	}
	if _, err := loadVersioned(ctx, s.store, userID, pageID); err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteVersionsBefore(ctx, pageID, cutoff)
	if err != nil {
		return 0, &NodeError{NodeID: pageID, Op: "cleanup_versions", Err: err}
	}
	s.logger.Info("versions cleaned up", "page_id", pageID, "period", period, "deleted", deleted)
	return deleted, nil
}

func (s *service) DeleteVersion(ctx context.Context, userID string, pageID, versionID uuid.UUID) error {
	if _, err := loadVersioned(ctx, s.store, userID, pageID); err != nil {
		return err
	}
	if err := s.store.DeleteVersion(ctx, pageID, versionID); err != nil {
		return &NodeError{NodeID: pageID, Op: "delete_version", Err: err}
	}
	return nil
}

func (s *service) UpdatePageSettings(ctx context.Context, userID string, pageID uuid.UUID, req PageSettingsRequest) (*Node, error) {
	if req.VersionRetentionLimit != nil && *req.VersionRetentionLimit < 0 {
		return nil, ErrInvalidRetentionLimit
	}

	var updated *Node
	err := s.store.InTx(ctx, func(repo Repository) error {
		node, err := loadVersioned(ctx, repo, userID, pageID)
		if err != nil {
			return err
		}
		if node.Metadata == nil {
			node.Metadata = map[string]interface{}{}
		}
		if req.VersionRetentionLimit != nil {
			node.Metadata[MetadataVersionRetentionLimit] = *req.VersionRetentionLimit
		}
		if err := repo.UpdateNode(ctx, node); err != nil {
			return err
		}

		if req.VersionRetentionLimit != nil && *req.VersionRetentionLimit > 0 {
			if _, err := repo.TrimVersions(ctx, node.ID, *req.VersionRetentionLimit); err != nil {
				return err
			}
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, &NodeError{NodeID: pageID, Op: "update_settings", Err: err}
	}
	return updated, nil
}
