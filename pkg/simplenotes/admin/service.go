package admin

import (
	"context"
	"errors"
	"time"

	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// AdminService defines read-only operational queries over one user's data.
//
// Endpoints using this service should be protected so that only
// administrators can reach them.
type AdminService interface {
	// GetStatistics returns node, version and tag counts for a user.
	GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error)
}

// StatisticsRequest selects the user to report on
type StatisticsRequest struct {
	UserID string `json:"user_id"`
}

// Statistics holds aggregated counts
type Statistics struct {
	Libraries   int `json:"libraries"`
	Pages       int `json:"pages"`
	PublicNodes int `json:"public_nodes"`
	Versions    int `json:"versions"`
	Tags        int `json:"tags"`
}

// StatisticsResponse is the result of GetStatistics
type StatisticsResponse struct {
	UserID      string     `json:"user_id"`
	Statistics  Statistics `json:"statistics"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// ErrUserRequired is returned when no user ID is given
var ErrUserRequired = errors.New("user id is required")

// New creates a new AdminService instance that uses the provided repository.
func New(repo simplenotes.Repository) AdminService {
	return &adminService{repo: repo, now: time.Now}
}

type adminService struct {
	repo simplenotes.Repository
	now  func() time.Time
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) GetStatistics(ctx context.Context, req StatisticsRequest) (*StatisticsResponse, error) {
	if req.UserID == "" {
		return nil, ErrUserRequired
	}

	var (
		stats  Statistics
		err    error
		public = true
	)

	if stats.Libraries, err = s.count(ctx, simplenotes.NodeFilter{UserID: req.UserID, Kind: simplenotes.KindLibrary}); err != nil {
		return nil, err
	}
	if stats.Pages, err = s.count(ctx, simplenotes.NodeFilter{UserID: req.UserID, Kind: simplenotes.KindPage}); err != nil {
		return nil, err
	}
	if stats.PublicNodes, err = s.count(ctx, simplenotes.NodeFilter{UserID: req.UserID, IsPublic: &public}); err != nil {
		return nil, err
	}
	if stats.Versions, err = s.repo.CountUserVersions(ctx, req.UserID); err != nil {
		return nil, err
	}
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	stats.Tags = len(tags)

	return &StatisticsResponse{
		UserID:      req.UserID,
		Statistics:  stats,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// count returns the total matching filter without materialising the rows.
func (s *adminService) count(ctx context.Context, filter simplenotes.NodeFilter) (int, error) {
	filter.Limit = 1
	_, total, err := s.repo.ListNodes(ctx, filter)
	return total, err
}
