package simplenotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAutoVersionInterval is the minimum gap between automatic versions.
	DefaultAutoVersionInterval = 2 * time.Minute

	// AutoVersionMessage labels versions written by the debounce policy.
	AutoVersionMessage = "Auto-saved"

	// RestoreTimeLayout renders the restored version's timestamp.
	RestoreTimeLayout = "1/2/2006, 3:04:05 PM"

	publicSearchLimit = 20
	defaultPageSize   = 20
	maxPageSize       = 100
)

// service implements the Service interface
type service struct {
	store               Store
	eventSink           EventSink
	cache               PublicCache
	logger              *slog.Logger
	now                 func() time.Time
	slugs               SlugGenerator
	location            *time.Location
	autoVersionInterval time.Duration
	defaultRetention    int
	publicIDFallback    bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the store for the service
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithPublicCache sets the cache used for public trees
func WithPublicCache(cache PublicCache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSlugGenerator overrides public slug generation
func WithSlugGenerator(gen SlugGenerator) Option {
	return func(s *service) {
		if gen != nil {
			s.slugs = gen
		}
	}
}

// WithLocation sets the time zone used to render restore messages
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithAutoVersionInterval sets the minimum gap between automatic versions
func WithAutoVersionInterval(d time.Duration) Option {
	return func(s *service) {
		s.autoVersionInterval = d
	}
}

// WithDefaultRetentionLimit sets the retention limit for nodes without one
func WithDefaultRetentionLimit(limit int) Option {
	return func(s *service) {
		s.defaultRetention = limit
	}
}

// WithPublicIDFallback toggles resolving public handles by raw node ID when
// no slug matches
func WithPublicIDFallback(enabled bool) Option {
	return func(s *service) {
		s.publicIDFallback = enabled
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:              slog.Default(),
		now:                 time.Now,
		slugs:               RandomSlug,
		location:            time.Local,
		autoVersionInterval: DefaultAutoVersionInterval,
		defaultRetention:    DefaultVersionRetentionLimit,
		publicIDFallback:    true,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if s.defaultRetention < 0 {
		return nil, ErrInvalidRetentionLimit
	}

	return s, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// loadNode fetches a user's node and checks its kind. An empty kind accepts
// both.
func loadNode(ctx context.Context, repo Repository, userID string, id uuid.UUID, kind NodeKind) (*Node, error) {
	node, err := repo.GetNode(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNodeNotFound) {
			return nil, notFoundFor(kind)
		}
		return nil, err
	}
	if kind != "" && node.Kind != kind {
		return nil, notFoundFor(kind)
	}
	return node, nil
}

func notFoundFor(kind NodeKind) error {
	switch kind {
	case KindLibrary:
		return ErrLibraryNotFound
	case KindPage:
		return ErrPageNotFound
	default:
		return ErrNodeNotFound
	}
}

// Event and cache side effects run after commit and never fail the caller.

func (s *service) fireCreated(ctx context.Context, node *Node) {
	if s.eventSink == nil {
		return
	}
	if err := s.eventSink.NodeCreated(ctx, node); err != nil {
		s.logger.Warn("event sink failed", "event", "node_created", "node_id", node.ID, "err", err)
	}
}

func (s *service) fireUpdated(ctx context.Context, node *Node) {
	if s.eventSink == nil {
		return
	}
	if err := s.eventSink.NodeUpdated(ctx, node); err != nil {
		s.logger.Warn("event sink failed", "event", "node_updated", "node_id", node.ID, "err", err)
	}
}

func (s *service) fireDeleted(ctx context.Context, rootID uuid.UUID, removed []uuid.UUID) {
	if s.eventSink == nil {
		return
	}
	if err := s.eventSink.NodeDeleted(ctx, rootID, removed); err != nil {
		s.logger.Warn("event sink failed", "event", "node_deleted", "node_id", rootID, "err", err)
	}
}

func (s *service) fireVersions(ctx context.Context, versions ...*Version) {
	if s.eventSink == nil {
		return
	}
	for _, v := range versions {
		if v == nil {
			continue
		}
		if err := s.eventSink.VersionCreated(ctx, v); err != nil {
			s.logger.Warn("event sink failed", "event", "version_created", "version_id", v.ID, "err", err)
		}
	}
}

func (s *service) invalidate(ctx context.Context, libraryIDs ...uuid.UUID) {
	if s.cache == nil || len(libraryIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, libraryIDs...); err != nil {
		s.logger.Warn("public cache invalidation failed", "libraries", libraryIDs, "err", err)
	}
}
