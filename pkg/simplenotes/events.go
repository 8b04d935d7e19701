package simplenotes

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) NodeCreated(ctx context.Context, node *Node) error { return nil }

func (n *NoopEventSink) NodeUpdated(ctx context.Context, node *Node) error { return nil }

func (n *NoopEventSink) NodeDeleted(ctx context.Context, rootID uuid.UUID, removed []uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) VersionCreated(ctx context.Context, version *Version) error { return nil }

// LoggingEventSink writes every event to a structured logger
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a logging event sink. A nil logger uses slog.Default.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger.With("component", "events")}
}

func (l *LoggingEventSink) NodeCreated(ctx context.Context, node *Node) error {
	l.logger.InfoContext(ctx, "node created", "node_id", node.ID, "kind", node.Kind, "user_id", node.UserID)
	return nil
}

func (l *LoggingEventSink) NodeUpdated(ctx context.Context, node *Node) error {
	l.logger.InfoContext(ctx, "node updated", "node_id", node.ID, "kind", node.Kind, "public", node.IsPublic)
	return nil
}

func (l *LoggingEventSink) NodeDeleted(ctx context.Context, rootID uuid.UUID, removed []uuid.UUID) error {
	l.logger.InfoContext(ctx, "node deleted", "node_id", rootID, "removed", len(removed))
	return nil
}

func (l *LoggingEventSink) VersionCreated(ctx context.Context, version *Version) error {
	l.logger.InfoContext(ctx, "version created", "version_id", version.ID, "page_id", version.PageID, "message", version.Message)
	return nil
}
