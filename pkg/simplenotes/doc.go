// Package simplenotes provides the page/library hierarchy and version-history
// engine behind a personal knowledge base.
//
// It exposes a single Service interface that orchestrates libraries and pages
// (one polymorphic Node type), tree moves, public sharing, version snapshots
// and tag associations on top of a pluggable Store. Store implementations
// (memory, Postgres) are provided under repo/.
//
// Ownership
//
// Every owner-facing operation takes the caller's user ID. A node owned by
// somebody else is reported exactly like a missing node (ErrNotFound), so
// callers cannot probe for the existence of foreign content.
//
// Metadata Strategy
//
// First-class fields (Title, Icon, IsPublic, ...) are authoritative. The open
// Metadata map carries per-node settings such as the version retention limit
// (MetadataVersionRetentionLimit); do not mirror first-class values there.
package simplenotes
