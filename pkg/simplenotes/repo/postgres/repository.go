package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplenotes.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// Store is a Repository backed by a pool that can open transactions
type Store struct {
	*Repository
	pool *pgxpool.Pool
}

// NewStore creates a store over a connection pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Repository: &Repository{db: pool}, pool: pool}
}

// InTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(repo simplenotes.Repository) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case "nodes_public_slug_key":
				return simplenotes.ErrSlugTaken
			case "tags_name_key":
				return simplenotes.ErrTagExists
			case "node_tags_pkey":
				return simplenotes.ErrTagAlreadyAttached
			}
			return fmt.Errorf("duplicate entry in %s: %w", operation, simplenotes.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s: %w", operation, simplenotes.ErrNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing: %w", pgErr.ColumnName, simplenotes.ErrBadRequest)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Node operations

const nodeColumns = `id, kind, title, content, description, icon, cover_image, is_public,
	public_slug, sort_order, parent_id, library_id, metadata, user_id,
	created_at, updated_at, last_viewed_at`

const nodeColumnsN = `n.id, n.kind, n.title, n.content, n.description, n.icon, n.cover_image, n.is_public,
	n.public_slug, n.sort_order, n.parent_id, n.library_id, n.metadata, n.user_id,
	n.created_at, n.updated_at, n.last_viewed_at`

func scanNode(row pgx.Row) (*simplenotes.Node, error) {
	var (
		node     simplenotes.Node
		kind     string
		content  []byte
		slug     *string
		metadata []byte
	)
	err := row.Scan(
		&node.ID, &kind, &node.Title, &content, &node.Description, &node.Icon,
		&node.CoverImage, &node.IsPublic, &slug, &node.SortOrder, &node.ParentID,
		&node.LibraryID, &metadata, &node.UserID, &node.CreatedAt, &node.UpdatedAt,
		&node.LastViewedAt)
	if err != nil {
		return nil, err
	}

	node.Kind = simplenotes.NodeKind(kind)
	if content != nil {
		node.Content = simplenotes.Document(content)
	}
	if slug != nil {
		node.PublicSlug = *slug
	}
	node.Metadata = map[string]interface{}{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &node.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for node %s: %w", node.ID, err)
		}
	}
	return &node, nil
}

func collectNodes(rows pgx.Rows) ([]*simplenotes.Node, error) {
	defer rows.Close()

	var nodes []*simplenotes.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// nodeArgs returns the mutable column values in nodeColumns order after id.
func nodeArgs(node *simplenotes.Node) ([]interface{}, error) {
	metadata := node.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var slug *string
	if node.PublicSlug != "" {
		s := node.PublicSlug
		slug = &s
	}
	var content []byte
	if len(node.Content) > 0 {
		content = []byte(node.Content)
	}
	return []interface{}{
		node.ID, string(node.Kind), node.Title, content, node.Description, node.Icon,
		node.CoverImage, node.IsPublic, slug, node.SortOrder, node.ParentID,
		node.LibraryID, encoded, node.UserID, node.CreatedAt, node.UpdatedAt,
		node.LastViewedAt,
	}, nil
}

func (r *Repository) CreateNode(ctx context.Context, node *simplenotes.Node) error {
	args, err := nodeArgs(node)
	if err != nil {
		return err
	}
	query := `INSERT INTO nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return r.handlePostgresError("create node", err)
	}
	return nil
}

func (r *Repository) GetNode(ctx context.Context, userID string, id uuid.UUID) (*simplenotes.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1 AND user_id = $2`

	node, err := scanNode(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrNodeNotFound
		}
		return nil, r.handlePostgresError("get node", err)
	}
	return node, nil
}

func (r *Repository) UpdateNode(ctx context.Context, node *simplenotes.Node) error {
	args, err := nodeArgs(node)
	if err != nil {
		return err
	}
	query := `
		UPDATE nodes SET
			kind = $2, title = $3, content = $4, description = $5, icon = $6,
			cover_image = $7, is_public = $8, public_slug = $9, sort_order = $10,
			parent_id = $11, library_id = $12, metadata = $13, user_id = $14,
			created_at = $15, updated_at = $16, last_viewed_at = $17
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update node", err)
	}
	if tag.RowsAffected() == 0 {
		return simplenotes.ErrNodeNotFound
	}
	return nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// DeleteNodes removes the given nodes; versions and tag links go with them
// through ON DELETE CASCADE.
func (r *Repository) DeleteNodes(ctx context.Context, userID string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM nodes WHERE user_id = $1 AND id = ANY($2::uuid[])`
	if _, err := r.db.Exec(ctx, query, userID, idStrings(ids)); err != nil {
		return r.handlePostgresError("delete nodes", err)
	}
	return nil
}

var sortColumns = map[simplenotes.SortField]string{
	simplenotes.SortByUpdatedAt:    "updated_at",
	simplenotes.SortByCreatedAt:    "created_at",
	simplenotes.SortByTitle:        "title",
	simplenotes.SortBySortOrder:    "sort_order",
	simplenotes.SortByLastViewedAt: "last_viewed_at",
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) add(cond string, args ...interface{}) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (r *Repository) ListNodes(ctx context.Context, filter simplenotes.NodeFilter) ([]*simplenotes.Node, int, error) {
	var w whereBuilder
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Kind != "" {
		w.add("kind = ?", string(filter.Kind))
	}
	if filter.LibraryID != nil {
		w.add("library_id = ?", *filter.LibraryID)
	}
	if filter.ParentID != nil {
		if *filter.ParentID == uuid.Nil {
			w.add("parent_id IS NULL")
		} else {
			w.add("parent_id = ?", *filter.ParentID)
		}
	}
	if filter.IsPublic != nil {
		w.add("is_public = ?", *filter.IsPublic)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM nodes`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count nodes", err)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "sort_order"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	query := `SELECT ` + nodeColumns + ` FROM nodes` + w.String() +
		fmt.Sprintf(" ORDER BY %s %s NULLS LAST, created_at ASC, id ASC", column, direction)

	args := w.args
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handlePostgresError("list nodes", err)
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, 0, r.handlePostgresError("list nodes", err)
	}
	return nodes, total, nil
}

// Tree queries

// AncestorIDs returns the chain above id, nearest first. The walk stops at a
// root, at a node already on the path, or after maxDepth entries when
// maxDepth is positive.
func (r *Repository) AncestorIDs(ctx context.Context, userID string, id uuid.UUID, maxDepth int) ([]uuid.UUID, error) {
	query := `
		WITH RECURSIVE chain (id, parent_id, depth, path) AS (
			SELECT id, parent_id, 0, ARRAY[id] FROM nodes WHERE id = $1 AND user_id = $2
			UNION ALL
			SELECT n.id, n.parent_id, c.depth + 1, c.path || n.id
			FROM nodes n JOIN chain c ON n.id = c.parent_id
			WHERE n.user_id = $2 AND NOT n.id = ANY(c.path) AND ($3 <= 0 OR c.depth < $3)
		)
		SELECT id FROM chain WHERE depth > 0 ORDER BY depth`

	rows, err := r.db.Query(ctx, query, id, userID, maxDepth)
	if err != nil {
		return nil, r.handlePostgresError("ancestors", err)
	}
	defer rows.Close()

	var chain []uuid.UUID
	for rows.Next() {
		var ancestor uuid.UUID
		if err := rows.Scan(&ancestor); err != nil {
			return nil, err
		}
		chain = append(chain, ancestor)
	}
	return chain, rows.Err()
}

// Descendants returns every node below id, breadth first.
func (r *Repository) Descendants(ctx context.Context, userID string, id uuid.UUID) ([]*simplenotes.Node, error) {
	query := `
		WITH RECURSIVE sub (id, depth, path) AS (
			SELECT id, 1, ARRAY[$1::uuid, id] FROM nodes WHERE parent_id = $1 AND user_id = $2
			UNION ALL
			SELECT n.id, s.depth + 1, s.path || n.id
			FROM nodes n JOIN sub s ON n.parent_id = s.id
			WHERE n.user_id = $2 AND NOT n.id = ANY(s.path)
		)
		SELECT ` + nodeColumnsN + `
		FROM nodes n JOIN (SELECT id, MIN(depth) AS depth FROM sub GROUP BY id) s ON s.id = n.id
		ORDER BY s.depth, n.sort_order, n.created_at, n.id`

	rows, err := r.db.Query(ctx, query, id, userID)
	if err != nil {
		return nil, r.handlePostgresError("descendants", err)
	}
	return collectNodes(rows)
}

func scopeWhere(scope simplenotes.SiblingScope) *whereBuilder {
	w := &whereBuilder{}
	w.add("user_id = ?", scope.UserID)
	w.add("kind = ?", string(scope.Kind))
	if scope.Kind == simplenotes.KindLibrary {
		return w
	}
	w.add("library_id = ?", scope.LibraryID)
	if scope.ParentID == nil {
		w.add("parent_id IS NULL")
	} else {
		w.add("parent_id = ?", *scope.ParentID)
	}
	return w
}

func (r *Repository) MaxSortOrder(ctx context.Context, scope simplenotes.SiblingScope) (int, error) {
	w := scopeWhere(scope)
	var maxSort int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM nodes`+w.String(), w.args...).Scan(&maxSort)
	if err != nil {
		return 0, r.handlePostgresError("max sort order", err)
	}
	return maxSort, nil
}

func (r *Repository) ShiftSortOrders(ctx context.Context, scope simplenotes.SiblingScope, from int, exclude uuid.UUID) error {
	w := scopeWhere(scope)
	w.add("sort_order >= ?", from)
	w.add("id <> ?", exclude)
	if _, err := r.db.Exec(ctx, `UPDATE nodes SET sort_order = sort_order + 1`+w.String(), w.args...); err != nil {
		return r.handlePostgresError("shift sort orders", err)
	}
	return nil
}

// Public lookups

func (r *Repository) GetNodeBySlug(ctx context.Context, slug string) (*simplenotes.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE public_slug = $1`
	node, err := scanNode(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrNodeNotFound
		}
		return nil, r.handlePostgresError("get node by slug", err)
	}
	return node, nil
}

func (r *Repository) GetNodeByID(ctx context.Context, id uuid.UUID) (*simplenotes.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`
	node, err := scanNode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrNodeNotFound
		}
		return nil, r.handlePostgresError("get node by id", err)
	}
	return node, nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM nodes WHERE public_slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, r.handlePostgresError("slug exists", err)
	}
	return exists, nil
}

func (r *Repository) ListPublicPages(ctx context.Context, libraryID uuid.UUID) ([]*simplenotes.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE library_id = $1 AND kind = 'page' AND is_public
		ORDER BY sort_order, created_at, id`

	rows, err := r.db.Query(ctx, query, libraryID)
	if err != nil {
		return nil, r.handlePostgresError("list public pages", err)
	}
	return collectNodes(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPublicPages does a case-insensitive substring match on title and
// the content document text, newest update first.
func (r *Repository) SearchPublicPages(ctx context.Context, query string, limit int) ([]*simplenotes.Node, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	sqlQuery := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE kind = 'page' AND is_public
		  AND (title ILIKE $1 OR content::text ILIKE $1)
		ORDER BY updated_at DESC, id
		LIMIT $2`

	rows, err := r.db.Query(ctx, sqlQuery, pattern, limit)
	if err != nil {
		return nil, r.handlePostgresError("search public pages", err)
	}
	return collectNodes(rows)
}

// Version operations

const versionColumns = `id, page_id, content, message, created_at`

func scanVersion(row pgx.Row) (*simplenotes.Version, error) {
	var (
		v       simplenotes.Version
		content []byte
	)
	if err := row.Scan(&v.ID, &v.PageID, &content, &v.Message, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Content = simplenotes.Document(content)
	return &v, nil
}

func (r *Repository) CreateVersion(ctx context.Context, version *simplenotes.Version) error {
	query := `INSERT INTO versions (` + versionColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query,
		version.ID, version.PageID, []byte(version.Content), version.Message, version.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create version", err)
	}
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, pageID, versionID uuid.UUID) (*simplenotes.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE page_id = $1 AND id = $2`
	v, err := scanVersion(r.db.QueryRow(ctx, query, pageID, versionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrVersionNotFound
		}
		return nil, r.handlePostgresError("get version", err)
	}
	return v, nil
}

func (r *Repository) LatestVersion(ctx context.Context, pageID uuid.UUID) (*simplenotes.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE page_id = $1
		ORDER BY created_at DESC, seq DESC LIMIT 1`
	v, err := scanVersion(r.db.QueryRow(ctx, query, pageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrVersionNotFound
		}
		return nil, r.handlePostgresError("latest version", err)
	}
	return v, nil
}

// ListVersions returns a page's versions newest first.
func (r *Repository) ListVersions(ctx context.Context, pageID uuid.UUID) ([]*simplenotes.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE page_id = $1
		ORDER BY created_at DESC, seq DESC`

	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, r.handlePostgresError("list versions", err)
	}
	defer rows.Close()

	var versions []*simplenotes.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *Repository) CountVersions(ctx context.Context, pageID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM versions WHERE page_id = $1`, pageID).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count versions", err)
	}
	return count, nil
}

func (r *Repository) DeleteVersion(ctx context.Context, pageID, versionID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM versions WHERE page_id = $1 AND id = $2`, pageID, versionID)
	if err != nil {
		return r.handlePostgresError("delete version", err)
	}
	if tag.RowsAffected() == 0 {
		return simplenotes.ErrVersionNotFound
	}
	return nil
}

func (r *Repository) DeleteVersionsBefore(ctx context.Context, pageID uuid.UUID, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM versions WHERE page_id = $1 AND created_at < $2`, pageID, cutoff)
	if err != nil {
		return 0, r.handlePostgresError("delete old versions", err)
	}
	return int(tag.RowsAffected()), nil
}

// TrimVersions keeps the newest keep versions of a page.
func (r *Repository) TrimVersions(ctx context.Context, pageID uuid.UUID, keep int) (int, error) {
	query := `
		DELETE FROM versions WHERE id IN (
			SELECT id FROM versions WHERE page_id = $1
			ORDER BY created_at DESC, seq DESC
			OFFSET $2
		)`
	tag, err := r.db.Exec(ctx, query, pageID, keep)
	if err != nil {
		return 0, r.handlePostgresError("trim versions", err)
	}
	return int(tag.RowsAffected()), nil
}

// Tag operations

func scanTag(row pgx.Row) (*simplenotes.Tag, error) {
	var t simplenotes.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTags(rows pgx.Rows) ([]*simplenotes.Tag, error) {
	defer rows.Close()

	var tags []*simplenotes.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *Repository) CreateTag(ctx context.Context, tag *simplenotes.Tag) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tags (id, name, color, created_at) VALUES ($1, $2, $3, $4)`,
		tag.ID, tag.Name, tag.Color, tag.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create tag", err)
	}
	return nil
}

func (r *Repository) GetTag(ctx context.Context, id uuid.UUID) (*simplenotes.Tag, error) {
	t, err := scanTag(r.db.QueryRow(ctx, `SELECT id, name, color, created_at FROM tags WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrTagNotFound
		}
		return nil, r.handlePostgresError("get tag", err)
	}
	return t, nil
}

func (r *Repository) GetTagByName(ctx context.Context, name string) (*simplenotes.Tag, error) {
	t, err := scanTag(r.db.QueryRow(ctx, `SELECT id, name, color, created_at FROM tags WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplenotes.ErrTagNotFound
		}
		return nil, r.handlePostgresError("get tag by name", err)
	}
	return t, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]*simplenotes.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, r.handlePostgresError("list tags", err)
	}
	return collectTags(rows)
}

func (r *Repository) DeleteTag(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete tag", err)
	}
	if tag.RowsAffected() == 0 {
		return simplenotes.ErrTagNotFound
	}
	return nil
}

// Page/tag associations

func (r *Repository) AttachTag(ctx context.Context, pageID, tagID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `INSERT INTO node_tags (node_id, tag_id) VALUES ($1, $2)`, pageID, tagID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return simplenotes.ErrTagNotFound
		}
		return r.handlePostgresError("attach tag", err)
	}
	return nil
}

func (r *Repository) DetachTag(ctx context.Context, pageID, tagID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM node_tags WHERE node_id = $1 AND tag_id = $2`, pageID, tagID)
	if err != nil {
		return r.handlePostgresError("detach tag", err)
	}
	if tag.RowsAffected() == 0 {
		return simplenotes.ErrTagNotAttached
	}
	return nil
}

func (r *Repository) HasTag(ctx context.Context, pageID, tagID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM node_tags WHERE node_id = $1 AND tag_id = $2)`, pageID, tagID).Scan(&exists)
	if err != nil {
		return false, r.handlePostgresError("has tag", err)
	}
	return exists, nil
}

func (r *Repository) ClearTags(ctx context.Context, pageID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM node_tags WHERE node_id = $1`, pageID); err != nil {
		return r.handlePostgresError("clear tags", err)
	}
	return nil
}

func (r *Repository) ListNodeTags(ctx context.Context, pageID uuid.UUID) ([]*simplenotes.Tag, error) {
	query := `
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t JOIN node_tags nt ON nt.tag_id = t.id
		WHERE nt.node_id = $1
		ORDER BY t.name`
	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, r.handlePostgresError("list node tags", err)
	}
	return collectTags(rows)
}

// Statistics

func (r *Repository) CountUserVersions(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM versions v JOIN nodes n ON n.id = v.page_id WHERE n.user_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count user versions", err)
	}
	return count, nil
}

var (
	_ simplenotes.Repository = (*Repository)(nil)
	_ simplenotes.Store      = (*Store)(nil)
)
