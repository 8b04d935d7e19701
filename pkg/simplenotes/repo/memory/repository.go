package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// storedVersion keeps the insertion sequence that breaks createdAt ties.
type storedVersion struct {
	seq     int64
	version *simplenotes.Version
}

// data is one consistent snapshot of the store. Stored values are never
// mutated in place, so cloning the maps is enough to fork a transaction.
type data struct {
	nodes    map[uuid.UUID]*simplenotes.Node
	versions map[uuid.UUID][]storedVersion // page_id -> versions in insertion order
	tags     map[uuid.UUID]*simplenotes.Tag
	nodeTags map[uuid.UUID][]uuid.UUID // page_id -> tag_ids in attach order
	seq      int64
}

func newData() *data {
	return &data{
		nodes:    make(map[uuid.UUID]*simplenotes.Node),
		versions: make(map[uuid.UUID][]storedVersion),
		tags:     make(map[uuid.UUID]*simplenotes.Tag),
		nodeTags: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (d *data) clone() *data {
	c := &data{
		nodes:    make(map[uuid.UUID]*simplenotes.Node, len(d.nodes)),
		versions: make(map[uuid.UUID][]storedVersion, len(d.versions)),
		tags:     make(map[uuid.UUID]*simplenotes.Tag, len(d.tags)),
		nodeTags: make(map[uuid.UUID][]uuid.UUID, len(d.nodeTags)),
		seq:      d.seq,
	}
	for k, v := range d.nodes {
		c.nodes[k] = v
	}
	for k, v := range d.versions {
		c.versions[k] = append([]storedVersion(nil), v...)
	}
	for k, v := range d.tags {
		c.tags[k] = v
	}
	for k, v := range d.nodeTags {
		c.nodeTags[k] = append([]uuid.UUID(nil), v...)
	}
	return c
}

// Repository implements simplenotes.Store using in-memory storage.
//
// InTx runs against a private copy of the data and swaps it in on success,
// holding the write lock for the whole call.
type Repository struct {
	mu    *sync.RWMutex
	state *data
	inTx  bool
}

// New creates a new in-memory store
func New() *Repository {
	return &Repository{mu: &sync.RWMutex{}, state: newData()}
}

func (r *Repository) rlock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *Repository) InTx(ctx context.Context, fn func(repo simplenotes.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Repository{mu: r.mu, state: r.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

// Node operations

func (r *Repository) CreateNode(ctx context.Context, node *simplenotes.Node) error {
	defer r.lock()()

	if node.PublicSlug != "" && r.slugTaken(node.PublicSlug, node.ID) {
		return simplenotes.ErrSlugTaken
	}
	r.state.nodes[node.ID] = node.Clone()
	return nil
}

func (r *Repository) GetNode(ctx context.Context, userID string, id uuid.UUID) (*simplenotes.Node, error) {
	defer r.rlock()()

	node, ok := r.state.nodes[id]
	if !ok || node.UserID != userID {
		return nil, simplenotes.ErrNodeNotFound
	}
	return node.Clone(), nil
}

func (r *Repository) UpdateNode(ctx context.Context, node *simplenotes.Node) error {
	defer r.lock()()

	if _, ok := r.state.nodes[node.ID]; !ok {
		return simplenotes.ErrNodeNotFound
	}
	if node.PublicSlug != "" && r.slugTaken(node.PublicSlug, node.ID) {
		return simplenotes.ErrSlugTaken
	}
	r.state.nodes[node.ID] = node.Clone()
	return nil
}

// DeleteNodes removes the given nodes with their versions and tag links.
func (r *Repository) DeleteNodes(ctx context.Context, userID string, ids []uuid.UUID) error {
	defer r.lock()()

	for _, id := range ids {
		node, ok := r.state.nodes[id]
		if !ok || node.UserID != userID {
			continue
		}
		delete(r.state.nodes, id)
		delete(r.state.versions, id)
		delete(r.state.nodeTags, id)
	}
	return nil
}

func (r *Repository) ListNodes(ctx context.Context, filter simplenotes.NodeFilter) ([]*simplenotes.Node, int, error) {
	defer r.rlock()()

	var result []*simplenotes.Node
	for _, node := range r.state.nodes {
		if matches(node, filter) {
			result = append(result, node.Clone())
		}
	}
	sortNodes(result, filter.SortBy, filter.Desc)

	total := len(result)
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*simplenotes.Node{}, total, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func matches(node *simplenotes.Node, f simplenotes.NodeFilter) bool {
	if f.UserID != "" && node.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && node.Kind != f.Kind {
		return false
	}
	if f.LibraryID != nil && node.LibraryID != *f.LibraryID {
		return false
	}
	if f.ParentID != nil {
		if *f.ParentID == uuid.Nil {
			if node.ParentID != nil {
				return false
			}
		} else if node.ParentID == nil || *node.ParentID != *f.ParentID {
			return false
		}
	}
	if f.IsPublic != nil && node.IsPublic != *f.IsPublic {
		return false
	}
	return true
}

// sortNodes orders by field, breaking ties by creation order. Nodes never
// viewed sort last in either direction.
func sortNodes(nodes []*simplenotes.Node, field simplenotes.SortField, desc bool) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if c := compareField(a, b, field); c != 0 {
			if field == simplenotes.SortByLastViewedAt && (a.LastViewedAt == nil || b.LastViewedAt == nil) {
				return a.LastViewedAt != nil
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func compareField(a, b *simplenotes.Node, field simplenotes.SortField) int {
	switch field {
	case simplenotes.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case simplenotes.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case simplenotes.SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case simplenotes.SortByLastViewedAt:
		switch {
		case a.LastViewedAt == nil && b.LastViewedAt == nil:
			return 0
		case a.LastViewedAt == nil:
			return 1
		case b.LastViewedAt == nil:
			return -1
		}
		return a.LastViewedAt.Compare(*b.LastViewedAt)
	default:
		switch {
		case a.SortOrder < b.SortOrder:
			return -1
		case a.SortOrder > b.SortOrder:
			return 1
		}
		return 0
	}
}

// Tree queries

// AncestorIDs returns the chain above id, nearest first. The walk stops at a
// root, when the chain leaves the user's nodes, at a node already visited, or
// after maxDepth entries when maxDepth is positive.
func (r *Repository) AncestorIDs(ctx context.Context, userID string, id uuid.UUID, maxDepth int) ([]uuid.UUID, error) {
	defer r.rlock()()

	var chain []uuid.UUID
	visited := map[uuid.UUID]bool{id: true}
	node, ok := r.state.nodes[id]
	for ok && node.UserID == userID && node.ParentID != nil && !visited[*node.ParentID] {
		if maxDepth > 0 && len(chain) >= maxDepth {
			break
		}
		visited[*node.ParentID] = true
		chain = append(chain, *node.ParentID)
		node, ok = r.state.nodes[*node.ParentID]
	}
	return chain, nil
}

// Descendants returns every node below id, breadth first.
func (r *Repository) Descendants(ctx context.Context, userID string, id uuid.UUID) ([]*simplenotes.Node, error) {
	defer r.rlock()()

	children := make(map[uuid.UUID][]*simplenotes.Node)
	for _, node := range r.state.nodes {
		if node.UserID == userID && node.ParentID != nil {
			children[*node.ParentID] = append(children[*node.ParentID], node)
		}
	}

	var result []*simplenotes.Node
	seen := map[uuid.UUID]bool{id: true}
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		kids := children[current]
		sortNodes(kids, simplenotes.SortBySortOrder, false)
		for _, kid := range kids {
			if seen[kid.ID] {
				continue
			}
			seen[kid.ID] = true
			result = append(result, kid.Clone())
			queue = append(queue, kid.ID)
		}
	}
	return result, nil
}

func inScope(node *simplenotes.Node, scope simplenotes.SiblingScope) bool {
	if node.UserID != scope.UserID || node.Kind != scope.Kind {
		return false
	}
	if scope.Kind == simplenotes.KindLibrary {
		return true
	}
	if node.LibraryID != scope.LibraryID {
		return false
	}
	if scope.ParentID == nil {
		return node.ParentID == nil
	}
	return node.ParentID != nil && *node.ParentID == *scope.ParentID
}

func (r *Repository) MaxSortOrder(ctx context.Context, scope simplenotes.SiblingScope) (int, error) {
	defer r.rlock()()

	maxSort := 0
	for _, node := range r.state.nodes {
		if inScope(node, scope) && node.SortOrder > maxSort {
			maxSort = node.SortOrder
		}
	}
	return maxSort, nil
}

func (r *Repository) ShiftSortOrders(ctx context.Context, scope simplenotes.SiblingScope, from int, exclude uuid.UUID) error {
	defer r.lock()()

	for id, node := range r.state.nodes {
		if id == exclude || !inScope(node, scope) || node.SortOrder < from {
			continue
		}
		shifted := node.Clone()
		shifted.SortOrder++
		r.state.nodes[id] = shifted
	}
	return nil
}

// Public lookups

func (r *Repository) slugTaken(slug string, except uuid.UUID) bool {
	for id, node := range r.state.nodes {
		if id != except && node.PublicSlug == slug {
			return true
		}
	}
	return false
}

func (r *Repository) GetNodeBySlug(ctx context.Context, slug string) (*simplenotes.Node, error) {
	defer r.rlock()()

	for _, node := range r.state.nodes {
		if node.PublicSlug == slug {
			return node.Clone(), nil
		}
	}
	return nil, simplenotes.ErrNodeNotFound
}

func (r *Repository) GetNodeByID(ctx context.Context, id uuid.UUID) (*simplenotes.Node, error) {
	defer r.rlock()()

	node, ok := r.state.nodes[id]
	if !ok {
		return nil, simplenotes.ErrNodeNotFound
	}
	return node.Clone(), nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	defer r.rlock()()
	return r.slugTaken(slug, uuid.Nil), nil
}

func (r *Repository) ListPublicPages(ctx context.Context, libraryID uuid.UUID) ([]*simplenotes.Node, error) {
	defer r.rlock()()

	var result []*simplenotes.Node
	for _, node := range r.state.nodes {
		if node.IsPage() && node.IsPublic && node.LibraryID == libraryID {
			result = append(result, node.Clone())
		}
	}
	sortNodes(result, simplenotes.SortBySortOrder, false)
	return result, nil
}

// SearchPublicPages does a case-insensitive substring match on title and
// the raw content document, newest update first.
func (r *Repository) SearchPublicPages(ctx context.Context, query string, limit int) ([]*simplenotes.Node, error) {
	defer r.rlock()()

	q := strings.ToLower(query)
	var result []*simplenotes.Node
	for _, node := range r.state.nodes {
		if !node.IsPage() || !node.IsPublic {
			continue
		}
		if strings.Contains(strings.ToLower(node.Title), q) || strings.Contains(strings.ToLower(string(node.Content)), q) {
			result = append(result, node.Clone())
		}
	}
	sortNodes(result, simplenotes.SortByUpdatedAt, true)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Version operations

// ordered returns a page's versions oldest first.
func (r *Repository) ordered(pageID uuid.UUID) []storedVersion {
	list := append([]storedVersion(nil), r.state.versions[pageID]...)
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.version.CreatedAt.Equal(b.version.CreatedAt) {
			return a.version.CreatedAt.Before(b.version.CreatedAt)
		}
		return a.seq < b.seq
	})
	return list
}

func copyVersion(v *simplenotes.Version) *simplenotes.Version {
	c := *v
	c.Content = v.Content.Clone()
	return &c
}

func (r *Repository) CreateVersion(ctx context.Context, version *simplenotes.Version) error {
	defer r.lock()()

	r.state.seq++
	r.state.versions[version.PageID] = append(r.state.versions[version.PageID], storedVersion{
		seq:     r.state.seq,
		version: copyVersion(version),
	})
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, pageID, versionID uuid.UUID) (*simplenotes.Version, error) {
	defer r.rlock()()

	for _, sv := range r.state.versions[pageID] {
		if sv.version.ID == versionID {
			return copyVersion(sv.version), nil
		}
	}
	return nil, simplenotes.ErrVersionNotFound
}

func (r *Repository) LatestVersion(ctx context.Context, pageID uuid.UUID) (*simplenotes.Version, error) {
	defer r.rlock()()

	list := r.ordered(pageID)
	if len(list) == 0 {
		return nil, simplenotes.ErrVersionNotFound
	}
	return copyVersion(list[len(list)-1].version), nil
}

// ListVersions returns a page's versions newest first.
func (r *Repository) ListVersions(ctx context.Context, pageID uuid.UUID) ([]*simplenotes.Version, error) {
	defer r.rlock()()

	list := r.ordered(pageID)
	result := make([]*simplenotes.Version, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		result = append(result, copyVersion(list[i].version))
	}
	return result, nil
}

func (r *Repository) CountVersions(ctx context.Context, pageID uuid.UUID) (int, error) {
	defer r.rlock()()
	return len(r.state.versions[pageID]), nil
}

func (r *Repository) DeleteVersion(ctx context.Context, pageID, versionID uuid.UUID) error {
	defer r.lock()()

	list := r.state.versions[pageID]
	for i, sv := range list {
		if sv.version.ID == versionID {
			r.state.versions[pageID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return simplenotes.ErrVersionNotFound
}

func (r *Repository) DeleteVersionsBefore(ctx context.Context, pageID uuid.UUID, cutoff time.Time) (int, error) {
	defer r.lock()()

	var kept []storedVersion
	for _, sv := range r.state.versions[pageID] {
		if !sv.version.CreatedAt.Before(cutoff) {
			kept = append(kept, sv)
		}
	}
	deleted := len(r.state.versions[pageID]) - len(kept)
	r.state.versions[pageID] = kept
	return deleted, nil
}

// TrimVersions keeps the newest keep versions of a page.
func (r *Repository) TrimVersions(ctx context.Context, pageID uuid.UUID, keep int) (int, error) {
	defer r.lock()()

	list := r.ordered(pageID)
	if len(list) <= keep {
		return 0, nil
	}
	evicted := len(list) - keep
	r.state.versions[pageID] = list[evicted:]
	return evicted, nil
}

// Tag operations

func (r *Repository) CreateTag(ctx context.Context, tag *simplenotes.Tag) error {
	defer r.lock()()

	for _, t := range r.state.tags {
		if t.Name == tag.Name {
			return simplenotes.ErrTagExists
		}
	}
	c := *tag
	r.state.tags[tag.ID] = &c
	return nil
}

func (r *Repository) GetTag(ctx context.Context, id uuid.UUID) (*simplenotes.Tag, error) {
	defer r.rlock()()

	tag, ok := r.state.tags[id]
	if !ok {
		return nil, simplenotes.ErrTagNotFound
	}
	c := *tag
	return &c, nil
}

func (r *Repository) GetTagByName(ctx context.Context, name string) (*simplenotes.Tag, error) {
	defer r.rlock()()

	for _, tag := range r.state.tags {
		if tag.Name == name {
			c := *tag
			return &c, nil
		}
	}
	return nil, simplenotes.ErrTagNotFound
}

// ListTags returns every tag ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]*simplenotes.Tag, error) {
	defer r.rlock()()

	result := make([]*simplenotes.Tag, 0, len(r.state.tags))
	for _, tag := range r.state.tags {
		c := *tag
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *Repository) DeleteTag(ctx context.Context, id uuid.UUID) error {
	defer r.lock()()

	if _, ok := r.state.tags[id]; !ok {
		return simplenotes.ErrTagNotFound
	}
	delete(r.state.tags, id)
	for pageID, tagIDs := range r.state.nodeTags {
		r.state.nodeTags[pageID] = without(tagIDs, id)
	}
	return nil
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Page/tag associations

func (r *Repository) AttachTag(ctx context.Context, pageID, tagID uuid.UUID) error {
	defer r.lock()()

	if _, ok := r.state.tags[tagID]; !ok {
		return simplenotes.ErrTagNotFound
	}
	for _, id := range r.state.nodeTags[pageID] {
		if id == tagID {
			return simplenotes.ErrTagAlreadyAttached
		}
	}
	r.state.nodeTags[pageID] = append(r.state.nodeTags[pageID], tagID)
	return nil
}

func (r *Repository) DetachTag(ctx context.Context, pageID, tagID uuid.UUID) error {
	defer r.lock()()

	before := len(r.state.nodeTags[pageID])
	r.state.nodeTags[pageID] = without(r.state.nodeTags[pageID], tagID)
	if len(r.state.nodeTags[pageID]) == before {
		return simplenotes.ErrTagNotAttached
	}
	return nil
}

func (r *Repository) HasTag(ctx context.Context, pageID, tagID uuid.UUID) (bool, error) {
	defer r.rlock()()

	for _, id := range r.state.nodeTags[pageID] {
		if id == tagID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) ClearTags(ctx context.Context, pageID uuid.UUID) error {
	defer r.lock()()
	delete(r.state.nodeTags, pageID)
	return nil
}

// ListNodeTags returns a page's tags ordered by name.
func (r *Repository) ListNodeTags(ctx context.Context, pageID uuid.UUID) ([]*simplenotes.Tag, error) {
	defer r.rlock()()

	result := make([]*simplenotes.Tag, 0, len(r.state.nodeTags[pageID]))
	for _, id := range r.state.nodeTags[pageID] {
		if tag, ok := r.state.tags[id]; ok {
			c := *tag
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Statistics

func (r *Repository) CountUserVersions(ctx context.Context, userID string) (int, error) {
	defer r.rlock()()

	count := 0
	for pageID, list := range r.state.versions {
		if node, ok := r.state.nodes[pageID]; ok && node.UserID == userID {
			count += len(list)
		}
	}
	return count, nil
}

var _ simplenotes.Store = (*Repository)(nil)
