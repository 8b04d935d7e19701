package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// PageHandler handles HTTP requests for pages, their versions and tags
type PageHandler struct {
	service simplenotes.Service
}

// NewPageHandler creates a new page handler
func NewPageHandler(service simplenotes.Service) *PageHandler {
	return &PageHandler{service: service}
}

// Routes returns the routes for pages
func (h *PageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreatePage)
	r.Get("/", h.ListPages)
	r.Get("/{id}", h.GetPage)
	r.Patch("/{id}", h.UpdatePage)
	r.Delete("/{id}", h.DeletePage)
	r.Post("/{id}/move", h.MovePage)
	r.Post("/{id}/view", h.MarkViewed)
	r.Patch("/{id}/settings", h.UpdateSettings)

	// Routes for version history
	r.Get("/{id}/versions", h.ListVersions)
	r.Post("/{id}/versions", h.CreateVersion)
	r.Post("/{id}/versions/auto", h.AutoVersion)
	r.Post("/{id}/versions/restore", h.RestoreVersion)
	r.Post("/{id}/versions/cleanup", h.CleanupVersions)
	r.Delete("/{id}/versions/{versionId}", h.DeleteVersion)

	// Routes for tags
	r.Get("/{id}/tags", h.ListTags)
	r.Put("/{id}/tags", h.ReplaceTags)
	r.Post("/{id}/tags/{tagId}", h.AttachTag)
	r.Delete("/{id}/tags/{tagId}", h.DetachTag)

	return r
}

// CreatePageRequest is the request body for creating a page
type CreatePageRequest struct {
	LibraryID   uuid.UUID            `json:"libraryId"`
	ParentID    *uuid.UUID           `json:"parentId"`
	Title       string               `json:"title"`
	Content     simplenotes.Document `json:"content"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	CoverImage  string               `json:"coverImage"`
	IsPublic    bool                 `json:"isPublic"`
	PublicSlug  string               `json:"publicSlug"`
}

// UpdatePageRequest is the request body for updating a page. A null
// parentId moves the page to the library root.
type UpdatePageRequest struct {
	Title       *string              `json:"title"`
	Content     simplenotes.Document `json:"content"`
	Description *string              `json:"description"`
	Icon        *string              `json:"icon"`
	CoverImage  *string              `json:"coverImage"`
	ParentID    OptionalID           `json:"parentId"`
	LibraryID   *uuid.UUID           `json:"libraryId"`
	IsPublic    *bool                `json:"isPublic"`
	PublicSlug  *string              `json:"publicSlug"`
}

// MovePageRequest is the request body for moving a page. A null
// newParentId moves the page to the library root.
type MovePageRequest struct {
	NewParentID  OptionalID `json:"newParentId"`
	NewLibraryID *uuid.UUID `json:"newLibraryId"`
	SortOrder    *int       `json:"sortOrder"`
}

// CreateVersionRequest is the request body for a manual snapshot
type CreateVersionRequest struct {
	Message string `json:"message"`
}

// RestoreVersionRequest is the request body for restoring a version
type RestoreVersionRequest struct {
	VersionID uuid.UUID `json:"versionId"`
}

// CleanupVersionsRequest is the request body for version cleanup
type CleanupVersionsRequest struct {
	Period simplenotes.CleanupPeriod `json:"period"`
}

// CleanupVersionsResponse reports how many versions were removed
type CleanupVersionsResponse struct {
	Deleted int `json:"deleted"`
}

// PageSettingsRequest is the request body for page settings
type PageSettingsRequest struct {
	VersionRetentionLimit *int `json:"versionRetentionLimit"`
}

// ReplaceTagsRequest is the request body for replacing a page's tags
type ReplaceTagsRequest struct {
	TagIDs []uuid.UUID `json:"tagIds"`
}

func (h *PageHandler) target(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return "", uuid.Nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return "", uuid.Nil, false
	}
	return userID, id, true
}

// CreatePage creates a new page
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreatePageRequest
	if !decode(w, r, &req) {
		return
	}

	page, err := h.service.CreateNode(r.Context(), userID, simplenotes.CreateNodeRequest{
		Kind:        simplenotes.KindPage,
		Title:       req.Title,
		LibraryID:   req.LibraryID,
		ParentID:    req.ParentID,
		Content:     req.Content,
		Description: req.Description,
		Icon:        req.Icon,
		CoverImage:  req.CoverImage,
		IsPublic:    req.IsPublic,
		PublicSlug:  req.PublicSlug,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, page)
}

// ListPages lists pages; root=true restricts to parentless pages
func (h *PageHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	libraryID, ok := queryID(w, r, "libraryId")
	if !ok {
		return
	}
	parentID, ok := queryID(w, r, "parentId")
	if !ok {
		return
	}
	if root, _ := strconv.ParseBool(q.Get("root")); root && parentID == nil {
		nilID := uuid.Nil
		parentID = &nilID
	}

	list, err := h.service.ListNodes(r.Context(), userID, simplenotes.ListNodesRequest{
		Kind:      simplenotes.KindPage,
		LibraryID: libraryID,
		ParentID:  parentID,
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "pageSize"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, list)
}

// GetPage returns a page with its parent, children and tags
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetNode(r.Context(), userID, id)
	if err == nil && !detail.IsPage() {
		err = simplenotes.ErrPageNotFound
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, detail)
}

// UpdatePage applies a partial update to a page
func (h *PageHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req UpdatePageRequest
	if !decode(w, r, &req) {
		return
	}

	page, err := h.service.UpdateNode(r.Context(), userID, id, simplenotes.UpdateNodeRequest{
		Title:       req.Title,
		Content:     req.Content,
		Description: req.Description,
		Icon:        req.Icon,
		CoverImage:  req.CoverImage,
		ParentID:    req.ParentID.Ref(),
		LibraryID:   req.LibraryID,
		IsPublic:    req.IsPublic,
		PublicSlug:  req.PublicSlug,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page)
}

// DeletePage deletes a page and its descendants
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteNode(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}

// MovePage moves a page to a new parent, library or position
func (h *PageHandler) MovePage(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req MovePageRequest
	if !decode(w, r, &req) {
		return
	}

	page, err := h.service.MoveNode(r.Context(), userID, id, simplenotes.MoveNodeRequest{
		NewParentID:  req.NewParentID.Ref(),
		NewLibraryID: req.NewLibraryID,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page)
}

// MarkViewed records a view of the page
func (h *PageHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkViewed(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}

// UpdateSettings changes page settings such as version retention
func (h *PageHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req PageSettingsRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := h.service.UpdatePageSettings(r.Context(), userID, id, simplenotes.PageSettingsRequest{
		VersionRetentionLimit: req.VersionRetentionLimit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page)
}

// ListVersions lists a page's versions, newest first
func (h *PageHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	versions, err := h.service.ListVersions(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, versions)
}

// CreateVersion snapshots the page's current content
func (h *PageHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req CreateVersionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	version, err := h.service.CreateVersion(r.Context(), userID, id, req.Message)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, version)
}

// AutoVersion snapshots the page if the auto-version interval has passed.
// The response data is null when no version was written.
func (h *PageHandler) AutoVersion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	version, err := h.service.CreateAutomaticVersionIfApplicable(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, version)
}

// RestoreVersion restores the page content from a version
func (h *PageHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req RestoreVersionRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := h.service.RestoreVersion(r.Context(), userID, id, req.VersionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page)
}

// CleanupVersions deletes versions older than the requested period
func (h *PageHandler) CleanupVersions(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req CleanupVersionsRequest
	if !decode(w, r, &req) {
		return
	}
	deleted, err := h.service.CleanupVersions(r.Context(), userID, id, req.Period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, CleanupVersionsResponse{Deleted: deleted})
}

// DeleteVersion deletes one version
func (h *PageHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionId")
	if !ok {
		return
	}
	if err := h.service.DeleteVersion(r.Context(), userID, id, versionID); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}

// ListTags lists the page's tags
func (h *PageHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	tags, err := h.service.ListPageTags(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tags)
}

// ReplaceTags sets the page's tags to exactly the given IDs
func (h *PageHandler) ReplaceTags(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req ReplaceTagsRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.ReplaceTags(r.Context(), userID, id, req.TagIDs); err != nil {
		respondError(w, r, err)
		return
	}
	tags, err := h.service.ListPageTags(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tags)
}

// AttachTag attaches one tag to the page
func (h *PageHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}
	if err := h.service.AttachTag(r.Context(), userID, id, tagID); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, nil)
}

// DetachTag removes one tag from the page
func (h *PageHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}
	if err := h.service.DetachTag(r.Context(), userID, id, tagID); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}
