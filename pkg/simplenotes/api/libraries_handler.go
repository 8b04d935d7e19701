package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// LibraryHandler handles HTTP requests for libraries
type LibraryHandler struct {
	service simplenotes.Service
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(service simplenotes.Service) *LibraryHandler {
	return &LibraryHandler{service: service}
}

// Routes returns the routes for libraries
func (h *LibraryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateLibrary)
	r.Get("/", h.ListLibraries)
	r.Get("/{id}", h.GetLibrary)
	r.Patch("/{id}", h.UpdateLibrary)
	r.Delete("/{id}", h.DeleteLibrary)
	r.Get("/{id}/tree", h.GetTree)

	return r
}

// CreateLibraryRequest is the request body for creating a library
type CreateLibraryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	CoverImage  string `json:"coverImage"`
	IsPublic    bool   `json:"isPublic"`
	PublicSlug  string `json:"publicSlug"`
}

// UpdateLibraryRequest is the request body for updating a library
type UpdateLibraryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	CoverImage  *string `json:"coverImage"`
	IsPublic    *bool   `json:"isPublic"`
	PublicSlug  *string `json:"publicSlug"`
}

// CreateLibrary creates a new library
func (h *LibraryHandler) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateLibraryRequest
	if !decode(w, r, &req) {
		return
	}

	library, err := h.service.CreateNode(r.Context(), userID, simplenotes.CreateNodeRequest{
		Kind:        simplenotes.KindLibrary,
		Title:       req.Title,
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
	respond(w, r, http.StatusCreated, library)
}

// ListLibraries lists the caller's libraries
func (h *LibraryHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.service.ListNodes(r.Context(), userID, simplenotes.ListNodesRequest{
		Kind:      simplenotes.KindLibrary,
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

// library loads a node and requires it to be a library
func (h *LibraryHandler) library(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, *simplenotes.NodeDetail, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return "", uuid.Nil, nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return "", uuid.Nil, nil, false
	}
	detail, err := h.service.GetNode(r.Context(), userID, id)
	if err == nil && !detail.IsLibrary() {
		err = simplenotes.ErrLibraryNotFound
	}
	if err != nil {
		respondError(w, r, err)
		return "", uuid.Nil, nil, false
	}
	return userID, id, detail, true
}

// GetLibrary returns a library with its root pages and tags
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	_, _, detail, ok := h.library(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK, detail)
}

// UpdateLibrary applies a partial update to a library
func (h *LibraryHandler) UpdateLibrary(w http.ResponseWriter, r *http.Request) {
	var req UpdateLibraryRequest
	if !decode(w, r, &req) {
		return
	}
	userID, id, _, ok := h.library(w, r)
	if !ok {
		return
	}

	library, err := h.service.UpdateNode(r.Context(), userID, id, simplenotes.UpdateNodeRequest{
		Title:       req.Title,
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
	respond(w, r, http.StatusOK, library)
}

// DeleteLibrary deletes a library and every page in it
func (h *LibraryHandler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	userID, id, _, ok := h.library(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteNode(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}

// GetTree returns the library's full page forest
func (h *LibraryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tree, err := h.service.GetTree(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tree)
}
