package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// TagHandler handles HTTP requests for the global tag catalogue
type TagHandler struct {
	service simplenotes.Service
}

// NewTagHandler creates a new tag handler
func NewTagHandler(service simplenotes.Service) *TagHandler {
	return &TagHandler{service: service}
}

// Routes returns the routes for tags
func (h *TagHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateTag)
	r.Get("/", h.ListTags)
	r.Get("/{id}", h.GetTag)
	r.Delete("/{id}", h.DeleteTag)

	return r
}

// CreateTagRequest is the request body for creating a tag
type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateTag creates a tag with a unique name
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decode(w, r, &req) {
		return
	}
	tag, err := h.service.CreateTag(r.Context(), simplenotes.CreateTagRequest{Name: req.Name, Color: req.Color})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, tag)
}

// ListTags lists every tag
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tags)
}

// GetTag returns one tag
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tag, err := h.service.GetTag(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tag)
}

// DeleteTag deletes a tag and detaches it everywhere
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTag(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}
