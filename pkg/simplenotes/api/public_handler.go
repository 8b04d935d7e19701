package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// PublicHandler serves the unauthenticated read-only projection
type PublicHandler struct {
	service simplenotes.Service
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(service simplenotes.Service) *PublicHandler {
	return &PublicHandler{service: service}
}

// Routes returns the public routes
func (h *PublicHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/pages/{slug}", h.GetPage)
	r.Get("/libraries/{slug}", h.GetLibrary)
	r.Get("/libraries/{id}/tree", h.GetTree)
	r.Get("/search", h.Search)

	return r
}

// GetPage returns a public page by slug
func (h *PublicHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.FindPageBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, page)
}

// GetLibrary returns a public library by slug
func (h *PublicHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	library, err := h.service.FindLibraryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, library)
}

// GetTree returns the public page forest of a public library
func (h *PublicHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tree, err := h.service.GetPublicTree(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, tree)
}

// Search matches public pages by title or content
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SearchPublic(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, results)
}
