package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// Routes assembles the versioned API: /public is open, everything else
// requires a bearer token verified by auth.
func Routes(service simplenotes.Service, auth *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()

	r.Mount("/public", NewPublicHandler(service).Routes())

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(auth))
		r.Use(Authenticator)
		r.Mount("/libraries", NewLibraryHandler(service).Routes())
		r.Mount("/pages", NewPageHandler(service).Routes())
		r.Mount("/tags", NewTagHandler(service).Routes())
	})

	return r
}
