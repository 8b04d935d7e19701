package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// Envelope codes
const (
	CodeSuccess      = 0
	CodeValidation   = 1001
	CodeNotFound     = 1002
	CodeConflict     = 1003
	CodeUnauthorized = 2001
	CodeServerError  = 5001
)

// Envelope wraps every response body
type Envelope struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Code: CodeSuccess, Data: data, Message: "success"})
}

func fail(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Code: code, Data: nil, Message: message})
}

// respondError maps a service error onto a status code and envelope code.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case simplenotes.IsNotFound(err):
		fail(w, r, http.StatusNotFound, CodeNotFound, rootMessage(err))
	case simplenotes.IsConflict(err):
		fail(w, r, http.StatusConflict, CodeConflict, rootMessage(err))
	case simplenotes.IsBadRequest(err):
		fail(w, r, http.StatusBadRequest, CodeValidation, rootMessage(err))
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		fail(w, r, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}

// rootMessage strips the NodeError operation wrapper so clients see the
// domain message only.
func rootMessage(err error) string {
	var nodeErr *simplenotes.NodeError
	for errors.As(err, &nodeErr) {
		err = nodeErr.Err
	}
	return err.Error()
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	fail(w, r, http.StatusBadRequest, CodeValidation, message)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, r, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, r, "invalid "+name)
		return nil, false
	}
	return &id, true
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

// OptionalID distinguishes an absent JSON field from an explicit null.
type OptionalID struct {
	Set bool
	ID  *uuid.UUID
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.ID = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.ID = &id
	return nil
}

// Ref converts the field to the service form: nil when absent, a pointer
// to uuid.Nil for an explicit null.
func (o OptionalID) Ref() *uuid.UUID {
	if !o.Set {
		return nil
	}
	if o.ID == nil {
		root := uuid.Nil
		return &root
	}
	id := *o.ID
	return &id
}
