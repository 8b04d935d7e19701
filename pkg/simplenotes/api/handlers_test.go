package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-notes/pkg/simplenotes"
	"github.com/tendant/simple-notes/pkg/simplenotes/repo/memory"
)

type testEnvelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testServer struct {
	t      *testing.T
	router chi.Router
	token  string
}

// setupAPITest wires the full router over an in-memory store
func setupAPITest(t *testing.T) *testServer {
	svc, err := simplenotes.New(
		simplenotes.WithStore(memory.New()),
		simplenotes.WithEventSink(simplenotes.NewNoopEventSink()),
	)
	require.NoError(t, err)

	auth := NewTokenAuth("test-secret")
	_, token, err := auth.Encode(map[string]interface{}{"sub": "user-1"})
	require.NoError(t, err)

	return &testServer{t: t, router: Routes(svc, auth), token: token}
}

func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	return s.doAs(s.token, method, path, body)
}

func (s *testServer) doAs(token, method, path string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env testEnvelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeData(t *testing.T, env testEnvelope, v interface{}) {
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func (s *testServer) createLibrary(title string, public bool) simplenotes.Node {
	w, env := s.do(http.MethodPost, "/libraries", map[string]interface{}{"title": title, "isPublic": public})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	var lib simplenotes.Node
	decodeData(s.t, env, &lib)
	return lib
}

func (s *testServer) createPage(body map[string]interface{}) simplenotes.Node {
	w, env := s.do(http.MethodPost, "/pages", body)
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	var page simplenotes.Node
	decodeData(s.t, env, &page)
	return page
}

func TestAPI_RequiresToken(t *testing.T) {
	s := setupAPITest(t)

	w, env := s.doAs("", http.MethodGet, "/libraries", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, env.Code)

	w, env = s.doAs("not-a-token", http.MethodGet, "/libraries", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, env.Code)
}

func TestAPI_TokenWithoutSubject(t *testing.T) {
	s := setupAPITest(t)
	_, token, err := NewTokenAuth("test-secret").Encode(map[string]interface{}{"name": "nobody"})
	require.NoError(t, err)

	w, env := s.doAs(token, http.MethodGet, "/libraries", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthorized, env.Code)
}

func TestAPI_LibraryLifecycle(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	assert.Equal(t, lib.ID, lib.LibraryID)

	w, env := s.do(http.MethodGet, "/libraries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list simplenotes.PageList
	decodeData(t, env, &list)
	assert.Equal(t, 1, list.Total)

	w, env = s.do(http.MethodPatch, "/libraries/"+lib.ID.String(), map[string]interface{}{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var updated simplenotes.Node
	decodeData(t, env, &updated)
	assert.Equal(t, "Renamed", updated.Title)

	w, _ = s.do(http.MethodDelete, "/libraries/"+lib.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/libraries/"+lib.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestAPI_LibraryRouteRejectsPage(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Page"})

	w, env := s.do(http.MethodGet, "/libraries/"+page.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestAPI_PageTreeAndMove(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	parent := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Parent"})
	child := s.createPage(map[string]interface{}{"libraryId": lib.ID, "parentId": parent.ID, "title": "Child"})
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	w, env := s.do(http.MethodGet, "/libraries/"+lib.ID.String()+"/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree []*simplenotes.TreeNode
	decodeData(t, env, &tree)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, child.ID, tree[0].Children[0].ID)

	// Parent under its own child is a cycle
	w, env = s.do(http.MethodPost, "/pages/"+parent.ID.String()+"/move", map[string]interface{}{"newParentId": child.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeConflict, env.Code)

	// Explicit null moves to root
	w, env = s.do(http.MethodPost, "/pages/"+child.ID.String()+"/move", map[string]interface{}{"newParentId": nil})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var moved simplenotes.Node
	decodeData(t, env, &moved)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, parent.SortOrder+1, moved.SortOrder)

	w, env = s.do(http.MethodGet, "/pages?libraryId="+lib.ID.String()+"&root=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list simplenotes.PageList
	decodeData(t, env, &list)
	assert.Equal(t, 2, list.Total)
}

func TestAPI_UpdatePageNullParent(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	parent := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Parent"})
	child := s.createPage(map[string]interface{}{"libraryId": lib.ID, "parentId": parent.ID, "title": "Child"})

	// Absent parentId leaves the parent alone
	w, env := s.do(http.MethodPatch, "/pages/"+child.ID.String(), map[string]interface{}{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var updated simplenotes.Node
	decodeData(t, env, &updated)
	require.NotNil(t, updated.ParentID)

	w, env = s.do(http.MethodPatch, "/pages/"+child.ID.String(), map[string]interface{}{"parentId": nil})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	decodeData(t, env, &updated)
	assert.Nil(t, updated.ParentID)
}

func TestAPI_PageDescription(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Page", "description": "first"})
	assert.Equal(t, "first", page.Description)

	w, env := s.do(http.MethodPatch, "/pages/"+page.ID.String(), map[string]interface{}{"description": "x"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.do(http.MethodGet, "/pages/"+page.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var detail simplenotes.Node
	decodeData(t, env, &detail)
	assert.Equal(t, "x", detail.Description)
	assert.Equal(t, "Page", detail.Title)

	// An empty string clears it
	w, env = s.do(http.MethodPatch, "/pages/"+page.ID.String(), map[string]interface{}{"description": ""})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	decodeData(t, env, &detail)
	assert.Empty(t, detail.Description)
}

func TestAPI_ValidationErrors(t *testing.T) {
	s := setupAPITest(t)

	w, env := s.do(http.MethodPost, "/libraries", map[string]interface{}{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, env.Code)

	w, env = s.do(http.MethodGet, "/pages/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, env.Code)

	lib := s.createLibrary("Notes", false)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Page"})
	w, env = s.do(http.MethodPatch, "/pages/"+page.ID.String()+"/settings", map[string]interface{}{"versionRetentionLimit": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, env.Code)
}

func TestAPI_Versions(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Page"})
	base := "/pages/" + page.ID.String()

	w, env := s.do(http.MethodPost, base+"/versions", map[string]interface{}{"message": "first"})
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	var first simplenotes.Version
	decodeData(t, env, &first)
	assert.Equal(t, "first", first.Message)

	w, env = s.do(http.MethodPatch, base, map[string]interface{}{"content": map[string]interface{}{"type": "doc", "content": []interface{}{map[string]interface{}{"type": "paragraph"}}}})
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.do(http.MethodPost, base+"/versions/restore", map[string]interface{}{"versionId": first.ID})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var restored simplenotes.Node
	decodeData(t, env, &restored)
	assert.JSONEq(t, string(first.Content), string(restored.Content))

	w, env = s.do(http.MethodGet, base+"/versions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var versions []simplenotes.Version
	decodeData(t, env, &versions)
	require.NotEmpty(t, versions)
	assert.Contains(t, versions[0].Message, "Restored from version")

	w, env = s.do(http.MethodPost, base+"/versions/cleanup", map[string]interface{}{"period": "year"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, env.Code)

	w, env = s.do(http.MethodPost, base+"/versions/cleanup", map[string]interface{}{"period": "day"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var cleanup CleanupVersionsResponse
	decodeData(t, env, &cleanup)
	assert.Equal(t, 0, cleanup.Deleted)

	w, _ = s.do(http.MethodDelete, base+"/versions/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(http.MethodDelete, base+"/versions/"+first.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestAPI_Tags(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Notes", false)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Page"})

	w, env := s.do(http.MethodPost, "/tags", map[string]interface{}{"name": "go", "color": "#00add8"})
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	var tag simplenotes.Tag
	decodeData(t, env, &tag)

	w, env = s.do(http.MethodPost, "/tags", map[string]interface{}{"name": "go"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeConflict, env.Code)

	tagPath := "/pages/" + page.ID.String() + "/tags/" + tag.ID.String()
	w, _ = s.do(http.MethodPost, tagPath, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w, env = s.do(http.MethodPost, tagPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeConflict, env.Code)

	w, env = s.do(http.MethodPut, "/pages/"+page.ID.String()+"/tags", map[string]interface{}{"tagIds": []interface{}{}})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var tags []simplenotes.Tag
	decodeData(t, env, &tags)
	assert.Empty(t, tags)

	w, env = s.do(http.MethodDelete, tagPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}

func TestAPI_PublicProjection(t *testing.T) {
	s := setupAPITest(t)
	lib := s.createLibrary("Shared", true)
	require.NotEmpty(t, lib.PublicSlug)
	page := s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Golang tips", "isPublic": true, "publicSlug": "golang-tips"})
	s.createPage(map[string]interface{}{"libraryId": lib.ID, "title": "Private"})

	// Public routes need no token
	w, env := s.doAs("", http.MethodGet, "/public/pages/golang-tips", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var pub simplenotes.PublicPage
	decodeData(t, env, &pub)
	assert.Equal(t, page.ID, pub.ID)

	w, env = s.doAs("", http.MethodGet, "/public/libraries/"+lib.PublicSlug, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var publib simplenotes.PublicLibrary
	decodeData(t, env, &publib)
	assert.Equal(t, 1, publib.PageCount)

	w, env = s.doAs("", http.MethodGet, "/public/libraries/"+lib.ID.String()+"/tree", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var tree []*simplenotes.TreeNode
	decodeData(t, env, &tree)
	require.Len(t, tree, 1)
	assert.Nil(t, tree[0].Content)

	w, env = s.doAs("", http.MethodGet, "/public/search?q=golang", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []simplenotes.Node
	decodeData(t, env, &results)
	assert.Len(t, results, 1)

	w, env = s.doAs("", http.MethodGet, "/public/pages/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, env.Code)
}
