package fakeapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileynet/postdesk/internal/api"
)

const appID = "fake-app"

func do(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func withApp() map[string]string { return map[string]string{"app-id": appID} }

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

func TestServer_MissingAppID(t *testing.T) {
	h := New(appID).Handler()

	w := do(t, h, http.MethodGet, "/user", nil, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, codeAppIDMissing, errorCode(t, w))
}

func TestServer_UnknownAppID(t *testing.T) {
	h := New(appID).Handler()

	w := do(t, h, http.MethodGet, "/user", nil, map[string]string{"app-id": "nope"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, codeAppIDNotExist, errorCode(t, w))
}

func TestServer_ListEnvelope(t *testing.T) {
	s := New(appID)
	require.NoError(t, s.Store().Seed(appID, 7))

	w := do(t, s.Handler(), http.MethodGet, "/user?limit=5&page=1&created=1", nil, withApp())
	require.Equal(t, http.StatusOK, w.Code)

	var env listEnvelope[api.User]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, 7, env.Total)
	assert.Equal(t, 1, env.Page)
	assert.Equal(t, 5, env.Limit)
	assert.Len(t, env.Data, 2)
}

func TestServer_CreatedFilter(t *testing.T) {
	st := NewStore()
	require.NoError(t, st.Seed("other-app", 3))
	require.NoError(t, st.Seed(appID, 1))
	h := New(appID, WithStore(st)).Handler()

	w := do(t, h, http.MethodGet, "/post?limit=10&created=1", nil, withApp())
	var mine listEnvelope[api.Post]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))

	w = do(t, h, http.MethodGet, "/post?limit=10", nil, withApp())
	var all listEnvelope[api.Post]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))

	assert.Equal(t, 2, mine.Total)
	assert.Equal(t, 8, all.Total)
}

func TestServer_InvalidPaging(t *testing.T) {
	h := New(appID).Handler()

	for _, q := range []string{"limit=2", "limit=51", "limit=x", "page=-1"} {
		w := do(t, h, http.MethodGet, "/user?"+q, nil, withApp())
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestServer_TagListing(t *testing.T) {
	s := New(appID)
	require.NoError(t, s.Store().Seed(appID, 4))

	w := do(t, s.Handler(), http.MethodGet, "/tag/dog/post?limit=10&created=1", nil, withApp())
	require.Equal(t, http.StatusOK, w.Code)

	var env listEnvelope[api.Post]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.NotEmpty(t, env.Data)
	for _, p := range env.Data {
		assert.Contains(t, p.Tags, "dog")
	}
}

func TestServer_CreateUserValidation(t *testing.T) {
	h := New(appID).Handler()

	w := do(t, h, http.MethodPost, "/user/create", api.UserFields{FirstName: "A", LastName: "Bee", Email: "a@b.c"}, withApp())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeBodyInvalid, errorCode(t, w))
}

func TestServer_DuplicateEmail(t *testing.T) {
	h := New(appID).Handler()
	u := api.UserFields{FirstName: "Ann", LastName: "Bee", Email: "ann@example.com"}

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/user/create", u, withApp()).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/user/create", u, withApp()).Code)
}

func TestServer_WriteRequiresJSON(t *testing.T) {
	h := New(appID).Handler()
	req := httptest.NewRequest(http.MethodPost, "/user/create", bytes.NewBufferString("firstName=x"))
	req.Header.Set("app-id", appID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestServer_DeleteUserCascadesPosts(t *testing.T) {
	s := New(appID)
	require.NoError(t, s.Store().Seed(appID, 2))
	users, _ := s.Store().ListUsers(appID, 10, 0)
	require.Len(t, users, 2)

	w := do(t, s.Handler(), http.MethodDelete, "/user/"+users[0].ID, nil, withApp())
	require.Equal(t, http.StatusOK, w.Code)

	posts, total := s.Store().ListPosts(appID, "", 10, 0)
	assert.Equal(t, 2, total)
	for _, p := range posts {
		assert.Equal(t, users[1].ID, p.Owner.ID)
	}
}

func TestServer_NotFound(t *testing.T) {
	h := New(appID).Handler()

	for _, target := range []string{"/user/missing", "/post/missing", "/nothing"} {
		w := do(t, h, http.MethodGet, target, nil, withApp())
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestServer_UpdatePostKeepsOwner(t *testing.T) {
	s := New(appID)
	require.NoError(t, s.Store().Seed(appID, 1))
	posts, _ := s.Store().ListPosts(appID, "", 10, 0)
	require.NotEmpty(t, posts)
	p := posts[0]

	w := do(t, s.Handler(), http.MethodPut, "/post/"+p.ID, api.PostFields{Text: "changed text", Likes: 1, Tags: []string{"x"}}, withApp())
	require.Equal(t, http.StatusOK, w.Code)

	got, err := s.Store().GetPost(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed text", got.Text)
	assert.Equal(t, p.Owner.ID, got.Owner.ID)
	assert.Equal(t, p.Image, got.Image)
}
