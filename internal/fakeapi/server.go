// Package fakeapi serves an in-memory implementation of the users/posts API
// for local development and tests. It mirrors the routes, headers, paging
// envelope and error codes of the hosted API.
package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/api"
)

// Paging limits enforced by the hosted API.
const (
	defaultLimit = 20
	minLimit     = 5
	maxLimit     = 50
)

// Error codes returned in {"error": "..."} bodies.
const (
	codeAppIDMissing  = "APP_ID_MISSING"
	codeAppIDNotExist = "APP_ID_NOT_EXIST"
	codeParamsInvalid = "PARAMS_NOT_VALID"
	codeBodyInvalid   = "BODY_NOT_VALID"
	codeNotFound      = "RESOURCE_NOT_FOUND"
)

// Server routes API requests to a Store.
type Server struct {
	store *Store
	appID string
	log   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore replaces the server's store.
func WithStore(st *Store) Option {
	return func(s *Server) { s.store = st }
}

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a Server that accepts requests carrying appID.
func New(appID string, opts ...Option) *Server {
	s := &Server{appID: appID}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// Handler builds the HTTP handler.
//
// Routes:
//
//	GET    /user               list users
//	POST   /user/create        create user
//	GET    /user/{id}          get user
//	PUT    /user/{id}          update user
//	DELETE /user/{id}          delete user
//	GET    /post               list posts
//	POST   /post/create        create post
//	GET    /post/{id}          get post
//	PUT    /post/{id}          update post
//	DELETE /post/{id}          delete post
//	GET    /tag/{tag}/post     list posts with tag
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(WithRequestLogging(s.log))
	r.Use(s.requireAppID)

	r.Route("/user", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/create", s.createUser)
		r.Get("/{id}", s.getUser)
		r.With(chiMiddleware.AllowContentType("application/json")).Put("/{id}", s.updateUser)
		r.Delete("/{id}", s.deleteUser)
	})
	r.Route("/post", func(r chi.Router) {
		r.Get("/", s.listPosts)
		r.With(chiMiddleware.AllowContentType("application/json")).Post("/create", s.createPost)
		r.Get("/{id}", s.getPost)
		r.With(chiMiddleware.AllowContentType("application/json")).Put("/{id}", s.updatePost)
		r.Delete("/{id}", s.deletePost)
	})
	r.Get("/tag/{tag}/post", s.listPosts)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound)
	})

	return r
}

// requireAppID rejects requests without the configured app-id header.
func (s *Server) requireAppID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("app-id")
		switch {
		case id == "":
			writeError(w, http.StatusForbidden, codeAppIDMissing)
			return
		case id != s.appID:
			writeError(w, http.StatusForbidden, codeAppIDNotExist)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type listEnvelope[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// paging parses limit, page and created from the query string.
func (s *Server) paging(r *http.Request) (limit, page int, createdBy string, ok bool) {
	q := r.URL.Query()
	limit, page = defaultLimit, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minLimit || n > maxLimit {
			return 0, 0, "", false
		}
		limit = n
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, "", false
		}
		page = n
	}
	if q.Get("created") == "1" {
		createdBy = s.appID
	}
	return limit, page, createdBy, true
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, page, createdBy, ok := s.paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeParamsInvalid)
		return
	}
	users, total := s.store.ListUsers(createdBy, limit, page)
	writeJSON(w, http.StatusOK, listEnvelope[api.User]{Data: users, Total: total, Page: page, Limit: limit})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var f api.UserFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, codeBodyInvalid)
		return
	}
	u, err := s.store.CreateUser(s.appID, f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var f api.UserFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, codeBodyInvalid)
		return
	}
	u, err := s.store.UpdateUser(chi.URLParam(r, "id"), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteUser(id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	limit, page, createdBy, ok := s.paging(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeParamsInvalid)
		return
	}
	posts, total := s.store.ListPosts(createdBy, chi.URLParam(r, "tag"), limit, page)
	writeJSON(w, http.StatusOK, listEnvelope[api.Post]{Data: posts, Total: total, Page: page, Limit: limit})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPost(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var f api.PostFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, codeBodyInvalid)
		return
	}
	p, err := s.store.CreatePost(s.appID, f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	var f api.PostFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, codeBodyInvalid)
		return
	}
	p, err := s.store.UpdatePost(chi.URLParam(r, "id"), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeletePost(id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound)
	case errors.Is(err, ErrBodyNotValid), errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusBadRequest, codeBodyInvalid)
	default:
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
