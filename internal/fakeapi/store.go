package fakeapi

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smileynet/postdesk/internal/api"
)

// Sentinel errors mapped to API error codes by the handlers.
var (
	ErrNotFound     = errors.New("fakeapi: resource not found")
	ErrBodyNotValid = errors.New("fakeapi: body not valid")
	ErrEmailTaken   = errors.New("fakeapi: email already used")
)

type userRecord struct {
	user      api.User
	createdBy string
}

type postRecord struct {
	post      api.Post
	ownerID   string
	createdBy string
}

// Store is the in-memory data set behind the fake API.
// It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	users []*userRecord
	posts []*postRecord
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// ListUsers returns a window of users. When appID is non-empty only users
// created with that app id are considered.
func (s *Store) ListUsers(appID string, limit, page int) ([]api.User, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []api.User
	for _, r := range s.users {
		if appID != "" && r.createdBy != appID {
			continue
		}
		all = append(all, r.user)
	}
	return window(all, limit, page), len(all)
}

// GetUser returns a single user.
func (s *Store) GetUser(id string) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findUser(id)
	if r == nil {
		return api.User{}, ErrNotFound
	}
	return r.user, nil
}

// CreateUser validates and stores a new user.
func (s *Store) CreateUser(appID string, f api.UserFields) (api.User, error) {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	if len(f.FirstName) < 2 || len(f.LastName) < 2 || f.Email == "" {
		return api.User{}, ErrBodyNotValid
	}
	if f.Title != "" && !slices.Contains(api.Titles, f.Title) {
		return api.User{}, ErrBodyNotValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.users {
		if strings.EqualFold(r.user.Email, f.Email) {
			return api.User{}, ErrEmailTaken
		}
	}
	u := api.User{
		ID:        uuid.NewString(),
		Title:     f.Title,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Picture:   f.Picture,
	}
	s.users = append(s.users, &userRecord{user: u, createdBy: appID})
	return u, nil
}

// UpdateUser replaces the writable fields of a user. Email is immutable.
func (s *Store) UpdateUser(id string, f api.UserFields) (api.User, error) {
	if f.FirstName != "" && len(strings.TrimSpace(f.FirstName)) < 2 {
		return api.User{}, ErrBodyNotValid
	}
	if f.Title != "" && !slices.Contains(api.Titles, f.Title) {
		return api.User{}, ErrBodyNotValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findUser(id)
	if r == nil {
		return api.User{}, ErrNotFound
	}
	if f.Title != "" {
		r.user.Title = f.Title
	}
	if f.FirstName != "" {
		r.user.FirstName = strings.TrimSpace(f.FirstName)
	}
	if f.LastName != "" {
		r.user.LastName = strings.TrimSpace(f.LastName)
	}
	if f.Picture != "" {
		r.user.Picture = f.Picture
	}
	for _, p := range s.posts {
		if p.ownerID == id {
			p.post.Owner = ownerView(r.user)
		}
	}
	return r.user, nil
}

// DeleteUser removes a user and the posts they own.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.users, func(r *userRecord) bool { return r.user.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	s.users = slices.Delete(s.users, i, i+1)
	s.posts = slices.DeleteFunc(s.posts, func(p *postRecord) bool { return p.ownerID == id })
	return nil
}

// ListPosts returns a window of posts, optionally restricted to a tag and to
// posts created with appID.
func (s *Store) ListPosts(appID, tag string, limit, page int) ([]api.Post, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []api.Post
	for _, r := range s.posts {
		if appID != "" && r.createdBy != appID {
			continue
		}
		if tag != "" && !slices.Contains(r.post.Tags, tag) {
			continue
		}
		all = append(all, clonePost(r.post))
	}
	return window(all, limit, page), len(all)
}

// GetPost returns a single post.
func (s *Store) GetPost(id string) (api.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findPost(id)
	if r == nil {
		return api.Post{}, ErrNotFound
	}
	return clonePost(r.post), nil
}

// CreatePost validates and stores a new post owned by f.Owner.
func (s *Store) CreatePost(appID string, f api.PostFields) (api.Post, error) {
	if strings.TrimSpace(f.Text) == "" || f.Owner == "" || f.Likes < 0 {
		return api.Post{}, ErrBodyNotValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner := s.findUser(f.Owner)
	if owner == nil {
		return api.Post{}, ErrBodyNotValid
	}
	ts := s.now().UTC().Format(time.RFC3339)
	p := api.Post{
		ID:          uuid.NewString(),
		Text:        f.Text,
		Image:       f.Image,
		Likes:       f.Likes,
		Tags:        normalizeTags(f.Tags),
		PublishDate: ts,
		UpdatedDate: ts,
		Owner:       ownerView(owner.user),
	}
	s.posts = append(s.posts, &postRecord{post: p, ownerID: owner.user.ID, createdBy: appID})
	return clonePost(p), nil
}

// UpdatePost replaces the writable fields of a post.
func (s *Store) UpdatePost(id string, f api.PostFields) (api.Post, error) {
	if f.Likes < 0 {
		return api.Post{}, ErrBodyNotValid
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.findPost(id)
	if r == nil {
		return api.Post{}, ErrNotFound
	}
	if f.Text != "" {
		r.post.Text = f.Text
	}
	if f.Image != "" {
		r.post.Image = f.Image
	}
	if f.Tags != nil {
		r.post.Tags = normalizeTags(f.Tags)
	}
	r.post.Likes = f.Likes
	r.post.UpdatedDate = s.now().UTC().Format(time.RFC3339)
	return clonePost(r.post), nil
}

// DeletePost removes a post.
func (s *Store) DeletePost(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.posts, func(r *postRecord) bool { return r.post.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	s.posts = slices.Delete(s.posts, i, i+1)
	return nil
}

func (s *Store) findUser(id string) *userRecord {
	for _, r := range s.users {
		if r.user.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) findPost(id string) *postRecord {
	for _, r := range s.posts {
		if r.post.ID == id {
			return r
		}
	}
	return nil
}

// ownerView is the user shape embedded in posts (no email).
func ownerView(u api.User) api.User {
	u.Email = ""
	return u
}

func clonePost(p api.Post) api.Post {
	p.Tags = slices.Clone(p.Tags)
	return p
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// window returns items[page*limit : page*limit+limit], clamped.
func window[T any](items []T, limit, page int) []T {
	start := page * limit
	if start >= len(items) || limit <= 0 {
		return []T{}
	}
	end := min(start+limit, len(items))
	return slices.Clone(items[start:end])
}
