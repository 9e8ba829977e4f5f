// Package api is a typed client for the users/posts REST API that postdesk
// administers. Each resource supports list, get, create, update and delete.
package api

// Resource names used in query keys and errors.
const (
	ResourceUsers = "users"
	ResourcePosts = "posts"
)

// Titles lists the honorifics the API accepts for User.Title.
var Titles = []string{"mr", "ms", "mrs", "miss", "dr"}

// User is a user record as returned by the API.
type User struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Picture   string `json:"picture"`
}

// FullName returns "First Last".
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Post is a post record as returned by the API. Owner is embedded, not referenced.
type Post struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Image       string   `json:"image"`
	Likes       int      `json:"likes"`
	Tags        []string `json:"tags"`
	PublishDate string   `json:"publishDate,omitempty"`
	UpdatedDate string   `json:"updatedDate,omitempty"`
	Owner       User     `json:"owner"`
}

// Page is one page of a list result.
// TotalPages == 0 implies Items is empty.
type Page[T any] struct {
	Items      []T
	Page       int
	TotalPages int
	Total      int
	Limit      int
}

// ListFilter selects a page of a resource. Tag applies to posts only.
type ListFilter struct {
	Limit int
	Page  int
	Tag   string
}

// UserFields is the writable part of a User.
type UserFields struct {
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Picture   string `json:"picture"`
}

// PostFields is the writable part of a Post. Owner is a user ID and is only
// sent on create.
type PostFields struct {
	Text  string   `json:"text"`
	Image string   `json:"image"`
	Likes int      `json:"likes"`
	Tags  []string `json:"tags"`
	Owner string   `json:"owner,omitempty"`
}

// listResponse is the envelope of every list endpoint.
type listResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// TotalPages returns ceil(total/limit). It is used for every list endpoint,
// including the tag-scoped one. A non-positive limit yields 0.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func (r listResponse[T]) page() Page[T] {
	items := r.Data
	if items == nil {
		items = []T{}
	}
	pages := TotalPages(r.Total, r.Limit)
	if pages == 0 {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       r.Page,
		TotalPages: pages,
		Total:      r.Total,
		Limit:      r.Limit,
	}
}
