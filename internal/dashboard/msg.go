// Package dashboard implements the postdesk TUI: paginated users and posts
// screens over the resource API with create, edit, delete and image preview
// modals. Reads go through a shared query cache; writes invalidate it.
package dashboard

import (
	"context"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/query"
)

// Screen identifies one of the navigable list screens.
type Screen int

const (
	ScreenHome  Screen = iota // Posts filtered by tag.
	ScreenUsers               // All users.
	ScreenPosts               // All posts.
)

func (s Screen) String() string {
	switch s {
	case ScreenHome:
		return "Home"
	case ScreenUsers:
		return "Users"
	case ScreenPosts:
		return "Posts"
	}
	return "?"
}

// screens is the tab order.
var screens = []Screen{ScreenHome, ScreenUsers, ScreenPosts}

// Modal identifies the overlay currently capturing keys.
type Modal int

const (
	ModalNone Modal = iota
	ModalUserForm
	ModalPostForm
	ModalConfirm
	ModalPreview
)

// --- Consumer-side interfaces ---

// UserService reads and writes users. *api.Client satisfies it.
type UserService interface {
	ListUsers(ctx context.Context, f api.ListFilter) (api.Page[api.User], error)
	CreateUser(ctx context.Context, fields api.UserFields) (api.User, error)
	UpdateUser(ctx context.Context, id string, fields api.UserFields) (api.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PostService reads and writes posts. *api.Client satisfies it.
type PostService interface {
	ListPosts(ctx context.Context, f api.ListFilter) (api.Page[api.Post], error)
	CreatePost(ctx context.Context, fields api.PostFields) (api.Post, error)
	UpdatePost(ctx context.Context, id string, fields api.PostFields) (api.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// --- tea.Msg types ---

// PageLoadedMsg carries the result of a list query for Key. Epoch is the
// cache epoch the query started in.
type PageLoadedMsg[T any] struct {
	Key   query.Key
	Epoch uint64
	Page  api.Page[T]
	Err   error
}

// OwnersLoadedMsg carries one page of users for the owner picker.
type OwnersLoadedMsg struct {
	Key   query.Key
	Epoch uint64
	Page  api.Page[api.User]
	Err   error
}

// CacheEventMsg forwards a query cache event into the update loop.
type CacheEventMsg struct {
	Event query.Event
}

// Mutation names a write operation.
type Mutation int

const (
	MutationCreate Mutation = iota
	MutationUpdate
	MutationDelete
)

// MutationDoneMsg reports the outcome of a create, update or delete. Seq
// identifies the form or confirm modal that issued it.
type MutationDoneMsg struct {
	Resource string
	Op       Mutation
	Seq      int
	Err      error
}

// ToastExpiredMsg dismisses the toast with ID.
type ToastExpiredMsg struct {
	ID string
}

// FilterDebounceMsg fires after the tag filter has been idle for the
// debounce delay. Only the newest Seq is honoured.
type FilterDebounceMsg struct {
	Seq int
}
