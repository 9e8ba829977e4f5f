package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/postdesk/internal/api"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// keyMsg builds a key message from its string form, e.g. "enter" or "n".
func keyMsg(s string) tea.KeyMsg {
	named := map[string]tea.KeyType{
		"enter":     tea.KeyEnter,
		"esc":       tea.KeyEsc,
		"tab":       tea.KeyTab,
		"shift+tab": tea.KeyShiftTab,
		"up":        tea.KeyUp,
		"down":      tea.KeyDown,
		"left":      tea.KeyLeft,
		"right":     tea.KeyRight,
		"home":      tea.KeyHome,
		"end":       tea.KeyEnd,
		"backspace": tea.KeyBackspace,
		"ctrl+c":    tea.KeyCtrlC,
		"ctrl+n":    tea.KeyCtrlN,
		"ctrl+s":    tea.KeyCtrlS,
		"ctrl+x":    tea.KeyCtrlX,
	}
	if kt, ok := named[s]; ok {
		return tea.KeyMsg{Type: kt}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// harness drives a Model like a tea.Program would: commands run on their
// own goroutines and their messages are fed back through Update. Spinner
// ticks are dropped so the loop can go idle.
type harness struct {
	t    *testing.T
	m    Model
	msgs chan tea.Msg
	done chan struct{}
	quit bool
}

const harnessIdle = 150 * time.Millisecond

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	m := NewModel(opts...)
	t.Cleanup(m.Close)
	h := &harness{t: t, m: m, msgs: make(chan tea.Msg, 64), done: make(chan struct{})}
	t.Cleanup(func() { close(h.done) })

	h.update(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.exec(h.m.Init())
	h.settle()
	return h
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		msg := cmd()
		if msg == nil {
			return
		}
		select {
		case h.msgs <- msg:
		case <-h.done:
		}
	}()
}

func (h *harness) update(msg tea.Msg) {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.exec(cmd)
}

func (h *harness) handle(msg tea.Msg) {
	switch msg := msg.(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			h.exec(c)
		}
	case spinner.TickMsg:
	case tea.QuitMsg:
		h.quit = true
	default:
		h.update(msg)
	}
}

// settle processes messages until none arrive for harnessIdle.
func (h *harness) settle() {
	h.t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-h.msgs:
			h.handle(msg)
		case <-time.After(harnessIdle):
			return
		case <-deadline:
			h.t.Fatal("harness did not go idle")
		}
	}
}

// press sends keys one by one and then settles.
func (h *harness) press(keys ...string) {
	for _, k := range keys {
		h.update(keyMsg(k))
	}
	h.settle()
}

// typeText sends each rune of s as a key without settling.
func (h *harness) typeText(s string) {
	for _, r := range s {
		h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) view() string {
	return stripANSI(h.m.View())
}

// stubAPI is an in-memory UserService and PostService that records calls.
type stubAPI struct {
	mu     sync.Mutex
	users  []api.User
	posts  []api.Post
	nextID int
	calls  []string

	writeErr error
	listErr  error
}

var (
	_ UserService = (*stubAPI)(nil)
	_ PostService = (*stubAPI)(nil)
)

func newStubAPI(users, posts int) *stubAPI {
	s := &stubAPI{}
	for i := range users {
		s.users = append(s.users, api.User{
			ID:        fmt.Sprintf("u%02d", i),
			Title:     "mr",
			FirstName: fmt.Sprintf("First%02d", i),
			LastName:  fmt.Sprintf("Last%02d", i),
			Picture:   "https://example.com/u.jpg",
		})
	}
	for i := range posts {
		s.posts = append(s.posts, api.Post{
			ID:    fmt.Sprintf("p%02d", i),
			Text:  fmt.Sprintf("post number %02d", i),
			Image: fmt.Sprintf("https://img.example.com/%d.jpg", i),
			Tags:  []string{"all", fmt.Sprintf("t%d", i%3)},
			Owner: api.User{ID: "u00", FirstName: "First00", LastName: "Last00"},
		})
	}
	return s
}

func (s *stubAPI) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// count returns how many recorded calls start with prefix.
func (s *stubAPI) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func stubPage[T any](all []T, f api.ListFilter) api.Page[T] {
	start := min(f.Page*f.Limit, len(all))
	end := min(start+f.Limit, len(all))
	return api.Page[T]{
		Items:      slices.Clone(all[start:end]),
		Page:       f.Page,
		TotalPages: api.TotalPages(len(all), f.Limit),
		Total:      len(all),
		Limit:      f.Limit,
	}
}

func (s *stubAPI) ListUsers(_ context.Context, f api.ListFilter) (api.Page[api.User], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListUsers page=%d", f.Page)
	if s.listErr != nil {
		return api.Page[api.User]{}, s.listErr
	}
	return stubPage(s.users, f), nil
}

func (s *stubAPI) CreateUser(_ context.Context, fields api.UserFields) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateUser %s", fields.FirstName)
	if s.writeErr != nil {
		return api.User{}, s.writeErr
	}
	s.nextID++
	u := api.User{
		ID:        fmt.Sprintf("new%d", s.nextID),
		Title:     fields.Title,
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     fields.Email,
		Picture:   fields.Picture,
	}
	s.users = append([]api.User{u}, s.users...)
	return u, nil
}

func (s *stubAPI) UpdateUser(_ context.Context, id string, fields api.UserFields) (api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateUser %s", id)
	if s.writeErr != nil {
		return api.User{}, s.writeErr
	}
	for i, u := range s.users {
		if u.ID == id {
			u.Title, u.FirstName, u.LastName, u.Picture = fields.Title, fields.FirstName, fields.LastName, fields.Picture
			s.users[i] = u
			return u, nil
		}
	}
	return api.User{}, errors.New("not found")
}

func (s *stubAPI) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteUser %s", id)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.users = slices.DeleteFunc(s.users, func(u api.User) bool { return u.ID == id })
	return nil
}

func (s *stubAPI) ListPosts(_ context.Context, f api.ListFilter) (api.Page[api.Post], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListPosts tag=%s page=%d", f.Tag, f.Page)
	if s.listErr != nil {
		return api.Page[api.Post]{}, s.listErr
	}
	all := s.posts
	if f.Tag != "" {
		all = nil
		for _, p := range s.posts {
			if slices.Contains(p.Tags, f.Tag) {
				all = append(all, p)
			}
		}
	}
	return stubPage(all, f), nil
}

func (s *stubAPI) CreatePost(_ context.Context, fields api.PostFields) (api.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreatePost %s", fields.Owner)
	if s.writeErr != nil {
		return api.Post{}, s.writeErr
	}
	s.nextID++
	p := api.Post{
		ID:    fmt.Sprintf("newp%d", s.nextID),
		Text:  fields.Text,
		Image: fields.Image,
		Likes: fields.Likes,
		Tags:  fields.Tags,
		Owner: api.User{ID: fields.Owner},
	}
	s.posts = append([]api.Post{p}, s.posts...)
	return p, nil
}

func (s *stubAPI) UpdatePost(_ context.Context, id string, fields api.PostFields) (api.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdatePost %s", id)
	if s.writeErr != nil {
		return api.Post{}, s.writeErr
	}
	for i, p := range s.posts {
		if p.ID == id {
			p.Text, p.Image, p.Likes, p.Tags = fields.Text, fields.Image, fields.Likes, fields.Tags
			s.posts[i] = p
			return p, nil
		}
	}
	return api.Post{}, errors.New("not found")
}

func (s *stubAPI) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeletePost %s", id)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.posts = slices.DeleteFunc(s.posts, func(p api.Post) bool { return p.ID == id })
	return nil
}

// stubOptions wires s into a model with a short debounce and long toasts.
func stubOptions(s *stubAPI, extra ...Option) []Option {
	opts := []Option{
		WithUsers(s),
		WithPosts(s),
		WithDebounce(0),
		WithToastDuration(time.Hour),
	}
	return append(opts, extra...)
}
