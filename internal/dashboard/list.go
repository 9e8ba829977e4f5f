package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/query"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// Read-state texts.
const (
	textLoadFailed = "Something went wrong."
	textNoUsers    = "No users yet."
	textNoPosts    = "No posts yet."
)

// listState is one paginated list. The page index is 0-based. Previous
// items stay visible while the next page loads.
type listState[T any] struct {
	resource   string
	limit      int
	tag        string
	page       int
	totalPages int
	items      []T
	loaded     bool // some page has resolved at least once
	loading    bool
	err        error
	cursor     int
	activeKey  query.Key
	epoch      uint64 // oldest cache epoch still accepted
}

func newListState[T any](resource string, limit int) listState[T] {
	l := listState[T]{resource: resource, limit: limit}
	l.activeKey = l.keyFor(0)
	return l
}

func (l listState[T]) keyFor(page int) query.Key {
	return query.Key{Resource: l.resource, Limit: l.limit, Page: page, Tag: l.tag}
}

// request moves the list to page and marks it loading. It returns the key
// to fetch. Items from the previous page are kept.
func (l listState[T]) request(page int) (listState[T], query.Key) {
	if page < 0 {
		page = 0
	}
	l.page = page
	l.activeKey = l.keyFor(page)
	l.loading = true
	l.err = nil
	return l, l.activeKey
}

// withTag sets the tag filter and returns to the first page.
func (l listState[T]) withTag(tag string) (listState[T], query.Key) {
	l.tag = tag
	return l.request(0)
}

// apply stores a page result. Results for any key other than the active
// one are ignored so a slow earlier page cannot replace a later one, and so
// are results from a query that started before the last applied one's
// invalidation.
func (l listState[T]) apply(msg PageLoadedMsg[T]) (listState[T], bool) {
	if msg.Key != l.activeKey || msg.Epoch < l.epoch {
		return l, false
	}
	l.epoch = msg.Epoch
	l.loading = false
	if msg.Err != nil {
		l.err = msg.Err
		l.items = nil
		return l, true
	}
	l.err = nil
	l.loaded = true
	l.items = msg.Page.Items
	l.totalPages = msg.Page.TotalPages
	l.clampCursor()
	return l, true
}

// since drops results of queries that started before epoch.
func (l listState[T]) since(epoch uint64) listState[T] {
	l.epoch = max(l.epoch, epoch)
	return l
}

// showCached renders a cached page for the active key before the fetch
// resolves. The list stays loading.
func (l listState[T]) showCached(p api.Page[T]) listState[T] {
	l.loaded = true
	l.items = p.Items
	l.totalPages = p.TotalPages
	l.clampCursor()
	return l
}

// overshoot reports whether the current page lies past the last page, as
// happens after deleting the only row of the last page.
func (l listState[T]) overshoot() bool {
	return !l.loading && l.err == nil && l.totalPages > 0 && l.page >= l.totalPages
}

func (l *listState[T]) clampCursor() {
	if l.cursor >= len(l.items) {
		l.cursor = len(l.items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l listState[T]) moveCursor(delta int) listState[T] {
	if len(l.items) == 0 {
		return l
	}
	l.cursor = (l.cursor + delta + len(l.items)) % len(l.items)
	return l
}

func (l listState[T]) selected() (T, bool) {
	var zero T
	if l.err != nil || l.cursor < 0 || l.cursor >= len(l.items) {
		return zero, false
	}
	return l.items[l.cursor], true
}

// View renders the rows, the read state, and the pager strip.
func (l listState[T]) View(row func(T) string, empty, spinnerView string) string {
	if l.err != nil {
		return errorText.Render(textLoadFailed)
	}
	if !l.loaded {
		return fmt.Sprintf("%s Loading...", spinnerView)
	}

	var b strings.Builder
	if len(l.items) == 0 {
		b.WriteString(mutedText.Render(empty))
	}
	for i, item := range l.items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == l.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(row(item))
	}
	b.WriteString("\n\n")
	b.WriteString(renderPager(l.page, l.totalPages))
	if l.loading {
		b.WriteString("  " + spinnerView)
	}
	return b.String()
}

// fetchPage returns a command resolving key through the cache.
func fetchPage[T any](c *query.Cache, key query.Key, list func(context.Context, api.ListFilter) (api.Page[T], error)) tea.Cmd {
	return func() tea.Msg {
		epoch := c.Epoch()
		page, err := query.Get(context.Background(), c, key, func(ctx context.Context) (api.Page[T], error) {
			return list(ctx, api.ListFilter{Limit: key.Limit, Page: key.Page, Tag: key.Tag})
		})
		return PageLoadedMsg[T]{Key: key, Epoch: epoch, Page: page, Err: err}
	}
}

// peekPage returns the cached page for key, if any value was ever stored.
func peekPage[T any](c *query.Cache, key query.Key) (api.Page[T], bool) {
	snap, ok := c.Peek(key)
	if !ok || snap.Data == nil {
		return api.Page[T]{}, false
	}
	p, ok := snap.Data.(api.Page[T])
	return p, ok
}
