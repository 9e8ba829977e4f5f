// Package query caches resource list results by key. Concurrent fetches of
// one key share a single call, and InvalidateAll marks every entry stale and
// notifies subscribers so mounted views can re-fetch.
package query

import (
	"net/url"
	"strconv"
)

// Key identifies one cache entry: a resource plus the filters used to request
// it. Two fetches with equal keys share an entry.
type Key struct {
	Resource string
	Limit    int
	Page     int
	Tag      string
}

// String renders the key as "resource?limit=N&page=N[&tag=T]".
func (k Key) String() string {
	s := k.Resource + "?limit=" + strconv.Itoa(k.Limit) + "&page=" + strconv.Itoa(k.Page)
	if k.Tag != "" {
		s += "&tag=" + url.QueryEscape(k.Tag)
	}
	return s
}

// WithPage returns a copy of k for another page.
func (k Key) WithPage(page int) Key {
	k.Page = page
	return k
}
