package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultTimeout bounds a single request when no timeout option is provided.
const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body is kept in the error.
const maxErrorBody = 512

// Client calls the users/posts API. It is safe for concurrent use.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client for the API rooted at baseURL. Every request
// carries the app-id header set to appID.
func NewClient(baseURL, appID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// ListUsers fetches one page of users created by this app.
func (c *Client) ListUsers(ctx context.Context, f ListFilter) (Page[User], error) {
	var resp listResponse[User]
	err := c.do(ctx, ResourceUsers, OpList, http.MethodGet, "/user", listQuery(f), nil, &resp)
	if err != nil {
		return Page[User]{}, err
	}
	return resp.page(), nil
}

// GetUser fetches a single user.
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := c.do(ctx, ResourceUsers, OpGet, http.MethodGet, "/user/"+url.PathEscape(id), nil, nil, &u)
	return u, err
}

// CreateUser creates a user and returns the stored record.
func (c *Client) CreateUser(ctx context.Context, fields UserFields) (User, error) {
	var u User
	err := c.do(ctx, ResourceUsers, OpCreate, http.MethodPost, "/user/create", nil, fields, &u)
	return u, err
}

// UpdateUser replaces the writable fields of a user. Email cannot be changed
// through the API and is never sent.
func (c *Client) UpdateUser(ctx context.Context, id string, fields UserFields) (User, error) {
	fields.Email = ""
	var u User
	err := c.do(ctx, ResourceUsers, OpUpdate, http.MethodPut, "/user/"+url.PathEscape(id), nil, fields, &u)
	return u, err
}

// DeleteUser deletes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, ResourceUsers, OpDelete, http.MethodDelete, "/user/"+url.PathEscape(id), nil, nil, nil)
}

// ListPosts fetches one page of posts created by this app. A non-empty
// f.Tag switches to the tag-scoped endpoint.
func (c *Client) ListPosts(ctx context.Context, f ListFilter) (Page[Post], error) {
	path := "/post"
	if f.Tag != "" {
		path = "/tag/" + url.PathEscape(f.Tag) + "/post"
	}
	var resp listResponse[Post]
	if err := c.do(ctx, ResourcePosts, OpList, http.MethodGet, path, listQuery(f), nil, &resp); err != nil {
		return Page[Post]{}, err
	}
	return resp.page(), nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id string) (Post, error) {
	var p Post
	err := c.do(ctx, ResourcePosts, OpGet, http.MethodGet, "/post/"+url.PathEscape(id), nil, nil, &p)
	return p, err
}

// CreatePost creates a post owned by fields.Owner.
func (c *Client) CreatePost(ctx context.Context, fields PostFields) (Post, error) {
	var p Post
	err := c.do(ctx, ResourcePosts, OpCreate, http.MethodPost, "/post/create", nil, fields, &p)
	return p, err
}

// UpdatePost replaces the writable fields of a post. The owner is fixed at
// creation and is never sent.
func (c *Client) UpdatePost(ctx context.Context, id string, fields PostFields) (Post, error) {
	fields.Owner = ""
	var p Post
	err := c.do(ctx, ResourcePosts, OpUpdate, http.MethodPut, "/post/"+url.PathEscape(id), nil, fields, &p)
	return p, err
}

// DeletePost deletes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, ResourcePosts, OpDelete, http.MethodDelete, "/post/"+url.PathEscape(id), nil, nil, nil)
}

// listQuery builds the query string shared by all list endpoints. created=1
// restricts results to records created with this app id.
func listQuery(f ListFilter) url.Values {
	return url.Values{
		"limit":   {strconv.Itoa(f.Limit)},
		"page":    {strconv.Itoa(f.Page)},
		"created": {"1"},
	}
}

// do performs one request and decodes a JSON response into out (when non-nil).
// Every failure is returned as a *RequestFailedError.
func (c *Client) do(ctx context.Context, resource, op, method, path string, query url.Values, body, out any) error {
	fail := func(status int, err error) error {
		return &RequestFailedError{Resource: resource, Operation: op, StatusCode: status, Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fail(0, fmt.Errorf("encoding body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("app-id", c.appID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fail(0, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			cause = errors.New(msg)
		}
		return fail(resp.StatusCode, cause)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
