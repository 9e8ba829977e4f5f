package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/config"
	"github.com/smileynet/postdesk/internal/query"
)

// errExitCalled is a sentinel used to catch kong's os.Exit calls in tests.
var errExitCalled = errors.New("exit called")

const testAppID = "cli-test"

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	k, err := kong.New(cli, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// newFakeURL serves a seeded fake API and returns its base URL.
func newFakeURL(t *testing.T, users int) string {
	t.Helper()
	cmd := &FakeAPICmd{AppID: testAppID, Seed: users}
	h, err := cmd.handler(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}

func newFakeClient(t *testing.T, users int) *api.Client {
	t.Helper()
	return api.NewClient(newFakeURL(t, users), testAppID)
}

func TestFeature_CommandLine(t *testing.T) {
	t.Run("version flag prints version commit and date", func(t *testing.T) {
		// Given: a CLI parser with version, commit, and date fields
		var cli CLI
		var buf bytes.Buffer
		k, err := kong.New(&cli,
			kong.Vars{"version": "v1.0.0 abc1234 2026-01-01T00:00:00Z"},
			kong.Writers(&buf, &buf),
			kong.Exit(func(int) { panic(errExitCalled) }),
		)
		if err != nil {
			t.Fatal(err)
		}

		// When: --version flag is passed
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic from --version flag")
			}
			err, ok := r.(error)
			if !ok || !errors.Is(err, errExitCalled) {
				panic(r)
			}

			// Then: version, commit, and date are all present in output
			for _, want := range []string{"v1.0.0", "abc1234", "2026-01-01T00:00:00Z"} {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("version output = %q, want to contain %q", buf.String(), want)
				}
			}
		}()

		k.Parse([]string{"--version"}) //nolint:errcheck // --version triggers panic via Exit hook
	})

	t.Run("no args shows usage and errors", func(t *testing.T) {
		var cli CLI
		k := newParser(t, &cli)

		if _, err := k.Parse([]string{}); err == nil {
			t.Fatal("expected error when no command provided")
		}
	})

	t.Run("posts list parses paging and tag", func(t *testing.T) {
		// Given: a CLI parser
		var cli CLI
		k := newParser(t, &cli)

		// When: posts list is invoked with flags
		kctx, err := k.Parse([]string{"posts", "list", "--page", "2", "--limit", "20", "--tag", "dog"})
		if err != nil {
			t.Fatal(err)
		}

		// Then: the command and flags are parsed
		if kctx.Command() != "posts list" {
			t.Errorf("command = %q, want %q", kctx.Command(), "posts list")
		}
		if cli.Posts.List.Page != 2 || cli.Posts.List.Limit != 20 || cli.Posts.List.Tag != "dog" {
			t.Errorf("flags = %+v", cli.Posts.List)
		}
	})

	t.Run("users list defaults", func(t *testing.T) {
		var cli CLI
		k := newParser(t, &cli)

		if _, err := k.Parse([]string{"users", "list"}); err != nil {
			t.Fatal(err)
		}
		if cli.Users.List.Page != 0 || cli.Users.List.Limit != 10 {
			t.Errorf("defaults = %+v, want page 0 limit 10", cli.Users.List)
		}
	})

	t.Run("delete requires an id", func(t *testing.T) {
		var cli CLI
		k := newParser(t, &cli)

		kctx, err := k.Parse([]string{"users", "delete", "abc"})
		if err != nil {
			t.Fatal(err)
		}
		if kctx.Command() != "users delete <id>" || cli.Users.Delete.ID != "abc" {
			t.Errorf("command = %q id = %q", kctx.Command(), cli.Users.Delete.ID)
		}

		if _, err := k.Parse([]string{"posts", "delete"}); err == nil {
			t.Error("posts delete without id should fail")
		}
	})

	t.Run("show takes an id", func(t *testing.T) {
		var cli CLI
		k := newParser(t, &cli)

		kctx, err := k.Parse([]string{"posts", "show", "p1"})
		if err != nil {
			t.Fatal(err)
		}
		if kctx.Command() != "posts show <id>" || cli.Posts.Show.ID != "p1" {
			t.Errorf("command = %q id = %q", kctx.Command(), cli.Posts.Show.ID)
		}
	})

	t.Run("fake-api flags", func(t *testing.T) {
		var cli CLI
		k := newParser(t, &cli)

		kctx, err := k.Parse([]string{"fake-api", "--addr", ":9999", "--seed", "3", "--app-id", "x"})
		if err != nil {
			t.Fatal(err)
		}
		if kctx.Command() != "fake-api" {
			t.Errorf("command = %q, want fake-api", kctx.Command())
		}
		if cli.FakeAPI.Addr != ":9999" || cli.FakeAPI.Seed != 3 || cli.FakeAPI.AppID != "x" {
			t.Errorf("flags = %+v", cli.FakeAPI)
		}
	})
}

func TestFeature_ListCommands(t *testing.T) {
	t.Run("users list prints a table and page footer", func(t *testing.T) {
		// Given: a fake API with seven users
		client := newFakeClient(t, 7)
		var out bytes.Buffer

		// When: the second page of five is listed
		cmd := &UsersListCmd{Page: 1, Limit: 5}
		if err := cmd.run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}

		// Then: two rows and the footer are printed
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("output has %d lines, want header + 2 rows + footer:\n%s", len(lines), out.String())
		}
		if !strings.HasPrefix(lines[0], "ID") {
			t.Errorf("header = %q", lines[0])
		}
		if lines[3] != "page 2 of 2 (7 total)" {
			t.Errorf("footer = %q", lines[3])
		}
	})

	t.Run("posts list filters by tag", func(t *testing.T) {
		client := newFakeClient(t, 4)
		var out bytes.Buffer

		cmd := &PostsListCmd{Limit: 50, Tag: " dog "}
		if err := cmd.run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}

		body := strings.Split(strings.TrimSpace(out.String()), "\n")
		for _, line := range body[1 : len(body)-1] {
			if !strings.Contains(line, "dog") {
				t.Errorf("row %q lacks tag dog", line)
			}
		}
	})

	t.Run("empty result prints no results", func(t *testing.T) {
		client := newFakeClient(t, 0)
		var out bytes.Buffer

		cmd := &PostsListCmd{Limit: 10}
		if err := cmd.run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), "no results") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("request failure maps to the request exit code", func(t *testing.T) {
		// Given: a client with the wrong app id
		bad := api.NewClient(newFakeURL(t, 1), "wrong-app")

		// When: users are listed
		err := (&UsersListCmd{Limit: 10}).run(context.Background(), bad, &bytes.Buffer{})

		// Then: the error is a request failure
		if !errors.Is(err, api.ErrRequestFailed) {
			t.Fatalf("err = %v, want api.ErrRequestFailed", err)
		}
		if exitCode(err) != exitRequest {
			t.Errorf("exitCode = %d, want %d", exitCode(err), exitRequest)
		}
	})
}

func TestFeature_DeleteCommands(t *testing.T) {
	t.Run("users delete removes the user", func(t *testing.T) {
		// Given: a fake API with two users
		client := newFakeClient(t, 2)
		page, err := client.ListUsers(context.Background(), api.ListFilter{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		id := page.Items[0].ID
		var out bytes.Buffer

		// When: the first user is deleted
		if err := (&UsersDeleteCmd{ID: id}).run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}

		// Then: one user remains and the deletion is reported
		page, err = client.ListUsers(context.Background(), api.ListFilter{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 1 {
			t.Errorf("total = %d, want 1", page.Total)
		}
		if out.String() != fmt.Sprintf("deleted user %s\n", id) {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("posts delete of unknown id fails", func(t *testing.T) {
		client := newFakeClient(t, 1)

		err := (&PostsDeleteCmd{ID: "missing"}).run(context.Background(), client, &bytes.Buffer{})

		if !errors.Is(err, api.ErrRequestFailed) {
			t.Errorf("err = %v, want api.ErrRequestFailed", err)
		}
	})
}

func TestFeature_ShowCommands(t *testing.T) {
	t.Run("users show prints one user", func(t *testing.T) {
		// Given: a fake API with one user
		client := newFakeClient(t, 1)
		page, err := client.ListUsers(context.Background(), api.ListFilter{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		u := page.Items[0]
		var out bytes.Buffer

		// When: the user is shown
		if err := (&UsersShowCmd{ID: u.ID}).run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}

		// Then: each field is printed on its own line
		got := out.String()
		for _, want := range []string{"ID", u.ID, "NAME", u.FullName(), "PICTURE", u.Picture} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
		if lines := strings.Count(got, "\n"); lines != 5 {
			t.Errorf("lines = %d, want 5", lines)
		}
	})

	t.Run("posts show prints tags and owner", func(t *testing.T) {
		client := newFakeClient(t, 1)
		page, err := client.ListPosts(context.Background(), api.ListFilter{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		p := page.Items[0]
		var out bytes.Buffer

		if err := (&PostsShowCmd{ID: p.ID}).run(context.Background(), client, &out); err != nil {
			t.Fatal(err)
		}

		got := out.String()
		if !strings.Contains(got, strings.Join(p.Tags, ",")) {
			t.Errorf("output missing tags %v:\n%s", p.Tags, got)
		}
		if !strings.Contains(got, "("+p.Owner.ID+")") {
			t.Errorf("output missing owner id %q:\n%s", p.Owner.ID, got)
		}
	})

	t.Run("unknown id maps to the request exit code", func(t *testing.T) {
		client := newFakeClient(t, 1)

		err := (&UsersShowCmd{ID: "missing"}).run(context.Background(), client, &bytes.Buffer{})

		if exitCode(err) != exitRequest {
			t.Errorf("exitCode(%v) = %d, want %d", err, exitCode(err), exitRequest)
		}
	})
}

func TestFeature_FakeAPICommand(t *testing.T) {
	t.Run("serve stops when the context is cancelled", func(t *testing.T) {
		cmd := &FakeAPICmd{Addr: "127.0.0.1:0", AppID: testAppID, Seed: 1}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- cmd.serve(ctx, zap.NewNop()) }()
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned %v, want nil", err)
			}
		case <-time.After(shutdownTimeout + time.Second):
			t.Fatal("serve did not return after cancel")
		}
	})

	t.Run("listen failure is reported", func(t *testing.T) {
		cmd := &FakeAPICmd{Addr: "256.0.0.1:bad", AppID: testAppID}

		err := cmd.serve(context.Background(), zap.NewNop())

		if err == nil || !strings.HasPrefix(err.Error(), "fake-api:") {
			t.Errorf("err = %v, want fake-api error", err)
		}
	})
}

func TestFeature_UICommand(t *testing.T) {
	t.Run("requires a TTY", func(t *testing.T) {
		cmd := &UICmd{}
		mock := &mockTeaRunner{}

		err := cmd.run(false, mock)

		if !errors.Is(err, errNoTTY) {
			t.Fatalf("err = %v, want errNoTTY", err)
		}
		if mock.ran {
			t.Error("program should not run without a TTY")
		}
	})

	t.Run("runs the program", func(t *testing.T) {
		cmd := &UICmd{}
		mock := &mockTeaRunner{}

		if err := cmd.run(true, mock); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !mock.ran {
			t.Error("tea program was not run")
		}
	})

	t.Run("propagates program errors", func(t *testing.T) {
		cmd := &UICmd{}
		mock := &mockTeaRunner{err: fmt.Errorf("tea: terminal error")}

		err := cmd.run(true, mock)

		if err == nil || !strings.Contains(err.Error(), "tea: terminal error") {
			t.Errorf("err = %v, want tea error", err)
		}
	})

	t.Run("dashboard is built from config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.UI.HomePageSize = 12
		rt := &runtime{cfg: &cfg, log: zap.NewNop(), client: newFakeClient(t, 1)}

		m := newDashboard(rt, query.New())
		defer m.Close()

		if view := m.View(); view != "Initializing..." {
			t.Errorf("View() before sizing = %q", view)
		}
	})

	t.Run("cache subscriptions use the configured buffer", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.UI.CacheEvents = 3
		rt := &runtime{cfg: &cfg, log: zap.NewNop()}

		sub := newCache(rt).Subscribe()
		defer sub.Close()

		if got := cap(sub.C); got != 3 {
			t.Errorf("subscription buffer = %d, want 3", got)
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"request", fmt.Errorf("users list: %w", &api.RequestFailedError{Resource: "users", Operation: "list", StatusCode: 500}), exitRequest},
		{"setup", errors.New("config: api.app_id cannot be empty"), exitSetup},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// mockTeaRunner stubs tea program execution for UICmd testing.
type mockTeaRunner struct {
	ran bool
	err error
}

func (m *mockTeaRunner) Run() (tea.Model, error) {
	m.ran = true
	return nil, m.err
}

// Compile-time check: mockTeaRunner satisfies teaRunner.
var _ teaRunner = (*mockTeaRunner)(nil)
