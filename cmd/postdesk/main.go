package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/config"
	"github.com/smileynet/postdesk/internal/dashboard"
	"github.com/smileynet/postdesk/internal/fakeapi"
	"github.com/smileynet/postdesk/internal/logging"
	"github.com/smileynet/postdesk/internal/query"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errNoTTY is returned when the TUI is started without a terminal.
var errNoTTY = errors.New("ui: requires a terminal (TTY)")

// CLI is the top-level command structure for postdesk.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	UI      UICmd            `cmd:"" help:"Open the interactive admin TUI."`
	Users   UsersCmd         `cmd:"" help:"List, show or delete users."`
	Posts   PostsCmd         `cmd:"" help:"List, show or delete posts."`
	FakeAPI FakeAPICmd       `cmd:"" name:"fake-api" help:"Serve an in-memory users/posts API."`
}

// UICmd opens the dashboard.
type UICmd struct{}

// UsersCmd groups the user subcommands.
type UsersCmd struct {
	List   UsersListCmd   `cmd:"" help:"Print one page of users."`
	Show   UsersShowCmd   `cmd:"" help:"Print one user by ID."`
	Delete UsersDeleteCmd `cmd:"" help:"Delete a user by ID."`
}

// UsersListCmd prints one page of users.
type UsersListCmd struct {
	Page  int `help:"Page index, starting at 0." default:"0"`
	Limit int `help:"Users per page (5-50)." default:"10"`
}

// UsersShowCmd prints one user.
type UsersShowCmd struct {
	ID string `arg:"" help:"User ID."`
}

// UsersDeleteCmd deletes one user.
type UsersDeleteCmd struct {
	ID string `arg:"" help:"User ID."`
}

// PostsCmd groups the post subcommands.
type PostsCmd struct {
	List   PostsListCmd   `cmd:"" help:"Print one page of posts."`
	Show   PostsShowCmd   `cmd:"" help:"Print one post by ID."`
	Delete PostsDeleteCmd `cmd:"" help:"Delete a post by ID."`
}

// PostsListCmd prints one page of posts, optionally filtered by tag.
type PostsListCmd struct {
	Page  int    `help:"Page index, starting at 0." default:"0"`
	Limit int    `help:"Posts per page (5-50)." default:"10"`
	Tag   string `help:"Only posts with this tag."`
}

// PostsShowCmd prints one post.
type PostsShowCmd struct {
	ID string `arg:"" help:"Post ID."`
}

// PostsDeleteCmd deletes one post.
type PostsDeleteCmd struct {
	ID string `arg:"" help:"Post ID."`
}

// FakeAPICmd serves the in-memory API until interrupted.
type FakeAPICmd struct {
	Addr     string `help:"Listen address." default:"127.0.0.1:8080"`
	AppID    string `help:"App id clients must send." default:"postdesk-dev" name:"app-id"`
	Seed     int    `help:"Number of users to seed, each with two posts." default:"12"`
	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error"`
}

// runtime is what every API-backed command needs.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	client *api.Client
}

func (r *runtime) close() {
	_ = r.log.Sync()
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(config.Paths()...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and builds the logger and API client.
func setup() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(cfg.API.BaseURL, cfg.API.AppID,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.Named("api")),
	)
	return &runtime{cfg: cfg, log: log, client: client}, nil
}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run executes the ui command.
func (u *UICmd) Run() error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errNoTTY
	}

	rt, err := setup()
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	defer rt.close()

	cache := newCache(rt)
	defer cache.Clear()

	m := newDashboard(rt, cache)
	defer m.Close()

	rt.log.Info("starting dashboard", zap.String("base_url", rt.cfg.API.BaseURL))
	prog := tea.NewProgram(m, tea.WithAltScreen())
	return u.run(true, prog)
}

// newCache builds the query cache shared by the dashboard screens.
func newCache(rt *runtime) *query.Cache {
	return query.New(
		query.WithLogger(rt.log.Named("cache")),
		query.WithSubscriberBuffer(rt.cfg.UI.CacheEvents),
	)
}

// newDashboard builds the dashboard model from config.
func newDashboard(rt *runtime, cache *query.Cache) dashboard.Model {
	ui := rt.cfg.UI
	return dashboard.NewModel(
		dashboard.WithUsers(rt.client),
		dashboard.WithPosts(rt.client),
		dashboard.WithCache(cache),
		dashboard.WithPageSizes(dashboard.PageSizes{
			Home:   ui.HomePageSize,
			Users:  ui.UsersPageSize,
			Posts:  ui.PostsPageSize,
			Owners: ui.OwnerPageSize,
		}),
		dashboard.WithDebounce(ui.Debounce),
		dashboard.WithToastDuration(ui.ToastDuration),
		dashboard.WithLogger(rt.log.Named("dashboard")),
	)
}

// run executes the tea program, enabling testable wiring.
func (u *UICmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return errNoTTY
	}
	_, err := prog.Run()
	return err
}

// --- Plain-text commands ---

type userLister interface {
	ListUsers(ctx context.Context, f api.ListFilter) (api.Page[api.User], error)
}

type postLister interface {
	ListPosts(ctx context.Context, f api.ListFilter) (api.Page[api.Post], error)
}

type userGetter interface {
	GetUser(ctx context.Context, id string) (api.User, error)
}

type postGetter interface {
	GetPost(ctx context.Context, id string) (api.Post, error)
}

// Run executes the users list command.
func (c *UsersListCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("users list: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *UsersListCmd) run(ctx context.Context, svc userLister, w io.Writer) error {
	page, err := svc.ListUsers(ctx, api.ListFilter{Limit: c.Limit, Page: c.Page})
	if err != nil {
		return fmt.Errorf("users list: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tNAME\tPICTURE")
	for _, u := range page.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Title, u.FullName(), u.Picture)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writePageFooter(w, page.Page, page.TotalPages, page.Total)
}

// Run executes the posts list command.
func (c *PostsListCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("posts list: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *PostsListCmd) run(ctx context.Context, svc postLister, w io.Writer) error {
	page, err := svc.ListPosts(ctx, api.ListFilter{Limit: c.Limit, Page: c.Page, Tag: strings.TrimSpace(c.Tag)})
	if err != nil {
		return fmt.Errorf("posts list: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTEXT\tTAGS\tLIKES\tOWNER")
	for _, p := range page.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Text, strings.Join(p.Tags, ","), p.Likes, p.Owner.FullName())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writePageFooter(w, page.Page, page.TotalPages, page.Total)
}

func writePageFooter(w io.Writer, page, totalPages, total int) error {
	if totalPages == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	_, err := fmt.Fprintf(w, "page %d of %d (%d total)\n", page+1, totalPages, total)
	return err
}

// Run executes the users show command.
func (c *UsersShowCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("users show: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *UsersShowCmd) run(ctx context.Context, svc userGetter, w io.Writer) error {
	u, err := svc.GetUser(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("users show: %w", err)
	}
	return writeFields(w, [][2]string{
		{"ID", u.ID},
		{"TITLE", u.Title},
		{"NAME", u.FullName()},
		{"EMAIL", u.Email},
		{"PICTURE", u.Picture},
	})
}

// Run executes the posts show command.
func (c *PostsShowCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("posts show: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *PostsShowCmd) run(ctx context.Context, svc postGetter, w io.Writer) error {
	p, err := svc.GetPost(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("posts show: %w", err)
	}
	return writeFields(w, [][2]string{
		{"ID", p.ID},
		{"TEXT", p.Text},
		{"IMAGE", p.Image},
		{"LIKES", strconv.Itoa(p.Likes)},
		{"TAGS", strings.Join(p.Tags, ",")},
		{"OWNER", p.Owner.FullName() + " (" + p.Owner.ID + ")"},
		{"PUBLISHED", p.PublishDate},
	})
}

// writeFields prints one "LABEL  value" line per pair.
func writeFields(w io.Writer, fields [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", f[0], f[1])
	}
	return tw.Flush()
}

// Run executes the users delete command.
func (c *UsersDeleteCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("users delete: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *UsersDeleteCmd) run(ctx context.Context, svc dashboard.UserService, w io.Writer) error {
	if err := svc.DeleteUser(ctx, c.ID); err != nil {
		return fmt.Errorf("users delete: %w", err)
	}
	_, err := fmt.Fprintf(w, "deleted user %s\n", c.ID)
	return err
}

// Run executes the posts delete command.
func (c *PostsDeleteCmd) Run() error {
	rt, err := setup()
	if err != nil {
		return fmt.Errorf("posts delete: %w", err)
	}
	defer rt.close()
	return c.run(context.Background(), rt.client, os.Stdout)
}

func (c *PostsDeleteCmd) run(ctx context.Context, svc dashboard.PostService, w io.Writer) error {
	if err := svc.DeletePost(ctx, c.ID); err != nil {
		return fmt.Errorf("posts delete: %w", err)
	}
	_, err := fmt.Fprintf(w, "deleted post %s\n", c.ID)
	return err
}

// --- fake-api ---

// shutdownTimeout bounds graceful shutdown of the fake API server.
const shutdownTimeout = 5 * time.Second

// Run executes the fake-api command.
func (c *FakeAPICmd) Run() error {
	log, err := logging.Stderr(c.LogLevel)
	if err != nil {
		return fmt.Errorf("fake-api: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.serve(ctx, log)
}

// handler seeds a fresh store and returns the fake API handler.
func (c *FakeAPICmd) handler(log *zap.Logger) (http.Handler, error) {
	srv := fakeapi.New(c.AppID, fakeapi.WithLogger(log))
	if c.Seed > 0 {
		if err := srv.Store().Seed(c.AppID, c.Seed); err != nil {
			return nil, fmt.Errorf("fake-api: %w", err)
		}
	}
	return srv.Handler(), nil
}

func (c *FakeAPICmd) serve(ctx context.Context, log *zap.Logger) error {
	h, err := c.handler(log)
	if err != nil {
		return err
	}
	hs := &http.Server{
		Addr:              c.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("fake api listening",
			zap.String("addr", c.Addr),
			zap.String("app_id", c.AppID),
			zap.Int("seeded_users", c.Seed),
		)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("fake-api: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down fake api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("fake-api: shutdown: %w", err)
	}
	return nil
}

// Exit codes.
const (
	exitSuccess = 0
	exitRequest = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, api.ErrRequestFailed) {
		return exitRequest
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("postdesk"),
		kong.Description("Admin console for the users/posts API."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
