package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/form"
	"github.com/smileynet/postdesk/internal/query"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// Defaults used when no option overrides them.
const (
	defaultHomePageSize  = 8
	defaultListPageSize  = 10
	defaultOwnerPageSize = 10
	defaultDebounce      = time.Second
	defaultToastDuration = 4 * time.Second
)

// PageSizes sets the page size of each list.
type PageSizes struct {
	Home   int
	Users  int
	Posts  int
	Owners int
}

// Model is the root Bubble Tea model for the dashboard TUI.
// It routes keys to the open modal, the tag filter, or the active screen.
type Model struct {
	screen   Screen
	modal    Modal
	modalSeq int // bumped each time a form or confirm modal opens
	mounted  [3]bool
	width    int
	height   int

	users UserService
	posts PostService
	cache *query.Cache
	sub   *query.Subscription
	log   *zap.Logger
	sizes PageSizes

	home     listState[api.Post]
	userList listState[api.User]
	postList listState[api.Post]
	filter   filterState
	form     formState
	confirm  confirmState
	preview  previewState
	toasts   toastState

	spinner spinner.Model
	help    help.Model
}

// Option configures a Model.
type Option func(*Model)

// WithUsers sets the user service.
func WithUsers(s UserService) Option {
	return func(m *Model) { m.users = s }
}

// WithPosts sets the post service.
func WithPosts(s PostService) Option {
	return func(m *Model) { m.posts = s }
}

// WithCache shares a query cache. Without it the model creates its own.
func WithCache(c *query.Cache) Option {
	return func(m *Model) { m.cache = c }
}

// WithPageSizes overrides list page sizes. Zero fields keep the default.
func WithPageSizes(p PageSizes) Option {
	return func(m *Model) {
		if p.Home > 0 {
			m.sizes.Home = p.Home
		}
		if p.Users > 0 {
			m.sizes.Users = p.Users
		}
		if p.Posts > 0 {
			m.sizes.Posts = p.Posts
		}
		if p.Owners > 0 {
			m.sizes.Owners = p.Owners
		}
	}
}

// WithDebounce sets the tag filter debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(m *Model) { m.filter.delay = d }
}

// WithToastDuration sets how long toasts stay visible.
func WithToastDuration(d time.Duration) Option {
	return func(m *Model) { m.toasts.duration = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) { m.log = log }
}

// NewModel creates a dashboard Model on the home screen.
func NewModel(opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		screen: ScreenHome,
		sizes: PageSizes{
			Home:   defaultHomePageSize,
			Users:  defaultListPageSize,
			Posts:  defaultListPageSize,
			Owners: defaultOwnerPageSize,
		},
		filter:  newFilterState(defaultDebounce),
		toasts:  toastState{duration: defaultToastDuration},
		spinner: sp,
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.cache == nil {
		m.cache = query.New()
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.home = newListState[api.Post](api.ResourcePosts, m.sizes.Home)
	m.userList = newListState[api.User](api.ResourceUsers, m.sizes.Users)
	m.postList = newListState[api.Post](api.ResourcePosts, m.sizes.Posts)
	m.mounted[ScreenHome] = true
	m.sub = m.cache.Subscribe()
	return m
}

// Close releases the cache subscription. Call it after the program exits.
func (m Model) Close() {
	m.sub.Close()
}

// Init loads the first home page and starts listening for cache events.
func (m Model) Init() tea.Cmd {
	_, load := m.loadPage(ScreenHome, 0)
	return tea.Batch(m.spinner.Tick, load, listen(m.sub))
}

// listen waits for the next cache event.
func listen(sub *query.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := sub.Next()
		if !ok {
			return nil
		}
		return CacheEventMsg{Event: ev}
	}
}

// requestList moves l to page, shows any cached value for the new key, and
// returns the fetch command.
func requestList[T any](c *query.Cache, l *listState[T], page int, list func(context.Context, api.ListFilter) (api.Page[T], error)) tea.Cmd {
	var key query.Key
	*l, key = l.request(page)
	if p, ok := peekPage[T](c, key); ok {
		*l = l.showCached(p)
	}
	return fetchPage(c, key, list)
}

// loadPage requests page of the list on screen s.
func (m Model) loadPage(s Screen, page int) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch s {
	case ScreenUsers:
		cmd = requestList(m.cache, &m.userList, page, m.users.ListUsers)
	case ScreenPosts:
		cmd = requestList(m.cache, &m.postList, page, m.posts.ListPosts)
	default:
		cmd = requestList(m.cache, &m.home, page, m.posts.ListPosts)
	}
	return m, cmd
}

// mount marks s as shown and re-issues its active page.
func (m Model) mount(s Screen) (Model, tea.Cmd) {
	m.mounted[s] = true
	return m.loadPage(s, m.currentPage(s))
}

func (m Model) currentPage(s Screen) int {
	switch s {
	case ScreenUsers:
		return m.userList.page
	case ScreenPosts:
		return m.postList.page
	default:
		return m.home.page
	}
}

func (m Model) totalPages(s Screen) int {
	switch s {
	case ScreenUsers:
		return m.userList.totalPages
	case ScreenPosts:
		return m.postList.totalPages
	default:
		return m.home.totalPages
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PageLoadedMsg[api.User]:
		var applied bool
		m.userList, applied = m.userList.apply(msg)
		if applied && msg.Err != nil {
			m.log.Warn("users page failed", zap.Stringer("key", msg.Key), zap.Error(msg.Err))
		}
		if m.userList.overshoot() {
			return m.loadPage(ScreenUsers, m.userList.totalPages-1)
		}
		return m, nil

	case PageLoadedMsg[api.Post]:
		return m.applyPosts(msg)

	case OwnersLoadedMsg:
		if m.modal == ModalPostForm {
			m.form = m.form.applyOwners(msg)
		}
		return m, nil

	case CacheEventMsg:
		return m.handleCacheEvent(msg.Event)

	case MutationDoneMsg:
		return m.handleMutationDone(msg)

	case ToastExpiredMsg:
		m.toasts = m.toasts.dismiss(msg.ID)
		return m, nil

	case FilterDebounceMsg:
		var changed bool
		m.filter, changed = m.filter.settle(msg)
		if !changed {
			return m, nil
		}
		var key query.Key
		m.home, key = m.home.withTag(m.filter.committed)
		if p, ok := peekPage[api.Post](m.cache, key); ok {
			m.home = m.home.showCached(p)
		}
		m.log.Debug("tag filter committed", zap.String("tag", m.filter.committed))
		return m, fetchPage(m.cache, key, m.posts.ListPosts)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other input-internal messages.
	var cmd tea.Cmd
	switch {
	case m.modal == ModalUserForm || m.modal == ModalPostForm:
		m.form, cmd = m.form.updateFocused(msg)
	case m.filter.focused():
		m.filter.input, cmd = m.filter.input.Update(msg)
	}
	return m, cmd
}

// applyPosts routes a posts page to both post lists; each keeps it only if
// the key is its active key.
func (m Model) applyPosts(msg PageLoadedMsg[api.Post]) (tea.Model, tea.Cmd) {
	var homeApplied, postsApplied bool
	m.home, homeApplied = m.home.apply(msg)
	m.postList, postsApplied = m.postList.apply(msg)
	if (homeApplied || postsApplied) && msg.Err != nil {
		m.log.Warn("posts page failed", zap.Stringer("key", msg.Key), zap.Error(msg.Err))
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.home.overshoot() {
		m, cmd = m.loadPage(ScreenHome, m.home.totalPages-1)
		cmds = append(cmds, cmd)
	}
	if m.postList.overshoot() {
		m, cmd = m.loadPage(ScreenPosts, m.postList.totalPages-1)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleCacheEvent refetches every mounted list after an invalidation and
// re-arms the listener. Results of queries that started before the
// invalidation are dropped from then on.
func (m Model) handleCacheEvent(ev query.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{listen(m.sub)}
	if ev.Kind != query.EventInvalidated {
		return m, cmds[0]
	}

	epoch := m.cache.Epoch()
	m.home = m.home.since(epoch)
	m.userList = m.userList.since(epoch)
	m.postList = m.postList.since(epoch)
	for _, s := range screens {
		if !m.mounted[s] {
			continue
		}
		var cmd tea.Cmd
		m, cmd = m.loadPage(s, m.currentPage(s))
		cmds = append(cmds, cmd)
	}
	if m.modal == ModalPostForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.reloadOwners(epoch)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleMutationDone invalidates the cache and closes the modal on success,
// or reports the error and keeps the modal open. Only the modal that issued
// the mutation is closed or reset; a result arriving after that modal was
// dismissed still toasts and invalidates.
func (m Model) handleMutationDone(msg MutationDoneMsg) (tea.Model, tea.Cmd) {
	issuer := msg.Seq == m.modalSeq
	if msg.Err != nil {
		m.log.Warn("mutation failed", zap.String("resource", msg.Resource), zap.Error(msg.Err))
		if issuer {
			switch m.modal {
			case ModalUserForm, ModalPostForm:
				m.form = m.form.failed()
			case ModalConfirm:
				m.confirm.submitting = false
			}
		}
		var cmd tea.Cmd
		m.toasts, cmd = m.toasts.push(ToastError, msg.Err.Error())
		return m, cmd
	}

	m.cache.InvalidateAll()
	if issuer {
		switch m.modal {
		case ModalUserForm, ModalPostForm, ModalConfirm:
			m.modal = ModalNone
		}
	}
	var cmd tea.Cmd
	m.toasts, cmd = m.toasts.push(ToastSuccess, mutationToast(msg.Resource, msg.Op))
	return m, cmd
}

// handleKey processes key messages with modal, filter, and screen routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.modal {
	case ModalUserForm, ModalPostForm:
		if msg.String() == "esc" {
			m.modal = ModalNone
			return m, nil
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case ModalConfirm:
		switch m.confirm.decide(msg) {
		case choiceYes:
			m.confirm.submitting = true
			return m, m.deleteCmd(m.confirm.resource, m.confirm.id, m.modalSeq)
		case choiceNo:
			m.modal = ModalNone
		}
		return m, nil

	case ModalPreview:
		switch msg.String() {
		case "esc", "q", "enter":
			m.modal = ModalNone
		}
		return m, nil
	}

	if m.filter.focused() {
		switch msg.String() {
		case "esc", "enter":
			m.filter = m.filter.blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		next := screens[(int(m.screen)+1)%len(screens)]
		return m.switchScreen(next)
	case "1":
		return m.switchScreen(ScreenHome)
	case "2":
		return m.switchScreen(ScreenUsers)
	case "3":
		return m.switchScreen(ScreenPosts)
	case "up", "k":
		return m.moveCursor(-1), nil
	case "down", "j":
		return m.moveCursor(1), nil
	case "left", "h":
		if !CanPrev(m.currentPage(m.screen)) {
			return m, nil
		}
		return m.loadPage(m.screen, m.currentPage(m.screen)-1)
	case "right", "l":
		if !CanNext(m.currentPage(m.screen), m.totalPages(m.screen)) {
			return m, nil
		}
		return m.loadPage(m.screen, m.currentPage(m.screen)+1)
	case "home":
		if !CanPrev(m.currentPage(m.screen)) {
			return m, nil
		}
		return m.loadPage(m.screen, 0)
	case "end":
		last := m.totalPages(m.screen) - 1
		if last <= m.currentPage(m.screen) {
			return m, nil
		}
		return m.loadPage(m.screen, last)
	case "/":
		if m.screen != ScreenHome {
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.focus()
		return m, cmd
	case "n":
		return m.openCreate()
	case "e":
		return m.openEdit()
	case "d":
		return m.openConfirm()
	case "p":
		return m.openPreview()
	}
	return m, nil
}

func (m Model) switchScreen(s Screen) (tea.Model, tea.Cmd) {
	if s == m.screen {
		return m, nil
	}
	m.filter = m.filter.blur()
	m.screen = s
	return m.mount(s)
}

func (m Model) moveCursor(delta int) Model {
	switch m.screen {
	case ScreenUsers:
		m.userList = m.userList.moveCursor(delta)
	case ScreenPosts:
		m.postList = m.postList.moveCursor(delta)
	default:
		m.home = m.home.moveCursor(delta)
	}
	return m
}

func (m Model) selectedPost() (api.Post, bool) {
	if m.screen == ScreenPosts {
		return m.postList.selected()
	}
	return m.home.selected()
}

func (m Model) openCreate() (tea.Model, tea.Cmd) {
	m.modalSeq++
	if m.screen == ScreenUsers {
		m.form = newUserForm(api.User{}, m.userSubmit("", m.modalSeq))
		m.modal = ModalUserForm
	} else {
		m.form = newPostForm(api.Post{}, m.sizes.Owners, m.postSubmit("", m.modalSeq), m.ownerLoader())
		m.modal = ModalPostForm
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Init()
	return m, cmd
}

func (m Model) openEdit() (tea.Model, tea.Cmd) {
	if m.screen == ScreenUsers {
		u, ok := m.userList.selected()
		if !ok {
			return m, nil
		}
		m.modalSeq++
		m.form = newUserForm(u, m.userSubmit(u.ID, m.modalSeq))
		m.modal = ModalUserForm
	} else {
		p, ok := m.selectedPost()
		if !ok {
			return m, nil
		}
		m.modalSeq++
		m.form = newPostForm(p, m.sizes.Owners, m.postSubmit(p.ID, m.modalSeq), m.ownerLoader())
		m.modal = ModalPostForm
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Init()
	return m, cmd
}

func (m Model) openConfirm() (tea.Model, tea.Cmd) {
	if m.screen == ScreenUsers {
		u, ok := m.userList.selected()
		if !ok {
			return m, nil
		}
		m.confirm = confirmState{resource: api.ResourceUsers, id: u.ID, label: u.FullName()}
	} else {
		p, ok := m.selectedPost()
		if !ok {
			return m, nil
		}
		m.confirm = confirmState{resource: api.ResourcePosts, id: p.ID, label: truncate(p.Text, 48)}
	}
	m.modalSeq++
	m.modal = ModalConfirm
	return m, nil
}

func (m Model) openPreview() (tea.Model, tea.Cmd) {
	if m.screen == ScreenUsers {
		return m, nil
	}
	p, ok := m.selectedPost()
	if !ok || !form.ValidURL(p.Image) {
		return m, nil
	}
	m.preview = previewState{post: p}
	m.modal = ModalPreview
	return m, nil
}

// userSubmit returns the submit function of the user form opened as seq.
// An empty id creates.
func (m Model) userSubmit(id string, seq int) func(*form.Draft) tea.Cmd {
	svc := m.users
	return func(d *form.Draft) tea.Cmd {
		fields := d.UserFields()
		return func() tea.Msg {
			ctx := context.Background()
			if id == "" {
				_, err := svc.CreateUser(ctx, fields)
				return MutationDoneMsg{Resource: api.ResourceUsers, Op: MutationCreate, Seq: seq, Err: err}
			}
			_, err := svc.UpdateUser(ctx, id, fields)
			return MutationDoneMsg{Resource: api.ResourceUsers, Op: MutationUpdate, Seq: seq, Err: err}
		}
	}
}

// postSubmit returns the submit function of the post form opened as seq.
// An empty id creates.
func (m Model) postSubmit(id string, seq int) func(*form.Draft) tea.Cmd {
	svc := m.posts
	return func(d *form.Draft) tea.Cmd {
		op := MutationUpdate
		if id == "" {
			op = MutationCreate
		}
		fields, err := d.PostFields()
		if err != nil {
			return func() tea.Msg {
				return MutationDoneMsg{Resource: api.ResourcePosts, Op: op, Seq: seq, Err: err}
			}
		}
		return func() tea.Msg {
			ctx := context.Background()
			var err error
			if id == "" {
				_, err = svc.CreatePost(ctx, fields)
			} else {
				_, err = svc.UpdatePost(ctx, id, fields)
			}
			return MutationDoneMsg{Resource: api.ResourcePosts, Op: op, Seq: seq, Err: err}
		}
	}
}

func (m Model) deleteCmd(resource, id string, seq int) tea.Cmd {
	users, posts := m.users, m.posts
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if resource == api.ResourceUsers {
			err = users.DeleteUser(ctx, id)
		} else {
			err = posts.DeletePost(ctx, id)
		}
		return MutationDoneMsg{Resource: resource, Op: MutationDelete, Seq: seq, Err: err}
	}
}

// ownerLoader fetches owner picker pages through the cache.
func (m Model) ownerLoader() func(query.Key) tea.Cmd {
	c, svc := m.cache, m.users
	return func(key query.Key) tea.Cmd {
		return func() tea.Msg {
			epoch := c.Epoch()
			page, err := query.Get(context.Background(), c, key, func(ctx context.Context) (api.Page[api.User], error) {
				return svc.ListUsers(ctx, api.ListFilter{Limit: key.Limit, Page: key.Page})
			})
			return OwnersLoadedMsg{Key: key, Epoch: epoch, Page: page, Err: err}
		}
	}
}

// View renders tabs, the active screen or modal, toasts, and the help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	tabs := m.viewTabs()
	toasts := m.toasts.View()
	helpView := m.help.View(HelpBindings(m.screen, m.modal))

	bodyHeight := m.height - lipgloss.Height(tabs) - helpBarHeight
	if toasts != "" {
		bodyHeight -= lipgloss.Height(toasts)
	}
	bodyHeight = max(bodyHeight, 1)

	var body string
	switch m.modal {
	case ModalUserForm, ModalPostForm:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.form.View(m.spinner.View()))
	case ModalConfirm:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.confirm.View(m.spinner.View()))
	case ModalPreview:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.preview.View())
	default:
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(m.viewScreen())
	}

	parts := []string{tabs, body}
	if toasts != "" {
		parts = append(parts, toasts)
	}
	parts = append(parts, helpView)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, s := range screens {
		label := fmt.Sprintf("%d %s", i+1, s)
		if s == m.screen {
			tabs = append(tabs, tabActive.Render(label))
		} else {
			tabs = append(tabs, tabInactive.Render(label))
		}
	}
	return titleText.Render("postdesk") + "   " + strings.Join(tabs, "  ") + "\n"
}

func (m Model) viewScreen() string {
	sp := m.spinner.View()
	switch m.screen {
	case ScreenUsers:
		return m.userList.View(userRow, textNoUsers, sp)
	case ScreenPosts:
		return m.postList.View(postRow, textNoPosts, sp)
	default:
		return m.filter.View() + "\n\n" + m.home.View(postRow, textNoPosts, sp)
	}
}

func userRow(u api.User) string {
	title := u.Title
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:] + "."
	}
	return fmt.Sprintf("%-5s %-28s %s", title, truncate(u.FirstName+" "+u.LastName, 28), mutedText.Render(imageCell(u.Picture)))
}

func postRow(p api.Post) string {
	tags := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = "#" + t
	}
	return fmt.Sprintf("%-40s %s  %s  %s",
		truncate(p.Text, 40),
		tagText.Render(strings.Join(tags, " ")),
		mutedText.Render(imageCell(p.Image)),
		p.Owner.FullName(),
	)
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
