package dashboard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/form"
	"github.com/smileynet/postdesk/internal/query"
)

var fieldLabels = map[string]string{
	form.FieldTitle:     "Title",
	form.FieldFirstName: "First name",
	form.FieldLastName:  "Last name",
	form.FieldEmail:     "Email",
	form.FieldPicture:   "Picture URL",
	form.FieldText:      "Text",
	form.FieldImage:     "Image URL",
	form.FieldLikes:     "Likes",
	form.FieldTags:      "Tags",
	form.FieldOwner:     "Owner",
}

// focusTarget is one focusable row. tag is the slot index for tag rows and
// -1 otherwise.
type focusTarget struct {
	field string
	tag   int
}

// formState is a create or edit form for one user or post. Validation runs
// on submit and, once a submit was attempted, after every edit.
type formState struct {
	resource   string
	editID     string // "" when creating
	schema     form.Schema
	draft      *form.Draft
	scalars    []string // text and choice fields in display order
	inputs     map[string]textinput.Model
	tagInputs  []textinput.Model
	focus      int
	errs       form.Errors
	attempted  bool
	submitting bool
	owners     ownerState

	submit     func(d *form.Draft) tea.Cmd
	loadOwners func(key query.Key) tea.Cmd
}

func newTextInput(value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.SetValue(value)
	return ti
}

// newUserForm builds a user form. A zero u creates; otherwise u is edited
// and its email is not editable.
func newUserForm(u api.User, submit func(*form.Draft) tea.Cmd) formState {
	f := formState{
		resource: api.ResourceUsers,
		editID:   u.ID,
		draft:    form.UserDraft(u),
		inputs:   make(map[string]textinput.Model),
		submit:   submit,
	}
	if f.editID == "" {
		f.schema = form.UserCreate
		f.scalars = []string{form.FieldTitle, form.FieldFirstName, form.FieldLastName, form.FieldEmail, form.FieldPicture}
	} else {
		f.schema = form.UserEdit
		f.scalars = []string{form.FieldTitle, form.FieldFirstName, form.FieldLastName, form.FieldPicture}
	}
	for _, name := range f.scalars {
		if name != form.FieldTitle {
			f.inputs[name] = newTextInput(f.draft.Get(name))
		}
	}
	return f
}

// newPostForm builds a post form. A zero p creates and offers the owner
// picker; otherwise p is edited and keeps its owner.
func newPostForm(p api.Post, ownerLimit int, submit func(*form.Draft) tea.Cmd, loadOwners func(query.Key) tea.Cmd) formState {
	f := formState{
		resource:   api.ResourcePosts,
		editID:     p.ID,
		draft:      form.PostDraft(p),
		inputs:     make(map[string]textinput.Model),
		submit:     submit,
		loadOwners: loadOwners,
		owners:     newOwnerState(ownerLimit),
	}
	if f.editID == "" {
		f.schema = form.PostCreate
		f.scalars = []string{form.FieldText, form.FieldImage, form.FieldLikes, form.FieldOwner}
		f.draft.Set(form.FieldLikes, "0")
		f.draft.Set(form.FieldOwner, "")
	} else {
		f.schema = form.PostEdit
		f.scalars = []string{form.FieldText, form.FieldImage, form.FieldLikes}
	}
	for _, name := range f.scalars {
		if name != form.FieldOwner {
			f.inputs[name] = newTextInput(f.draft.Get(name))
		}
	}
	for _, t := range f.draft.RawTags() {
		f.tagInputs = append(f.tagInputs, newTextInput(t))
	}
	return f
}

func (f formState) hasOwnerPicker() bool {
	return slices.Contains(f.scalars, form.FieldOwner)
}

// Init focuses the first field and, for new posts, loads the first page of
// owners.
func (f formState) Init() (formState, tea.Cmd) {
	var cmds []tea.Cmd
	f, cmd := f.setFocus(0)
	cmds = append(cmds, cmd)
	if f.hasOwnerPicker() {
		f, cmd = f.requestOwners()
		cmds = append(cmds, cmd)
	}
	return f, tea.Batch(cmds...)
}

// order lists the focusable rows. Tag rows sit between likes and owner.
func (f formState) order() []focusTarget {
	var out []focusTarget
	for _, name := range f.scalars {
		if name == form.FieldOwner {
			for i := range f.tagInputs {
				out = append(out, focusTarget{field: form.FieldTags, tag: i})
			}
		}
		out = append(out, focusTarget{field: name, tag: -1})
	}
	if f.resource == api.ResourcePosts && !f.hasOwnerPicker() {
		for i := range f.tagInputs {
			out = append(out, focusTarget{field: form.FieldTags, tag: i})
		}
	}
	return out
}

func (f formState) focused() focusTarget {
	order := f.order()
	if f.focus < 0 || f.focus >= len(order) {
		return focusTarget{tag: -1}
	}
	return order[f.focus]
}

func (f formState) isChoice(field string) bool {
	return field == form.FieldTitle || field == form.FieldOwner
}

// setFocus blurs every input and focuses row i (clamped).
func (f formState) setFocus(i int) (formState, tea.Cmd) {
	order := f.order()
	if len(order) == 0 {
		f.focus = 0
		return f, nil
	}
	f.focus = (i + len(order)) % len(order)

	for name, in := range f.inputs {
		in.Blur()
		f.inputs[name] = in
	}
	f.tagInputs = slices.Clone(f.tagInputs)
	for i := range f.tagInputs {
		f.tagInputs[i].Blur()
	}

	t := order[f.focus]
	switch {
	case t.tag >= 0:
		cmd := f.tagInputs[t.tag].Focus()
		return f, cmd
	case !f.isChoice(t.field):
		in := f.inputs[t.field]
		cmd := in.Focus()
		f.inputs[t.field] = in
		return f, cmd
	}
	return f, nil
}

// Update handles keys while the form is open. esc is handled by the caller.
func (f formState) Update(msg tea.Msg) (formState, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateFocused(msg)
	}

	switch key.String() {
	case "tab", "down":
		return f.setFocus(f.focus + 1)
	case "shift+tab", "up":
		return f.setFocus(f.focus - 1)
	case "enter", "ctrl+s":
		return f.trySubmit()
	case "ctrl+n":
		if f.resource != api.ResourcePosts || f.submitting {
			return f, nil
		}
		return f.addTag()
	case "ctrl+x":
		if f.submitting {
			return f, nil
		}
		return f.removeTag()
	case "left", "right":
		if t := f.focused(); f.isChoice(t.field) {
			if f.submitting {
				return f, nil
			}
			step := 1
			if key.String() == "left" {
				step = -1
			}
			return f.cycle(t.field, step)
		}
	}
	if f.submitting {
		return f, nil
	}
	return f.updateFocused(msg)
}

// updateFocused forwards msg to the focused text input and syncs the draft.
func (f formState) updateFocused(msg tea.Msg) (formState, tea.Cmd) {
	t := f.focused()
	var cmd tea.Cmd
	switch {
	case t.tag >= 0:
		f.tagInputs = slices.Clone(f.tagInputs)
		f.tagInputs[t.tag], cmd = f.tagInputs[t.tag].Update(msg)
		f.draft.SetTag(t.tag, f.tagInputs[t.tag].Value())
	case !f.isChoice(t.field) && t.field != "":
		in := f.inputs[t.field]
		in, cmd = in.Update(msg)
		f.inputs[t.field] = in
		f.draft.Set(t.field, in.Value())
	default:
		return f, nil
	}
	return f.revalidate(), cmd
}

func (f formState) revalidate() formState {
	if f.attempted {
		f.errs = form.Validate(f.schema, f.draft)
	}
	return f
}

// trySubmit validates the draft. Invalid drafts only annotate fields; a
// valid draft is handed to submit unless a submission is in flight.
func (f formState) trySubmit() (formState, tea.Cmd) {
	if f.submitting {
		return f, nil
	}
	f.attempted = true
	f.errs = form.Validate(f.schema, f.draft)
	if f.errs != nil {
		return f, nil
	}
	f.submitting = true
	return f, f.submit(f.draft)
}

// failed re-enables the form after a rejected mutation.
func (f formState) failed() formState {
	f.submitting = false
	return f
}

func (f formState) addTag() (formState, tea.Cmd) {
	f.draft.AddTag()
	f.tagInputs = append(slices.Clone(f.tagInputs), newTextInput(""))
	target := len(f.tagInputs) - 1
	f = f.revalidate()
	for i, t := range f.order() {
		if t.tag == target {
			return f.setFocus(i)
		}
	}
	return f, nil
}

// removeTag deletes the focused tag slot. The last slot may be removed.
func (f formState) removeTag() (formState, tea.Cmd) {
	t := f.focused()
	if t.tag < 0 {
		return f, nil
	}
	f.draft.RemoveTag(t.tag)
	f.tagInputs = slices.Delete(slices.Clone(f.tagInputs), t.tag, t.tag+1)
	f = f.revalidate()
	return f.setFocus(min(f.focus, len(f.order())-1))
}

// cycle moves a choice field by step.
func (f formState) cycle(field string, step int) (formState, tea.Cmd) {
	switch field {
	case form.FieldTitle:
		f.draft.Set(field, cycleChoice(api.Titles, f.draft.Get(field), step))
		return f.revalidate(), nil
	case form.FieldOwner:
		ids := f.owners.ids()
		if len(ids) == 0 {
			return f, nil
		}
		next := cycleChoice(ids, f.draft.Get(field), step)
		f.draft.Set(field, next)
		f = f.revalidate()
		// Reaching the last loaded owner pulls the next page.
		if next == ids[len(ids)-1] {
			return f.requestOwners()
		}
		return f, nil
	}
	return f, nil
}

// cycleChoice returns the choice step positions from current, wrapping. An
// unset current starts at the first (or last, stepping back) choice.
func cycleChoice(choices []string, current string, step int) string {
	i := slices.Index(choices, current)
	if i < 0 {
		if step < 0 {
			return choices[len(choices)-1]
		}
		return choices[0]
	}
	return choices[(i+step+len(choices))%len(choices)]
}

func (f formState) requestOwners() (formState, tea.Cmd) {
	owners, key, ok := f.owners.requestNext()
	if !ok {
		return f, nil
	}
	f.owners = owners
	return f, f.loadOwners(key)
}

// applyOwners appends a loaded owner page.
func (f formState) applyOwners(msg OwnersLoadedMsg) formState {
	f.owners = f.owners.apply(msg)
	return f
}

// reloadOwners restarts the owner picker from the first page. Pages from
// queries that started before epoch are dropped.
func (f formState) reloadOwners(epoch uint64) (formState, tea.Cmd) {
	if !f.hasOwnerPicker() {
		return f, nil
	}
	f.owners = newOwnerState(f.owners.limit)
	f.owners.epoch = epoch
	return f.requestOwners()
}

func (f formState) title() string {
	verb := "Create"
	if f.editID != "" {
		verb = "Edit"
	}
	if f.resource == api.ResourceUsers {
		return verb + " user"
	}
	return verb + " post"
}

// View renders the form box.
func (f formState) View(spinnerView string) string {
	var b strings.Builder
	b.WriteString(titleText.Render(f.title()))
	b.WriteString("\n")

	cur := f.focused()
	tagsDrawn := false
	drawTags := func() {
		if tagsDrawn {
			return
		}
		tagsDrawn = true
		b.WriteString("\n" + fieldLabel(form.FieldTags, false))
		for i, in := range f.tagInputs {
			marker := "  "
			if cur.tag == i {
				marker = CursorMarker
			}
			fmt.Fprintf(&b, "\n  %s#%d %s", marker, i+1, in.View())
		}
		if len(f.tagInputs) == 0 {
			b.WriteString("\n    " + mutedText.Render("(no tags)"))
		}
		b.WriteString("\n    " + mutedText.Render("ctrl+n add · ctrl+x remove"))
		f.writeError(&b, form.FieldTags)
	}

	for _, name := range f.scalars {
		if name == form.FieldOwner {
			drawTags()
		}
		focused := cur.tag < 0 && cur.field == name
		b.WriteString("\n" + fieldLabel(name, focused) + " ")
		switch name {
		case form.FieldTitle:
			b.WriteString(choiceView(f.draft.Get(name), focused))
		case form.FieldOwner:
			b.WriteString(choiceView(f.owners.label(f.draft.Get(name)), focused))
			if f.owners.loading {
				b.WriteString(" " + spinnerView)
			} else if f.owners.err != nil {
				b.WriteString(" " + errorText.Render(textLoadFailed))
			}
		default:
			b.WriteString(f.inputs[name].View())
		}
		f.writeError(&b, name)
	}
	if f.resource == api.ResourcePosts {
		drawTags()
	}

	b.WriteString("\n\n")
	if f.submitting {
		b.WriteString(spinnerView + " Saving...")
	} else {
		b.WriteString(mutedText.Render("[enter] Save   [esc] Cancel"))
	}
	return modalBox.Render(b.String())
}

func (f formState) writeError(b *strings.Builder, field string) {
	if msg := f.errs[field]; msg != "" {
		b.WriteString("\n    " + errorText.Render(msg))
	}
}

func fieldLabel(field string, focused bool) string {
	label := fieldLabels[field] + ":"
	if focused {
		return CursorMarker + focusedLabel.Render(label)
	}
	return "  " + label
}

func choiceView(value string, focused bool) string {
	if value == "" {
		value = mutedText.Render("(none)")
	}
	if focused {
		return "‹ " + value + " ›"
	}
	return value
}

// ownerState loads users page by page for the owner picker.
type ownerState struct {
	limit      int
	users      []api.User
	pages      int // pages loaded so far
	totalPages int
	loadedOnce bool
	loading    bool
	err        error
	activeKey  query.Key
	epoch      uint64 // oldest cache epoch still accepted
}

func newOwnerState(limit int) ownerState {
	return ownerState{limit: limit}
}

func (o ownerState) hasMore() bool {
	return !o.loadedOnce || o.pages < o.totalPages
}

// requestNext returns the key of the next page, unless a page is in flight
// or every page is loaded.
func (o ownerState) requestNext() (ownerState, query.Key, bool) {
	if o.loading || !o.hasMore() {
		return o, query.Key{}, false
	}
	o.loading = true
	o.err = nil
	o.activeKey = query.Key{Resource: api.ResourceUsers, Limit: o.limit, Page: o.pages}
	return o, o.activeKey, true
}

// apply appends a loaded page. A page older than the pages already loaded
// is dropped.
func (o ownerState) apply(msg OwnersLoadedMsg) ownerState {
	if !o.loading || msg.Key != o.activeKey || msg.Epoch < o.epoch {
		return o
	}
	o.epoch = msg.Epoch
	o.loading = false
	if msg.Err != nil {
		o.err = msg.Err
		return o
	}
	o.loadedOnce = true
	o.pages++
	o.totalPages = msg.Page.TotalPages
	o.users = append(slices.Clone(o.users), msg.Page.Items...)
	return o
}

func (o ownerState) ids() []string {
	ids := make([]string, len(o.users))
	for i, u := range o.users {
		ids[i] = u.ID
	}
	return ids
}

// label returns the display name of the owner with id.
func (o ownerState) label(id string) string {
	if id == "" {
		return ""
	}
	for _, u := range o.users {
		if u.ID == id {
			return u.FullName()
		}
	}
	return id
}
