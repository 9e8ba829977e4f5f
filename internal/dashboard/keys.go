package dashboard

import "github.com/charmbracelet/bubbles/key"

// listKeys holds key bindings for the list screens.
type listKeys struct {
	Up      key.Binding
	Down    key.Binding
	Prev    key.Binding
	Next    key.Binding
	First   key.Binding
	Last    key.Binding
	Screen  key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Preview key.Binding
	Filter  key.Binding
	Quit    key.Binding
}

// ShortHelp returns the list bindings for the help bar.
func (k listKeys) ShortHelp() []key.Binding {
	bindings := []key.Binding{k.Prev, k.Next, k.Screen, k.New, k.Edit, k.Delete}
	if k.Preview.Enabled() {
		bindings = append(bindings, k.Preview)
	}
	if k.Filter.Enabled() {
		bindings = append(bindings, k.Filter)
	}
	return append(bindings, k.Quit)
}

// FullHelp returns the list bindings grouped for expanded help.
func (k listKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next, k.First, k.Last},
		{k.Screen, k.New, k.Edit, k.Delete, k.Preview, k.Filter},
		{k.Quit},
	}
}

// formKeys holds key bindings for an open form.
type formKeys struct {
	Next      key.Binding
	Prev      key.Binding
	Choice    key.Binding
	AddTag    key.Binding
	RemoveTag key.Binding
	Submit    key.Binding
	Cancel    key.Binding
}

// ShortHelp returns the form bindings for the help bar.
func (k formKeys) ShortHelp() []key.Binding {
	bindings := []key.Binding{k.Next, k.Prev, k.Choice}
	if k.AddTag.Enabled() {
		bindings = append(bindings, k.AddTag, k.RemoveTag)
	}
	return append(bindings, k.Submit, k.Cancel)
}

// FullHelp returns the form bindings grouped for expanded help.
func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Choice},
		{k.AddTag, k.RemoveTag},
		{k.Submit, k.Cancel},
	}
}

// dialogKeys holds key bindings for the confirm and preview dialogs.
type dialogKeys struct {
	Yes   key.Binding
	No    key.Binding
	Close key.Binding
}

// ShortHelp returns the dialog bindings for the help bar.
func (k dialogKeys) ShortHelp() []key.Binding {
	var out []key.Binding
	for _, b := range []key.Binding{k.Yes, k.No, k.Close} {
		if b.Enabled() {
			out = append(out, b)
		}
	}
	return out
}

// FullHelp returns the dialog bindings grouped for expanded help.
func (k dialogKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// ListKeyMap returns the key bindings for screen s.
func ListKeyMap(s Screen) listKeys {
	k := listKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next"),
		),
		First: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first page"),
		),
		Last: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "last page"),
		),
		Screen: key.NewBinding(
			key.WithKeys("tab", "1", "2", "3"),
			key.WithHelp("tab/1-3", "screen"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Preview: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "preview"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter tag"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
	if s == ScreenUsers {
		k.Preview.SetEnabled(false)
	}
	if s != ScreenHome {
		k.Filter.SetEnabled(false)
	}
	return k
}

// FormKeyMap returns the key bindings for a user or post form.
func FormKeyMap(posts bool) formKeys {
	k := formKeys{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Choice: key.NewBinding(
			key.WithKeys("left", "right"),
			key.WithHelp("←/→", "choose"),
		),
		AddTag: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "add tag"),
		),
		RemoveTag: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "remove tag"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter", "ctrl+s"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
	if !posts {
		k.AddTag.SetEnabled(false)
		k.RemoveTag.SetEnabled(false)
	}
	return k
}

// ConfirmKeyMap returns the key bindings for the delete confirmation.
func ConfirmKeyMap() dialogKeys {
	k := dialogKeys{
		Yes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "no"),
		),
		Close: key.NewBinding(key.WithKeys("esc")),
	}
	k.Close.SetEnabled(false)
	return k
}

// PreviewKeyMap returns the key bindings for the image preview.
func PreviewKeyMap() dialogKeys {
	k := dialogKeys{
		Yes: key.NewBinding(key.WithKeys("y")),
		No:  key.NewBinding(key.WithKeys("n")),
		Close: key.NewBinding(
			key.WithKeys("esc", "q", "enter"),
			key.WithHelp("esc", "close"),
		),
	}
	k.Yes.SetEnabled(false)
	k.No.SetEnabled(false)
	return k
}
