package dashboard

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// filterState is the home screen's tag input. Keystrokes restart a
// debounce timer; the tag is committed only when the newest timer fires.
type filterState struct {
	input     textinput.Model
	committed string
	seq       int
	delay     time.Duration
}

func newFilterState(delay time.Duration) filterState {
	ti := textinput.New()
	ti.Placeholder = "filter by tag"
	ti.Prompt = "# "
	ti.CharLimit = 64
	return filterState{input: ti, delay: delay}
}

func (f filterState) focused() bool { return f.input.Focused() }

func (f filterState) focus() (filterState, tea.Cmd) {
	cmd := f.input.Focus()
	return f, cmd
}

func (f filterState) blur() filterState {
	f.input.Blur()
	return f
}

// Update forwards a key to the input. When the text changed it schedules a
// FilterDebounceMsg tagged with a new sequence number.
func (f filterState) Update(msg tea.Msg) (filterState, tea.Cmd) {
	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	if f.input.Value() == before {
		return f, cmd
	}
	f.seq++
	seq := f.seq
	if f.delay <= 0 {
		return f, tea.Batch(cmd, func() tea.Msg { return FilterDebounceMsg{Seq: seq} })
	}
	return f, tea.Batch(cmd, tea.Tick(f.delay, func(time.Time) tea.Msg {
		return FilterDebounceMsg{Seq: seq}
	}))
}

// settle handles a debounce tick. It returns true when a new tag was
// committed and the list must be reset to the first page.
func (f filterState) settle(msg FilterDebounceMsg) (filterState, bool) {
	if msg.Seq != f.seq {
		return f, false
	}
	tag := strings.TrimSpace(f.input.Value())
	if tag == f.committed {
		return f, false
	}
	f.committed = tag
	return f, true
}

func (f filterState) View() string {
	return f.input.View()
}
