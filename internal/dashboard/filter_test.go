package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(f filterState, s string) (filterState, []tea.Cmd) {
	var cmds []tea.Cmd
	for _, r := range s {
		var cmd tea.Cmd
		f, cmd = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		cmds = append(cmds, cmd)
	}
	return f, cmds
}

func TestFilterState_OnlyNewestTickCommits(t *testing.T) {
	f := newFilterState(time.Second)
	f, _ = f.focus()
	f, _ = typeInto(f, "dog")

	f, changed := f.settle(FilterDebounceMsg{Seq: 1})
	if changed {
		t.Error("stale tick should not commit")
	}
	f, changed = f.settle(FilterDebounceMsg{Seq: 3})
	if !changed || f.committed != "dog" {
		t.Errorf("newest tick: changed=%v committed=%q, want true, dog", changed, f.committed)
	}
}

func TestFilterState_SameTagDoesNotRecommit(t *testing.T) {
	f := newFilterState(0)
	f, _ = f.focus()
	f, _ = typeInto(f, "a")
	f, _ = f.settle(FilterDebounceMsg{Seq: f.seq})

	// Type a space that trims away.
	f, _ = typeInto(f, " ")
	_, changed := f.settle(FilterDebounceMsg{Seq: f.seq})

	if changed {
		t.Error("trimmed tag equal to committed should not commit again")
	}
}

func TestFilterState_ZeroDelayFiresImmediately(t *testing.T) {
	f := newFilterState(0)
	f, _ = f.focus()

	f, cmd := f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd == nil {
		t.Fatal("a change should schedule a debounce message")
	}

	var found bool
	msgs := []tea.Msg{cmd()}
	for len(msgs) > 0 {
		msg := msgs[0]
		msgs = msgs[1:]
		switch msg := msg.(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				if c != nil {
					msgs = append(msgs, c())
				}
			}
		case FilterDebounceMsg:
			found = msg.Seq == f.seq
		}
	}
	if !found {
		t.Error("zero delay should emit FilterDebounceMsg for the current seq")
	}
}

func TestFilterState_UnfocusedIgnoresKeys(t *testing.T) {
	f := newFilterState(0)

	f, _ = typeInto(f, "abc")

	if f.seq != 0 || f.input.Value() != "" {
		t.Errorf("unfocused filter changed: seq=%d value=%q", f.seq, f.input.Value())
	}
}
