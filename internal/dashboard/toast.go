package dashboard

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/smileynet/postdesk/internal/api"
)

// ToastKind selects the toast style.
type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

// maxToasts caps how many toasts are stacked at once.
const maxToasts = 3

type toast struct {
	ID      string
	Kind    ToastKind
	Message string
}

// toastState is the stack of visible toasts, newest last.
type toastState struct {
	items    []toast
	duration time.Duration
}

// push shows a toast and schedules its expiry.
func (ts toastState) push(kind ToastKind, message string) (toastState, tea.Cmd) {
	t := toast{ID: uuid.NewString(), Kind: kind, Message: message}
	ts.items = append(append([]toast(nil), ts.items...), t)
	if len(ts.items) > maxToasts {
		ts.items = ts.items[len(ts.items)-maxToasts:]
	}
	id := t.ID
	return ts, tea.Tick(ts.duration, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

// dismiss removes the toast with id. Unknown ids are ignored.
func (ts toastState) dismiss(id string) toastState {
	out := ts.items[:0:0]
	for _, t := range ts.items {
		if t.ID != id {
			out = append(out, t)
		}
	}
	ts.items = out
	return ts
}

func (ts toastState) View() string {
	lines := make([]string, 0, len(ts.items))
	for _, t := range ts.items {
		switch t.Kind {
		case ToastError:
			lines = append(lines, toastError.Render("✗ "+t.Message))
		default:
			lines = append(lines, toastSuccess.Render("✓ "+t.Message))
		}
	}
	return strings.Join(lines, "\n")
}

// mutationToast returns the success text for a completed write, such as
// "User created successfully.".
func mutationToast(resource string, op Mutation) string {
	noun := "Post"
	if resource == api.ResourceUsers {
		noun = "User"
	}
	switch op {
	case MutationCreate:
		return noun + " created successfully."
	case MutationUpdate:
		return noun + " updated successfully."
	default:
		return noun + " deleted successfully."
	}
}
