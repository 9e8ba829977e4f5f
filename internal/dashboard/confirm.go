package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmText is the delete confirmation question.
const confirmText = "Are you sure want to delete this data?"

type confirmChoice int

const (
	choiceNone confirmChoice = iota
	choiceYes
	choiceNo
)

// confirmState holds the row a delete confirmation applies to.
type confirmState struct {
	resource   string
	id         string
	label      string
	submitting bool
}

// decide maps a key to a choice. Keys are ignored while the delete is in
// flight.
func (cs confirmState) decide(msg tea.KeyMsg) confirmChoice {
	if cs.submitting {
		return choiceNone
	}
	switch msg.String() {
	case "y", "Y", "enter":
		return choiceYes
	case "n", "N", "esc":
		return choiceNo
	}
	return choiceNone
}

// View renders the confirmation box.
func (cs confirmState) View(spinnerView string) string {
	var b strings.Builder
	b.WriteString(confirmText)
	fmt.Fprintf(&b, "\n\n  %s", cs.label)
	if cs.submitting {
		fmt.Fprintf(&b, "\n\n  %s Deleting...", spinnerView)
	} else {
		b.WriteString("\n\n  [y] Yes   [n] No")
	}
	return modalBox.Render(b.String())
}
