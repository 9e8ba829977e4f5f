package dashboard

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the given screen and modal,
// providing context-aware help bar content.
func HelpBindings(screen Screen, modal Modal) help.KeyMap {
	switch modal {
	case ModalUserForm:
		return FormKeyMap(false)
	case ModalPostForm:
		return FormKeyMap(true)
	case ModalConfirm:
		return ConfirmKeyMap()
	case ModalPreview:
		return PreviewKeyMap()
	default:
		return ListKeyMap(screen)
	}
}
