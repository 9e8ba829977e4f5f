package dashboard

import (
	"fmt"
	"strings"

	"github.com/smileynet/postdesk/internal/api"
	"github.com/smileynet/postdesk/internal/form"
)

// previewState shows a post's image details. Only posts whose image is a
// valid URL can be previewed.
type previewState struct {
	post api.Post
}

// imageCell renders the image column: the URL host, or "-" when the image
// is not a valid URL.
func imageCell(image string) string {
	if !form.ValidURL(image) {
		return "-"
	}
	s := strings.TrimPrefix(strings.TrimPrefix(image, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i > 0 {
		s = s[:i]
	}
	return s
}

func (ps previewState) View() string {
	var b strings.Builder
	b.WriteString(titleText.Render("Image preview"))
	fmt.Fprintf(&b, "\n\n  %s", ps.post.Image)
	fmt.Fprintf(&b, "\n\n  by %s", ps.post.Owner.FullName())
	if ps.post.Text != "" {
		fmt.Fprintf(&b, "\n  %q", ps.post.Text)
	}
	b.WriteString("\n\n  [esc] Close")
	return modalBox.Render(b.String())
}
