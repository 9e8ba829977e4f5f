package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smileynet/postdesk/internal/api"
)

// Draft holds the editable values of a form. Scalar fields are strings as
// typed; tags are an ordered list that may contain blank entries while the
// user is editing.
type Draft struct {
	values map[string]string
	tags   []string
}

// NewDraft returns an empty draft with one blank tag slot.
func NewDraft() *Draft {
	return &Draft{values: make(map[string]string), tags: []string{""}}
}

// Get returns the value of field, or "" when unset.
func (d *Draft) Get(field string) string { return d.values[field] }

// Set assigns the value of field.
func (d *Draft) Set(field, value string) { d.values[field] = value }

// RawTags returns the tag slots as edited, including blanks.
func (d *Draft) RawTags() []string { return d.tags }

// Tags returns the trimmed non-blank tags.
func (d *Draft) Tags() []string {
	out := make([]string, 0, len(d.tags))
	for _, t := range d.tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// AddTag appends a blank tag slot and returns its index.
func (d *Draft) AddTag() int {
	d.tags = append(d.tags, "")
	return len(d.tags) - 1
}

// RemoveTag deletes slot i. Out-of-range indexes are ignored. The list may
// become empty; MinItems reports that on submit.
func (d *Draft) RemoveTag(i int) {
	if i < 0 || i >= len(d.tags) {
		return
	}
	d.tags = append(d.tags[:i], d.tags[i+1:]...)
}

// SetTag assigns slot i. Out-of-range indexes are ignored.
func (d *Draft) SetTag(i int, value string) {
	if i < 0 || i >= len(d.tags) {
		return
	}
	d.tags[i] = value
}

// UserDraft returns a draft prefilled from u.
func UserDraft(u api.User) *Draft {
	d := NewDraft()
	d.tags = nil
	d.Set(FieldTitle, u.Title)
	d.Set(FieldFirstName, u.FirstName)
	d.Set(FieldLastName, u.LastName)
	d.Set(FieldEmail, u.Email)
	d.Set(FieldPicture, u.Picture)
	return d
}

// PostDraft returns a draft prefilled from p. Tags are copied.
func PostDraft(p api.Post) *Draft {
	d := NewDraft()
	d.Set(FieldText, p.Text)
	d.Set(FieldImage, p.Image)
	d.Set(FieldLikes, strconv.Itoa(p.Likes))
	d.Set(FieldOwner, p.Owner.ID)
	if len(p.Tags) > 0 {
		d.tags = append([]string(nil), p.Tags...)
	}
	return d
}

// UserFields converts a validated draft into a user payload.
func (d *Draft) UserFields() api.UserFields {
	return api.UserFields{
		Title:     strings.TrimSpace(d.Get(FieldTitle)),
		FirstName: strings.TrimSpace(d.Get(FieldFirstName)),
		LastName:  strings.TrimSpace(d.Get(FieldLastName)),
		Email:     strings.TrimSpace(d.Get(FieldEmail)),
		Picture:   strings.TrimSpace(d.Get(FieldPicture)),
	}
}

// PostFields converts a validated draft into a post payload.
func (d *Draft) PostFields() (api.PostFields, error) {
	likes, err := strconv.Atoi(strings.TrimSpace(d.Get(FieldLikes)))
	if err != nil {
		return api.PostFields{}, fmt.Errorf("form: likes %q: %w", d.Get(FieldLikes), err)
	}
	return api.PostFields{
		Text:  strings.TrimSpace(d.Get(FieldText)),
		Image: strings.TrimSpace(d.Get(FieldImage)),
		Likes: likes,
		Tags:  d.Tags(),
		Owner: strings.TrimSpace(d.Get(FieldOwner)),
	}, nil
}
