package form

import (
	"slices"
	"strings"

	"github.com/smileynet/postdesk/internal/api"
)

// Schema is an ordered rule table. Rules for the same field are evaluated in
// order and the first failure wins.
type Schema []Rule

// Without returns a copy of s with every rule for the named fields removed.
func (s Schema) Without(fields ...string) Schema {
	out := make(Schema, 0, len(s))
	for _, r := range s {
		if !slices.Contains(fields, r.Field) {
			out = append(out, r)
		}
	}
	return out
}

// Errors maps field names to the message of their first failing rule.
type Errors map[string]string

// Error lists the failing fields in sorted order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return "form: invalid " + strings.Join(fields, ", ")
}

// Validate evaluates every rule in s against d. It returns nil when all
// rules pass.
func Validate(s Schema, d *Draft) Errors {
	var errs Errors
	for _, r := range s {
		if _, failed := errs[r.Field]; failed {
			continue
		}
		if r.Check(d) {
			continue
		}
		if errs == nil {
			errs = make(Errors)
		}
		errs[r.Field] = r.Message
	}
	return errs
}

// Schemas for the four forms.
var (
	UserCreate = Schema{
		OneOf(FieldTitle, api.Titles, "Please choose a title."),
		MinLength(FieldFirstName, 2, "Please enter the first name."),
		MinLength(FieldLastName, 2, "Please enter the last name."),
		Email(FieldEmail, "Please enter a valid email."),
		URL(FieldPicture, "Please enter a valid URL."),
	}
	UserEdit = UserCreate.Without(FieldEmail)

	PostCreate = Schema{
		MinLength(FieldText, 6, "Please enter the text."),
		URL(FieldImage, "Please enter a valid URL."),
		NonNegativeInt(FieldLikes, "Please enter the amount of likes."),
		MinItems(FieldTags, 1, "Please enter at least one tag."),
		EachItem(FieldTags, 1, "Tags cannot be blank."),
		Required(FieldOwner, "Please choose an owner."),
	}
	PostEdit = PostCreate.Without(FieldOwner)
)
