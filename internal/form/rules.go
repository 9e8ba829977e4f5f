// Package form validates user and post drafts against declarative rule
// tables and converts valid drafts into API payloads.
package form

import (
	"net/mail"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Field names shared by drafts, schemas, and error maps.
const (
	FieldTitle     = "title"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPicture   = "picture"
	FieldText      = "text"
	FieldImage     = "image"
	FieldLikes     = "likes"
	FieldTags      = "tags"
	FieldOwner     = "owner"
)

// Check reports whether a draft satisfies one constraint.
type Check func(d *Draft) bool

// Rule ties a check to the field it annotates and the message shown when it
// fails.
type Rule struct {
	Field   string
	Check   Check
	Message string
}

// Required fails on a blank value.
func Required(field, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return strings.TrimSpace(d.Get(field)) != ""
	}}
}

// MinLength fails when the trimmed value is shorter than n characters.
func MinLength(field string, n int, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return len([]rune(strings.TrimSpace(d.Get(field)))) >= n
	}}
}

// URL fails unless the value is an absolute http(s) URL.
func URL(field, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return ValidURL(d.Get(field))
	}}
}

// Email fails unless the value is a bare address.
func Email(field, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return ValidEmail(d.Get(field))
	}}
}

// OneOf fails unless the value equals one of allowed.
func OneOf(field string, allowed []string, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return slices.Contains(allowed, d.Get(field))
	}}
}

// NonNegativeInt fails unless the value parses as an integer >= 0.
func NonNegativeInt(field, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		n, err := strconv.Atoi(strings.TrimSpace(d.Get(field)))
		return err == nil && n >= 0
	}}
}

// MinItems fails when the draft has fewer than n tag slots.
func MinItems(field string, n int, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		return len(d.RawTags()) >= n
	}}
}

// EachItem fails when any tag slot, trimmed, is shorter than n characters.
func EachItem(field string, n int, msg string) Rule {
	return Rule{Field: field, Message: msg, Check: func(d *Draft) bool {
		for _, t := range d.RawTags() {
			if len([]rune(strings.TrimSpace(t))) < n {
				return false
			}
		}
		return true
	}}
}

// ValidURL reports whether s is an absolute http or https URL with a host.
func ValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidEmail reports whether s is a bare address such as "a@b.com". Display
// names ("Ann <a@b.com>") are rejected.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
