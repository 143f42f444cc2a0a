// Package contact holds the customer contact fields every outgoing booking
// message carries.
package contact

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Info is the contact form's current values.
type Info struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Normalize trims surrounding whitespace from every field.
func (i Info) Normalize() Info {
	return Info{
		FirstName: strings.TrimSpace(i.FirstName),
		LastName:  strings.TrimSpace(i.LastName),
		Email:     strings.TrimSpace(i.Email),
	}
}

// Validate returns a validation.Errors keyed by JSON field name when any
// field is missing or malformed.
func (i Info) Validate() error {
	n := i.Normalize()
	return validation.Errors{
		"firstName": validation.Validate(n.FirstName, validation.Required, validation.Length(1, 100)),
		"lastName":  validation.Validate(n.LastName, validation.Required, validation.Length(1, 100)),
		"email":     validation.Validate(n.Email, validation.Required, is.EmailFormat),
	}.Filter()
}

// Valid reports whether the form may be used to send.
func (i Info) Valid() bool {
	return i.Validate() == nil
}

// Form is the collaborator the orchestrator reads contact details from.
type Form interface {
	Values() Info
	Valid() bool
}

// Static is a Form over fixed values.
type Static Info

// Values implements Form.
func (s Static) Values() Info { return Info(s).Normalize() }

// Valid implements Form.
func (s Static) Valid() bool { return Info(s).Valid() }
