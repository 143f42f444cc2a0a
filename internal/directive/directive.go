// Package directive classifies assistant replies from the booking workflow
// into the selection UI, if any, the client should present next.
package directive

// Kind tags a Directive variant.
type Kind string

const (
	KindNone         Kind = "none"
	KindProfessional Kind = "professional"
	KindService      Kind = "service"
	KindPet          Kind = "pet"
	KindConfirmation Kind = "confirmation"
)

// Service option categories.
const (
	CategoryAddOn       = "Add-On"
	CategoryMainService = "Main Service"
)

// Fixed confirmation option labels.
const (
	ConfirmYes = "Yes, proceed"
	ConfirmNo  = "No, I need to make changes"
)

// Option is one selectable entry. Name is its identity within a directive.
type Option struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DetailLines []string `json:"detail_lines,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// IsAddOn reports whether the option is a service add-on.
func (o Option) IsAddOn() bool {
	return o.Category == CategoryAddOn
}

// Directive is the classified intent of one assistant turn. The concrete
// variants are None, Professional, Service, Pet and Confirmation; callers
// switch on the concrete type.
type Directive interface {
	Kind() Kind
	Options() []Option
	AllowMultiple() bool
	sealed()
}

// None presents no selection UI.
type None struct{}

// Professional offers a single, immediately-submitted professional choice.
type Professional struct{ Choices []Option }

// Service offers one required main service plus optional add-ons.
type Service struct{ Choices []Option }

// Pet offers one or more pets.
type Pet struct{ Choices []Option }

// Confirmation offers the fixed yes/no pair.
type Confirmation struct{ Choices []Option }

func (None) Kind() Kind         { return KindNone }
func (Professional) Kind() Kind { return KindProfessional }
func (Service) Kind() Kind      { return KindService }
func (Pet) Kind() Kind          { return KindPet }
func (Confirmation) Kind() Kind { return KindConfirmation }

func (None) Options() []Option           { return nil }
func (d Professional) Options() []Option { return d.Choices }
func (d Service) Options() []Option      { return d.Choices }
func (d Pet) Options() []Option          { return d.Choices }
func (d Confirmation) Options() []Option { return d.Choices }

func (None) AllowMultiple() bool         { return false }
func (Professional) AllowMultiple() bool { return false }
func (Service) AllowMultiple() bool      { return true }
func (Pet) AllowMultiple() bool          { return true }
func (Confirmation) AllowMultiple() bool { return false }

func (None) sealed()         {}
func (Professional) sealed() {}
func (Service) sealed()      {}
func (Pet) sealed()          {}
func (Confirmation) sealed() {}

// MainServices returns the non add-on options in list order.
func (d Service) MainServices() []Option {
	var out []Option
	for _, o := range d.Choices {
		if !o.IsAddOn() {
			out = append(out, o)
		}
	}
	return out
}

// AddOns returns the add-on options in list order.
func (d Service) AddOns() []Option {
	var out []Option
	for _, o := range d.Choices {
		if o.IsAddOn() {
			out = append(out, o)
		}
	}
	return out
}

// NewConfirmation builds the fixed two-option confirmation directive.
func NewConfirmation() Confirmation {
	return Confirmation{Choices: []Option{{Name: ConfirmYes}, {Name: ConfirmNo}}}
}

// Find returns the option named name.
func Find(d Directive, name string) (Option, bool) {
	if d == nil {
		return Option{}, false
	}
	for _, o := range d.Options() {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// IsNone reports whether d presents nothing.
func IsNone(d Directive) bool {
	return d == nil || d.Kind() == KindNone
}

// dedupe drops later options whose name repeats an earlier one.
func dedupe(opts []Option) []Option {
	seen := make(map[string]struct{}, len(opts))
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if o.Name == "" {
			continue
		}
		if _, ok := seen[o.Name]; ok {
			continue
		}
		seen[o.Name] = struct{}{}
		out = append(out, o)
	}
	return out
}
