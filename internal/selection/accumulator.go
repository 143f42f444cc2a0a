// Package selection accumulates the customer's in-progress choices for the
// currently presented directive.
package selection

import (
	"errors"

	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
)

var (
	// ErrNoDirective indicates a click arrived while nothing was presented.
	ErrNoDirective = errors.New("selection: no active directive")
	// ErrUnknownOption indicates a click on a name the directive does not offer.
	ErrUnknownOption = errors.New("selection: unknown option")
)

// State is an immutable snapshot of the accumulated choices. For a Service
// directive the main service is tracked apart from the add-on names; for
// every other directive the chosen names live in the selected set.
type State struct {
	directive   directive.Directive
	selected    map[string]struct{}
	mainService string
}

// Outcome reports side effects a click asks the caller to perform.
type Outcome struct {
	// Submit is set when the click is final and must be sent immediately.
	Submit bool
}

// OptionView is an option with its current selection flag, for renderers.
type OptionView struct {
	directive.Option
	Selected bool `json:"selected"`
}

// New starts an empty accumulation for d. Replacing the directive always goes
// through New, so nothing carries over between turns.
func New(d directive.Directive) State {
	if d == nil {
		d = directive.None{}
	}
	return State{directive: d, selected: map[string]struct{}{}}
}

// Directive returns the directive being accumulated against.
func (s State) Directive() directive.Directive {
	if s.directive == nil {
		return directive.None{}
	}
	return s.directive
}

// MainService returns the chosen main service, or "".
func (s State) MainService() string { return s.mainService }

// IsSelected reports whether name is currently chosen.
func (s State) IsSelected(name string) bool {
	if name != "" && name == s.mainService {
		return true
	}
	_, ok := s.selected[name]
	return ok
}

// SelectedNames returns the chosen names from the selected set in the order
// the directive lists them. The main service is not included.
func (s State) SelectedNames() []string {
	var out []string
	for _, o := range s.Directive().Options() {
		if _, ok := s.selected[o.Name]; ok {
			out = append(out, o.Name)
		}
	}
	return out
}

// Empty reports whether nothing at all is chosen.
func (s State) Empty() bool {
	return s.mainService == "" && len(s.selected) == 0
}

// Views returns every option with its selection flag.
func (s State) Views() []OptionView {
	opts := s.Directive().Options()
	out := make([]OptionView, 0, len(opts))
	for _, o := range opts {
		out = append(out, OptionView{Option: o, Selected: s.IsSelected(o.Name)})
	}
	return out
}

// Click applies one click on the option called name and returns the new state.
// The receiver is left untouched.
func (s State) Click(name string) (State, Outcome, error) {
	d := s.Directive()
	if directive.IsNone(d) {
		return s, Outcome{}, ErrNoDirective
	}
	opt, ok := directive.Find(d, name)
	if !ok {
		return s, Outcome{}, ErrUnknownOption
	}

	next := s.clone()
	switch d.(type) {
	case directive.Service:
		if opt.IsAddOn() {
			next.toggle(opt.Name)
		} else {
			next.mainService = opt.Name
		}
		return next, Outcome{}, nil
	case directive.Professional:
		next.selected = map[string]struct{}{opt.Name: {}}
		return next, Outcome{Submit: true}, nil
	}

	if d.AllowMultiple() {
		next.toggle(opt.Name)
	} else {
		next.selected = map[string]struct{}{opt.Name: {}}
	}
	return next, Outcome{}, nil
}

func (s State) clone() State {
	selected := make(map[string]struct{}, len(s.selected))
	for k := range s.selected {
		selected[k] = struct{}{}
	}
	return State{directive: s.Directive(), selected: selected, mainService: s.mainService}
}

func (s *State) toggle(name string) {
	if _, ok := s.selected[name]; ok {
		delete(s.selected, name)
		return
	}
	s.selected[name] = struct{}{}
}
