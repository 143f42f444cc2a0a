// Package compose turns accumulated selections and scheduling forms into the
// plain-text message sent as the customer's next turn.
package compose

import (
	"errors"
	"strings"

	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
	"github.com/wolfman30/pawcare-booking-chat/internal/selection"
)

// ErrEmptySelection is returned when the directive needs at least one choice
// and none was made. Callers must not send anything in that case.
var ErrEmptySelection = errors.New("compose: nothing selected")

// ErrNothingToCompose is returned for the None directive.
var ErrNothingToCompose = errors.New("compose: no directive presented")

// Sentences sent for the two confirmation options.
const (
	ConfirmYesMessage = "Yes, I'd like to proceed with the booking."
	ConfirmNoMessage  = "No, I need to make changes."
)

const listSeparator = ", "

// Selection composes the outgoing message for an accumulated selection.
func Selection(s selection.State) (string, error) {
	switch s.Directive().(type) {
	case directive.Professional:
		names := s.SelectedNames()
		if len(names) == 0 {
			return "", ErrEmptySelection
		}
		return names[0], nil
	case directive.Service:
		main := s.MainService()
		if main == "" {
			return "", ErrEmptySelection
		}
		parts := append([]string{main}, s.SelectedNames()...)
		return strings.Join(parts, listSeparator), nil
	case directive.Pet:
		names := s.SelectedNames()
		if len(names) == 0 {
			return "", ErrEmptySelection
		}
		return strings.Join(names, listSeparator), nil
	case directive.Confirmation:
		names := s.SelectedNames()
		if len(names) == 0 {
			return "", ErrEmptySelection
		}
		if names[0] == directive.ConfirmYes {
			return ConfirmYesMessage, nil
		}
		return ConfirmNoMessage, nil
	default:
		return "", ErrNothingToCompose
	}
}
