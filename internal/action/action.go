// Package action defines the fixed top-level intents a booking conversation
// starts from.
package action

import "fmt"

// Action identifies one of the initial intents offered before the first send.
type Action string

const (
	NewBooking    Action = "new_booking"
	ChangeBooking Action = "change_booking"
	CancelBooking Action = "cancel_booking"
	ListBookings  Action = "list_bookings"
	ListInvoices  Action = "list_invoices"
)

// Definition pairs an action with its button label and the opening message
// sent to the workflow when it is picked.
type Definition struct {
	Action  Action `json:"action"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

var catalog = []Definition{
	{NewBooking, "Book a new appointment", "I'd like to make a new booking."},
	{ChangeBooking, "Change a booking", "I'd like to change an existing booking."},
	{CancelBooking, "Cancel a booking", "I'd like to cancel a booking."},
	{ListBookings, "View my bookings", "Please show me my existing bookings."},
	{ListInvoices, "View outstanding invoices", "Please show me my outstanding invoices."},
}

// All returns the five initial actions in display order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition for a.
func Lookup(a Action) (Definition, bool) {
	for _, def := range catalog {
		if def.Action == a {
			return def, true
		}
	}
	return Definition{}, false
}

// Parse validates a raw action identifier.
func Parse(raw string) (Action, error) {
	if def, ok := Lookup(Action(raw)); ok {
		return def.Action, nil
	}
	return "", fmt.Errorf("action: unknown action %q", raw)
}

// SuppressesSelection reports whether replies under a should never present a
// selection or scheduling UI. Listing bookings and invoices are read-only flows.
func (a Action) SuppressesSelection() bool {
	return a == ListBookings || a == ListInvoices
}
