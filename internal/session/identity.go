package session

import (
	"errors"
	"strings"
)

// ErrIdentifierConflict is returned when a server-assigned identifier that is
// already known arrives with a different value. The first value is kept.
var ErrIdentifierConflict = errors.New("session: identifier already set to a different value")

// WriteOnce holds an identifier that may only move from unset to set.
type WriteOnce struct {
	value string
}

// Set records v the first time it is called with a non-empty value. Later
// calls with the same value are no-ops; a different value is rejected.
func (w *WriteOnce) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if w.value == "" {
		w.value = v
		return nil
	}
	if w.value != v {
		return ErrIdentifierConflict
	}
	return nil
}

// Get returns the value and whether it is known.
func (w WriteOnce) Get() (string, bool) {
	return w.value, w.value != ""
}

// String returns the value or "".
func (w WriteOnce) String() string { return w.value }

// Identity ties a conversation to the customer and to the workflow's own
// session bookkeeping.
type Identity struct {
	// UserID is generated once per session object and never changes.
	UserID         string
	SessionID      WriteOnce
	ConversationID WriteOnce
}
