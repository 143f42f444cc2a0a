// Package session owns one booking conversation's identity, transcript and
// turn state.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/pawcare-booking-chat/internal/action"
)

// State is the conversation's position in the turn cycle.
type State string

const (
	StateIdle               State = "idle"
	StateActionChosen       State = "action_chosen"
	StateAwaitingReply      State = "awaiting_reply"
	StateSelectionPresented State = "selection_presented"
	StateDateTimePresented  State = "datetime_presented"
)

// Panel is the interactive UI presented after a reply.
type Panel string

const (
	PanelNone      Panel = "none"
	PanelSelection Panel = "selection"
	PanelDateTime  Panel = "datetime"
)

var (
	// ErrBusy is returned while a reply is pending; at most one request is in
	// flight per conversation.
	ErrBusy = errors.New("session: waiting for a reply")
	// ErrStaleTicket is returned when a reply belongs to a send made before
	// the last reset.
	ErrStaleTicket = errors.New("session: reply belongs to a reset conversation")
	// ErrNotAwaiting is returned when a reply arrives with no send pending.
	ErrNotAwaiting = errors.New("session: no reply pending")
)

// Message is one transcript entry. Entries are never edited once appended.
type Message struct {
	Text     string    `json:"text"`
	FromUser bool      `json:"from_user"`
	HTML     string    `json:"html,omitempty"`
	At       time.Time `json:"at"`
}

// Reply is an assistant answer as received from the workflow.
type Reply struct {
	Text           string
	HTML           string
	SessionID      string
	ConversationID string
}

// Ticket identifies one outgoing send.
type Ticket struct {
	generation int
}

// Session is the state of a single conversation. It is not safe for
// concurrent use; the orchestrator serializes access.
type Session struct {
	identity   Identity
	action     action.Action
	state      State
	transcript []Message
	greeting   string
	generation int
	now        func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithUserID fixes the user id instead of generating one.
func WithUserID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.identity.UserID = id
		}
	}
}

// WithClock overrides the time source used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New starts an idle conversation whose transcript holds only the greeting.
func New(greeting string, opts ...Option) *Session {
	s := &Session{
		identity: Identity{UserID: uuid.NewString()},
		state:    StateIdle,
		greeting: greeting,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript = s.initialTranscript()
	return s
}

func (s *Session) initialTranscript() []Message {
	if s.greeting == "" {
		return nil
	}
	return []Message{{Text: s.greeting, At: s.now()}}
}

// UserID returns the stable user id.
func (s *Session) UserID() string { return s.identity.UserID }

// Identity returns a copy of the identity triple.
func (s *Session) Identity() Identity { return s.identity }

// Action returns the current top-level action, or "".
func (s *Session) Action() action.Action { return s.action }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Panel returns the panel implied by the current state.
func (s *Session) Panel() Panel {
	switch s.state {
	case StateSelectionPresented:
		return PanelSelection
	case StateDateTimePresented:
		return PanelDateTime
	default:
		return PanelNone
	}
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []Message {
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// LastAssistantText returns the most recent assistant message text.
func (s *Session) LastAssistantText() string {
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if !s.transcript[i].FromUser {
			return s.transcript[i].Text
		}
	}
	return ""
}

// ChooseAction records one of the fixed initial actions.
func (s *Session) ChooseAction(a action.Action) error {
	if s.state == StateAwaitingReply {
		return ErrBusy
	}
	if _, ok := action.Lookup(a); !ok {
		return fmt.Errorf("session: unknown action %q", a)
	}
	s.action = a
	s.state = StateActionChosen
	return nil
}

// BeginSend appends the customer's message and enters AwaitingReply. Any
// presented panel is dismissed.
func (s *Session) BeginSend(text string) (Ticket, Message, error) {
	if s.state == StateAwaitingReply {
		return Ticket{}, Message{}, ErrBusy
	}
	msg := Message{Text: text, FromUser: true, At: s.now()}
	s.transcript = append(s.transcript, msg)
	s.state = StateAwaitingReply
	return Ticket{generation: s.generation}, msg, nil
}

// ApplyReply appends the assistant reply and learns the workflow's
// identifiers. The state returns to Idle; call Present to show a panel. An
// ErrIdentifierConflict is reported alongside a successfully applied reply.
func (s *Session) ApplyReply(t Ticket, r Reply) (Message, error) {
	if err := s.checkTicket(t); err != nil {
		return Message{}, err
	}
	msg := Message{Text: r.Text, HTML: r.HTML, At: s.now()}
	s.transcript = append(s.transcript, msg)
	s.state = StateIdle

	return msg, errors.Join(
		s.identity.SessionID.Set(r.SessionID),
		s.identity.ConversationID.Set(r.ConversationID),
	)
}

// FailReply appends a fixed apology after a failed send and returns to Idle.
func (s *Session) FailReply(t Ticket, apology string) (Message, error) {
	if err := s.checkTicket(t); err != nil {
		return Message{}, err
	}
	msg := Message{Text: apology, At: s.now()}
	s.transcript = append(s.transcript, msg)
	s.state = StateIdle
	return msg, nil
}

func (s *Session) checkTicket(t Ticket) error {
	if t.generation != s.generation {
		return ErrStaleTicket
	}
	if s.state != StateAwaitingReply {
		return ErrNotAwaiting
	}
	return nil
}

// Present shows p. Read-only actions never present a panel, and presenting
// one panel replaces the other. The resulting panel is returned.
func (s *Session) Present(p Panel) Panel {
	if s.state == StateAwaitingReply {
		return s.Panel()
	}
	if s.action.SuppressesSelection() {
		p = PanelNone
	}
	switch p {
	case PanelSelection:
		s.state = StateSelectionPresented
	case PanelDateTime:
		s.state = StateDateTimePresented
	default:
		if s.state == StateSelectionPresented || s.state == StateDateTimePresented {
			s.state = StateIdle
		}
	}
	return s.Panel()
}

// Reset returns to a fresh conversation for the same user: the transcript
// holds only the greeting, the action and any panel are cleared, and the
// workflow identifiers are forgotten so the next reply starts a new
// conversation. A reply still in flight is dropped when it lands.
func (s *Session) Reset() {
	s.generation++
	s.action = ""
	s.state = StateIdle
	s.identity.SessionID = WriteOnce{}
	s.identity.ConversationID = WriteOnce{}
	s.transcript = s.initialTranscript()
}
