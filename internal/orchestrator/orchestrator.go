// Package orchestrator drives one booking conversation: it sends customer
// turns to the workflow, classifies each reply and keeps the session and the
// selection accumulator in step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/pawcare-booking-chat/internal/action"
	"github.com/wolfman30/pawcare-booking-chat/internal/compose"
	"github.com/wolfman30/pawcare-booking-chat/internal/contact"
	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/selection"
	"github.com/wolfman30/pawcare-booking-chat/internal/session"
	"github.com/wolfman30/pawcare-booking-chat/internal/webhook"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

// Default transcript texts.
const (
	DefaultGreeting = "Hi! I'm the PawCare booking assistant. Pick an option below to get started."
	DefaultApology  = "Sorry, something went wrong while contacting the booking service. Please try again."
)

var (
	// ErrInvalidContact is returned for any send while the contact form is
	// incomplete.
	ErrInvalidContact = errors.New("orchestrator: contact info incomplete")
	// ErrEmptyMessage is returned when the typed text is blank.
	ErrEmptyMessage = errors.New("orchestrator: message is empty")
	// ErrNoPanel is returned for selection or scheduling events when the
	// matching panel is not presented.
	ErrNoPanel = errors.New("orchestrator: panel not presented")
)

// Snapshot is a read-only view of the conversation for renderers.
type Snapshot struct {
	UserID         string                 `json:"user_id"`
	SessionID      string                 `json:"session_id,omitempty"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Action         action.Action          `json:"action,omitempty"`
	State          session.State          `json:"state"`
	Panel          session.Panel          `json:"panel"`
	Busy           bool                   `json:"busy"`
	Directive      directive.Kind         `json:"directive"`
	AllowMultiple  bool                   `json:"allow_multiple"`
	MainService    string                 `json:"main_service,omitempty"`
	Options        []selection.OptionView `json:"options,omitempty"`
	Actions        []action.Definition    `json:"actions,omitempty"`
	Transcript     []session.Message      `json:"transcript"`
}

// Orchestrator owns one conversation. Events are serialized by a mutex; the
// lock is released while a webhook call is in flight so concurrent events see
// the busy state instead of blocking.
type Orchestrator struct {
	mu sync.Mutex

	sess       *session.Session
	acc        selection.State
	form       contact.Form
	classifier *directive.Classifier
	sender     webhook.Sender
	store      session.TranscriptStore
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	apology    string

	// unsaved holds transcript entries not yet mirrored to the store, such as
	// the greeting of a fresh conversation.
	unsaved []session.Message
	// lastKind is the directive classified from the previous reply.
	lastKind directive.Kind
}

type options struct {
	greeting    string
	apology     string
	classifier  *directive.Classifier
	store       session.TranscriptStore
	metrics     *metrics.BookingMetrics
	form        contact.Form
	sessionOpts []session.Option
}

// Option configures an Orchestrator.
type Option func(*options)

// WithGreeting overrides the opening assistant message.
func WithGreeting(text string) Option {
	return func(o *options) { o.greeting = text }
}

// WithApology overrides the message appended when a send fails.
func WithApology(text string) Option {
	return func(o *options) {
		if strings.TrimSpace(text) != "" {
			o.apology = text
		}
	}
}

// WithClassifier sets the reply classifier.
func WithClassifier(c *directive.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithTranscriptStore mirrors every transcript entry to store.
func WithTranscriptStore(store session.TranscriptStore) Option {
	return func(o *options) { o.store = store }
}

// WithMetrics records reply and panel counters.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithContactForm sets the contact collaborator. Without one every send is
// refused until SetContact is called.
func WithContactForm(form contact.Form) Option {
	return func(o *options) {
		if form != nil {
			o.form = form
		}
	}
}

// WithSessionOptions passes options through to the underlying session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// New starts a conversation that talks to sender.
func New(sender webhook.Sender, logger *logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	cfg := options{
		greeting:   DefaultGreeting,
		apology:    DefaultApology,
		classifier: directive.NewClassifier(),
		form:       contact.Static{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sess := session.New(cfg.greeting, cfg.sessionOpts...)
	return &Orchestrator{
		sess:       sess,
		acc:        selection.New(directive.None{}),
		form:       cfg.form,
		classifier: cfg.classifier,
		sender:     sender,
		store:      cfg.store,
		metrics:    cfg.metrics,
		logger:     logger.With("user_id", sess.UserID()),
		apology:    cfg.apology,
		unsaved:    sess.Transcript(),
	}
}

// UserID returns the conversation's stable user id.
func (o *Orchestrator) UserID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess.UserID()
}

// SetContact replaces the contact form values.
func (o *Orchestrator) SetContact(info contact.Info) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContact, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.form = contact.Static(info.Normalize())
	return nil
}

// ChooseAction picks one of the initial actions and sends its opening
// message.
func (o *Orchestrator) ChooseAction(ctx context.Context, a action.Action) (Snapshot, error) {
	def, ok := action.Lookup(a)
	if !ok {
		return o.Snapshot(), fmt.Errorf("orchestrator: unknown action %q", a)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.form.Valid() {
		return o.snapshotLocked(), ErrInvalidContact
	}
	if err := o.sess.ChooseAction(def.Action); err != nil {
		return o.snapshotLocked(), err
	}
	o.logger.Info("action chosen", "action", string(def.Action))
	o.sendLocked(ctx, def.Message)
	return o.snapshotLocked(), nil
}

// SendText sends a freely typed message. Any presented panel is dismissed.
func (o *Orchestrator) SendText(ctx context.Context, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.Snapshot(), ErrEmptyMessage
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkSendable(); err != nil {
		return o.snapshotLocked(), err
	}
	o.sendLocked(ctx, text)
	return o.snapshotLocked(), nil
}

// Click toggles or picks an option on the presented selection panel. Picking
// a professional submits immediately.
func (o *Orchestrator) Click(ctx context.Context, name string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Panel() != session.PanelSelection {
		return o.snapshotLocked(), ErrNoPanel
	}
	next, outcome, err := o.acc.Click(name)
	if err != nil {
		return o.snapshotLocked(), err
	}
	o.acc = next
	if outcome.Submit {
		return o.submitLocked(ctx)
	}
	return o.snapshotLocked(), nil
}

// SubmitSelection composes and sends the accumulated selection. An empty
// selection is refused silently: nothing is sent and the panel stays up.
func (o *Orchestrator) SubmitSelection(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Panel() != session.PanelSelection {
		return o.snapshotLocked(), ErrNoPanel
	}
	return o.submitLocked(ctx)
}

func (o *Orchestrator) submitLocked(ctx context.Context) (Snapshot, error) {
	text, err := compose.Selection(o.acc)
	if errors.Is(err, compose.ErrEmptySelection) {
		o.metrics.ObserveRefused("empty_selection")
		o.logger.Debug("empty selection refused", "directive", string(o.acc.Directive().Kind()))
		return o.snapshotLocked(), nil
	}
	if err != nil {
		return o.snapshotLocked(), err
	}
	if err := o.checkSendable(); err != nil {
		return o.snapshotLocked(), err
	}
	o.sendLocked(ctx, text)
	return o.snapshotLocked(), nil
}

// CancelSelection dismisses the selection panel without sending.
func (o *Orchestrator) CancelSelection() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Panel() == session.PanelSelection {
		o.dismissLocked()
	}
	return o.snapshotLocked()
}

// SubmitDateTime composes and sends a completed scheduling form.
func (o *Orchestrator) SubmitDateTime(ctx context.Context, sel compose.DateTimeSelection) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Panel() != session.PanelDateTime {
		return o.snapshotLocked(), ErrNoPanel
	}
	text, err := compose.DateTime(sel)
	if err != nil {
		return o.snapshotLocked(), err
	}
	if err := o.checkSendable(); err != nil {
		return o.snapshotLocked(), err
	}
	o.sendLocked(ctx, text)
	return o.snapshotLocked(), nil
}

// CancelDateTime dismisses the scheduling panel without sending.
func (o *Orchestrator) CancelDateTime() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Panel() == session.PanelDateTime {
		o.dismissLocked()
	}
	return o.snapshotLocked()
}

// Reset starts over for the same user. A reply still in flight is discarded
// when it arrives.
func (o *Orchestrator) Reset(ctx context.Context) Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sess.Reset()
	o.acc = selection.New(directive.None{})
	o.lastKind = directive.KindNone
	o.unsaved = o.sess.Transcript()
	if o.store != nil {
		if err := o.store.Delete(ctx, o.sess.UserID()); err != nil {
			o.logger.Warn("failed to clear stored transcript", "error", err)
		}
	}
	o.logger.Info("conversation reset")
	return o.snapshotLocked()
}

// History returns up to limit of the most recent transcript entries, from the
// transcript store when one is configured.
func (o *Orchestrator) History(ctx context.Context, limit int64) ([]session.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store == nil || len(o.unsaved) > 0 {
		msgs := o.sess.Transcript()
		if limit > 0 && int64(len(msgs)) > limit {
			msgs = msgs[int64(len(msgs))-limit:]
		}
		return msgs, nil
	}
	msgs, err := o.store.List(ctx, o.sess.UserID(), limit)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load history: %w", err)
	}
	return msgs, nil
}

// Snapshot returns the current view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	id := o.sess.Identity()
	snap := Snapshot{
		UserID:         id.UserID,
		SessionID:      id.SessionID.String(),
		ConversationID: id.ConversationID.String(),
		Action:         o.sess.Action(),
		State:          o.sess.State(),
		Panel:          o.sess.Panel(),
		Busy:           o.sess.State() == session.StateAwaitingReply,
		Directive:      directive.KindNone,
		Transcript:     o.sess.Transcript(),
	}
	if snap.Panel == session.PanelSelection {
		d := o.acc.Directive()
		snap.Directive = d.Kind()
		snap.AllowMultiple = d.AllowMultiple()
		snap.MainService = o.acc.MainService()
		snap.Options = o.acc.Views()
	}
	if snap.State == session.StateIdle && snap.Action == "" {
		snap.Actions = action.All()
	}
	return snap
}

func (o *Orchestrator) checkSendable() error {
	if !o.form.Valid() {
		return ErrInvalidContact
	}
	if o.sess.State() == session.StateAwaitingReply {
		return session.ErrBusy
	}
	return nil
}

func (o *Orchestrator) dismissLocked() {
	o.sess.Present(session.PanelNone)
	o.acc = selection.New(directive.None{})
}

// sendLocked runs one turn. It must be called with o.mu held; the lock is
// released for the duration of the webhook call and held again on return.
// Transport failures end in the apology message, never in an error.
func (o *Orchestrator) sendLocked(ctx context.Context, text string) {
	prior := o.sess.LastAssistantText()
	ticket, sent, err := o.sess.BeginSend(text)
	if err != nil {
		return
	}
	o.acc = selection.New(directive.None{})
	o.persistLocked(ctx, sent)

	id := o.sess.Identity()
	req := webhook.Request{
		Text:           text,
		UserID:         id.UserID,
		Timestamp:      sent.At,
		Contact:        o.form.Values(),
		Action:         o.sess.Action(),
		SessionID:      id.SessionID.String(),
		ConversationID: id.ConversationID.String(),
	}
	turn := directive.Turn{Action: o.sess.Action(), PriorReply: prior, PriorKind: o.lastKind}

	o.mu.Unlock()
	resp, sendErr := o.sender.Send(ctx, req)
	o.mu.Lock()

	if sendErr != nil {
		msg, err := o.sess.FailReply(ticket, o.apology)
		if err != nil {
			o.logger.Debug("dropping failed reply", "error", err)
			return
		}
		o.logger.Warn("booking workflow unavailable", "error", sendErr)
		o.lastKind = directive.KindNone
		o.persistLocked(ctx, msg)
		return
	}

	res := o.classifier.Classify(resp.Message, turn)
	msg, err := o.sess.ApplyReply(ticket, session.Reply{
		Text:           res.Display,
		HTML:           resp.HTMLMessage,
		SessionID:      resp.SessionID,
		ConversationID: resp.ConversationID,
	})
	switch {
	case errors.Is(err, session.ErrStaleTicket), errors.Is(err, session.ErrNotAwaiting):
		o.logger.Debug("dropping stale reply", "error", err)
		return
	case errors.Is(err, session.ErrIdentifierConflict):
		o.metrics.ObserveIdentifierConflict()
		o.logger.Warn("workflow identifiers changed mid-conversation",
			"session_id", resp.SessionID,
			"conversation_id", resp.ConversationID,
		)
	}
	o.persistLocked(ctx, msg)
	o.present(res)
}

func (o *Orchestrator) present(res directive.Result) {
	kind := res.Directive.Kind()
	o.lastKind = kind
	o.metrics.ObserveReply(string(kind))

	want := session.PanelNone
	switch {
	case res.ShowDateTimePanel:
		want = session.PanelDateTime
	case !directive.IsNone(res.Directive):
		want = session.PanelSelection
	}

	got := o.sess.Present(want)
	if got == session.PanelSelection {
		o.acc = selection.New(res.Directive)
	}
	if got != session.PanelNone {
		o.metrics.ObservePanel(string(got))
	}
	o.logger.Info("reply classified",
		"directive", string(kind),
		"type", res.Type,
		"panel", string(got),
		"session_id", o.sess.Identity().SessionID.String(),
	)
}

func (o *Orchestrator) persistLocked(ctx context.Context, msgs ...session.Message) {
	if o.store == nil {
		return
	}
	batch := append(o.unsaved, msgs...)
	o.unsaved = nil
	userID := o.sess.UserID()
	for i, msg := range batch {
		if err := o.store.Append(ctx, userID, msg); err != nil {
			o.logger.Warn("failed to mirror transcript entry", "error", err, "pending", len(batch)-i)
			o.unsaved = append([]session.Message(nil), batch[i:]...)
			return
		}
	}
}
