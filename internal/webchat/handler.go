// Package webchat exposes booking conversations to a thin renderer over HTTP
// and WebSocket.
package webchat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/wolfman30/pawcare-booking-chat/internal/action"
	"github.com/wolfman30/pawcare-booking-chat/internal/compose"
	"github.com/wolfman30/pawcare-booking-chat/internal/contact"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/internal/selection"
	"github.com/wolfman30/pawcare-booking-chat/internal/session"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

const (
	defaultHistoryLimit = 100
	maxBodyBytes        = 64 << 10
)

var errUnknownSession = errors.New("webchat: unknown session")

// Handler serves the chat API.
type Handler struct {
	registry *Registry
	logger   *logging.Logger
}

// NewHandler creates a chat handler over registry.
func NewHandler(registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{registry: registry, logger: logger}
}

// Routes returns the chat routes, to be mounted under /chat.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{userID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/history", h.GetHistory)
		r.Get("/ws", h.HandleWebSocket)
		r.Put("/contact", h.PutContact)
		r.Post("/actions", h.PostAction)
		r.Post("/messages", h.PostMessage)
		r.Post("/selection/click", h.PostClick)
		r.Post("/selection/submit", h.PostSubmitSelection)
		r.Post("/selection/cancel", h.PostCancelSelection)
		r.Post("/datetime", h.PostDateTime)
		r.Post("/datetime/cancel", h.PostCancelDateTime)
		r.Post("/reset", h.PostReset)
	})
	return r
}

// DateTimeRequest is the scheduling form as posted by the renderer.
type DateTimeRequest struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Timezone      string `json:"timezone"`
	Recurrence    string `json:"recurrence,omitempty"`
	RecurrenceEnd string `json:"recurrenceEnd,omitempty"`
	MultiDayEnd   string `json:"multiDayEnd,omitempty"`
}

// Selection converts the form into a composable selection.
func (r DateTimeRequest) Selection() (compose.DateTimeSelection, error) {
	var sel compose.DateTimeSelection
	if strings.TrimSpace(r.Date) == "" {
		return sel, compose.ErrMissingDate
	}
	date, err := compose.ParseDate(r.Date)
	if err != nil {
		return sel, err
	}
	if strings.TrimSpace(r.Time) == "" {
		return sel, compose.ErrMissingTime
	}
	tod, err := compose.ParseTimeOfDay(r.Time)
	if err != nil {
		return sel, err
	}
	sel = compose.DateTimeSelection{Date: date, Time: tod, Timezone: r.Timezone}

	if freq := strings.TrimSpace(r.Recurrence); freq != "" {
		sel.Recurrence = &compose.Recurrence{Frequency: freq}
		if strings.TrimSpace(r.RecurrenceEnd) != "" {
			end, err := compose.ParseDate(r.RecurrenceEnd)
			if err != nil {
				return sel, err
			}
			sel.Recurrence.EndDate = &end
		}
	}
	if strings.TrimSpace(r.MultiDayEnd) != "" {
		end, err := compose.ParseDate(r.MultiDayEnd)
		if err != nil {
			return sel, err
		}
		sel.MultiDay = &compose.MultiDay{EndDate: end}
	}
	return sel, sel.Validate()
}

// CreateSession starts a conversation and returns its snapshot.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	orch := h.registry.Create()
	writeJSON(w, http.StatusCreated, orch.Snapshot())
}

// GetSession returns the current snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

// GetHistory returns the stored transcript. ?limit=N keeps the newest N.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	msgs, err := orch.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// PutContact replaces the contact form values.
func (h *Handler) PutContact(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var info contact.Info
	if !decode(w, r, &info) {
		return
	}
	if err := orch.SetContact(info); err != nil {
		h.writeFailure(w, err, orch.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

// PostAction picks one of the initial actions.
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := action.Parse(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w)(orch.ChooseAction(r.Context(), a))
}

// PostMessage sends a typed message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w)(orch.SendText(r.Context(), req.Text))
}

// PostClick clicks an option on the selection panel.
func (h *Handler) PostClick(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respond(w)(orch.Click(r.Context(), req.Name))
}

// PostSubmitSelection sends the accumulated selection.
func (h *Handler) PostSubmitSelection(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w)(orch.SubmitSelection(r.Context()))
}

// PostCancelSelection dismisses the selection panel.
func (h *Handler) PostCancelSelection(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.CancelSelection())
}

// PostDateTime sends the scheduling form.
func (h *Handler) PostDateTime(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req DateTimeRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := req.Selection()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w)(orch.SubmitDateTime(r.Context(), sel))
}

// PostCancelDateTime dismisses the scheduling panel.
func (h *Handler) PostCancelDateTime(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.CancelDateTime())
}

// PostReset starts the conversation over for the same user.
func (h *Handler) PostReset(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Reset(r.Context()))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*orchestrator.Orchestrator, bool) {
	userID := chi.URLParam(r, "userID")
	orch, ok := h.registry.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownSession.Error())
		return nil, false
	}
	return orch, true
}

func (h *Handler) respond(w http.ResponseWriter) func(orchestrator.Snapshot, error) {
	return func(snap orchestrator.Snapshot, err error) {
		if err != nil {
			h.writeFailure(w, err, snap)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

type errorResponse struct {
	Error    string                 `json:"error"`
	Fields   validation.Errors      `json:"fields,omitempty"`
	Snapshot *orchestrator.Snapshot `json:"snapshot,omitempty"`
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error, snap orchestrator.Snapshot) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Snapshot: &snap}
	var fields validation.Errors
	if errors.As(err, &fields) {
		resp.Fields = fields
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("webchat: request failed", "user_id", snap.UserID, "error", err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidContact):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrBusy), errors.Is(err, orchestrator.ErrNoPanel):
		return http.StatusConflict
	case errors.Is(err, errUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrEmptyMessage),
		errors.Is(err, selection.ErrUnknownOption),
		errors.Is(err, selection.ErrNoDirective),
		errors.Is(err, compose.ErrMissingDate),
		errors.Is(err, compose.ErrMissingTime),
		errors.Is(err, compose.ErrMissingTimezone),
		errors.Is(err, compose.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
