package webchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/pawcare-booking-chat/internal/action"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"golang.org/x/net/websocket"
)

// InboundEvent is what the renderer sends over the socket.
type InboundEvent struct {
	// Type is one of: ping, action, message, click, submit, cancel,
	// datetime, datetime_cancel, reset.
	Type     string           `json:"type"`
	Action   string           `json:"action,omitempty"`
	Text     string           `json:"text,omitempty"`
	Name     string           `json:"name,omitempty"`
	DateTime *DateTimeRequest `json:"datetime,omitempty"`
}

// OutboundEvent is what the renderer receives.
type OutboundEvent struct {
	// Type is one of: pong, typing, snapshot, error.
	Type     string                 `json:"type"`
	Error    string                 `json:"error,omitempty"`
	Snapshot *orchestrator.Snapshot `json:"snapshot,omitempty"`
}

// HandleWebSocket upgrades to WebSocket and drives one conversation with
// events. Every processed event is answered with a snapshot or an error.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	orch, ok := h.registry.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, errUnknownSession.Error())
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, userID, orch)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, userID string, orch *orchestrator.Orchestrator) {
	snap := orch.Snapshot()
	_ = websocket.JSON.Send(conn, OutboundEvent{Type: "snapshot", Snapshot: &snap})
	h.logger.Info("webchat: connection opened", "user_id", userID)

	for {
		var ev InboundEvent
		if err := websocket.JSON.Receive(conn, &ev); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", userID, "error", err)
			return
		}
		if ev.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundEvent{Type: "pong"})
			continue
		}
		// Keep the conversation alive while the socket is in use.
		if _, ok := h.registry.Get(userID); !ok {
			_ = websocket.JSON.Send(conn, OutboundEvent{Type: "error", Error: errUnknownSession.Error()})
			return
		}
		if sendsMessage(ev.Type) {
			_ = websocket.JSON.Send(conn, OutboundEvent{Type: "typing"})
		}

		snap, err := h.dispatch(ctx, orch, ev)
		if err != nil {
			_ = websocket.JSON.Send(conn, OutboundEvent{Type: "error", Error: err.Error(), Snapshot: &snap})
			continue
		}
		_ = websocket.JSON.Send(conn, OutboundEvent{Type: "snapshot", Snapshot: &snap})
	}
}

var errDateTimeRequired = errors.New("webchat: datetime payload required")

func (h *Handler) dispatch(ctx context.Context, orch *orchestrator.Orchestrator, ev InboundEvent) (orchestrator.Snapshot, error) {
	switch ev.Type {
	case "action":
		a, err := action.Parse(ev.Action)
		if err != nil {
			return orch.Snapshot(), err
		}
		return orch.ChooseAction(ctx, a)
	case "message":
		return orch.SendText(ctx, ev.Text)
	case "click":
		return orch.Click(ctx, ev.Name)
	case "submit":
		return orch.SubmitSelection(ctx)
	case "cancel":
		return orch.CancelSelection(), nil
	case "datetime":
		if ev.DateTime == nil {
			return orch.Snapshot(), errDateTimeRequired
		}
		sel, err := ev.DateTime.Selection()
		if err != nil {
			return orch.Snapshot(), err
		}
		return orch.SubmitDateTime(ctx, sel)
	case "datetime_cancel":
		return orch.CancelDateTime(), nil
	case "reset":
		return orch.Reset(ctx), nil
	default:
		return orch.Snapshot(), fmt.Errorf("webchat: unknown event type %q", ev.Type)
	}
}

func sendsMessage(eventType string) bool {
	switch eventType {
	case "action", "message", "submit", "datetime":
		return true
	}
	return false
}
