package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/pawcare-booking-chat/internal/directive"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/internal/session"
	"github.com/wolfman30/pawcare-booking-chat/internal/webhook"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
	"golang.org/x/net/websocket"
)

// mockSender answers every send with the next queued reply, or "ok".
type mockSender struct {
	mu       sync.Mutex
	replies  []string
	requests []webhook.Request
}

func (m *mockSender) Send(_ context.Context, req webhook.Request) (webhook.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return webhook.Response{Message: "ok", SessionID: "s-1"}, nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return webhook.Response{Message: reply, SessionID: "s-1"}, nil
}

func (m *mockSender) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.requests))
	for _, r := range m.requests {
		out = append(out, r.Text)
	}
	return out
}

const petListReply = `{"type":"pet_list","intro":"Which pets?","items":[{"name":"Biscuit","type":"Dog"},{"name":"Mochi","type":"Cat"}]}`

func newTestServer(t *testing.T, sender *mockSender) (*httptest.Server, *Registry) {
	t.Helper()
	store := session.NewMemoryTranscriptStore(0)
	registry := NewRegistry(func() *orchestrator.Orchestrator {
		return orchestrator.New(sender, logging.Discard(), orchestrator.WithTranscriptStore(store))
	}, time.Hour, WithRegistryLogger(logging.Discard()))

	r := chi.NewRouter()
	r.Mount("/chat", NewHandler(registry, logging.Discard()).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/chat/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userID, _ := body["user_id"].(string)
	require.NotEmpty(t, userID)
	return userID
}

func TestCreateAndGetSession(t *testing.T) {
	srv, registry := newTestServer(t, &mockSender{})
	userID := createSession(t, srv)
	assert.Equal(t, 1, registry.Len())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/chat/sessions/"+userID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, body["user_id"])
	assert.Equal(t, "idle", body["state"])
	actions, _ := body["actions"].([]any)
	assert.Len(t, actions, 5)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/chat/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActionRequiresContact(t *testing.T) {
	sender := &mockSender{}
	srv, _ := newTestServer(t, sender)
	userID := createSession(t, srv)
	base := srv.URL + "/chat/sessions/" + userID

	resp, _ := doJSON(t, http.MethodPost, base+"/actions", map[string]string{"action": "new_booking"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "email": "bad"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields, _ := body["fields"].(map[string]any)
	assert.Contains(t, fields, "lastName")
	assert.Contains(t, fields, "email")

	resp, _ = doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/actions", map[string]string{"action": "refund"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/actions", map[string]string{"action": "new_booking"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new_booking", body["action"])
	assert.Equal(t, "s-1", body["session_id"])
	assert.Len(t, sender.texts(), 1)
}

func TestSelectionEndpoints(t *testing.T) {
	sender := &mockSender{replies: []string{petListReply, "Great"}}
	srv, _ := newTestServer(t, sender)
	userID := createSession(t, srv)
	base := srv.URL + "/chat/sessions/" + userID

	resp, _ := doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, base+"/messages", map[string]string{"text": "book for my pets"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "selection", body["panel"])
	assert.Equal(t, string(directive.KindPet), body["directive"])

	// Empty submission is refused with the snapshot unchanged.
	resp, body = doJSON(t, http.MethodPost, base+"/selection/submit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "selection", body["panel"])
	assert.Len(t, sender.texts(), 1)

	resp, _ = doJSON(t, http.MethodPost, base+"/selection/click", map[string]string{"name": "Rex"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/selection/click", map[string]string{"name": "Mochi"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	options, _ := body["options"].([]any)
	require.Len(t, options, 2)

	resp, body = doJSON(t, http.MethodPost, base+"/selection/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "none", body["panel"])
	assert.Equal(t, []string{"book for my pets", "Mochi"}, sender.texts())

	resp, _ = doJSON(t, http.MethodPost, base+"/selection/click", map[string]string{"name": "Mochi"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDateTimeEndpoints(t *testing.T) {
	sender := &mockSender{replies: []string{
		`{"type":"text_only","intro":"Please provide the date and time for your booking."}`,
	}}
	srv, _ := newTestServer(t, sender)
	userID := createSession(t, srv)
	base := srv.URL + "/chat/sessions/" + userID

	doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"})
	_, body := doJSON(t, http.MethodPost, base+"/messages", map[string]string{"text": "Full Groom"})
	require.Equal(t, "datetime", body["panel"])

	resp, _ := doJSON(t, http.MethodPost, base+"/datetime", map[string]string{"date": "2024-03-05", "time": "2:30 PM"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/datetime", map[string]string{
		"date": "2024-03-05", "time": "14:30", "timezone": "America/New_York",
		"recurrence": "weekly", "recurrenceEnd": "2024-04-02",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	texts := sender.texts()
	assert.Equal(t, "Date: 3/5/2024, Time: 2:30 PM, Timezone: America/New York, Recurring: weekly, Ends on: 4/2/2024", texts[len(texts)-1])
}

func TestCancelAndReset(t *testing.T) {
	sender := &mockSender{replies: []string{petListReply}}
	srv, _ := newTestServer(t, sender)
	userID := createSession(t, srv)
	base := srv.URL + "/chat/sessions/" + userID

	doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"})
	doJSON(t, http.MethodPost, base+"/messages", map[string]string{"text": "pets"})

	resp, body := doJSON(t, http.MethodPost, base+"/selection/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "none", body["panel"])

	resp, body = doJSON(t, http.MethodPost, base+"/datetime/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "none", body["panel"])

	resp, body = doJSON(t, http.MethodPost, base+"/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, body["user_id"])
	assert.Nil(t, body["session_id"])
	transcript, _ := body["transcript"].([]any)
	assert.Len(t, transcript, 1)
}

func TestHistoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &mockSender{replies: []string{"Hello Ada"}})
	userID := createSession(t, srv)
	base := srv.URL + "/chat/sessions/" + userID

	doJSON(t, http.MethodPut, base+"/contact", map[string]string{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"})
	doJSON(t, http.MethodPost, base+"/messages", map[string]string{"text": "hi"})

	resp, body := doJSON(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs, _ := body["messages"].([]any)
	assert.Len(t, msgs, 3)

	resp, body = doJSON(t, http.MethodGet, base+"/history?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs, _ = body["messages"].([]any)
	require.Len(t, msgs, 1)
	last, _ := msgs[0].(map[string]any)
	assert.Equal(t, "Hello Ada", last["text"])

	resp, _ = doJSON(t, http.MethodGet, base+"/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, &mockSender{})
	userID := createSession(t, srv)
	resp, err := http.Post(srv.URL+"/chat/sessions/"+userID+"/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketEvents(t *testing.T) {
	sender := &mockSender{replies: []string{petListReply}}
	srv, registry := newTestServer(t, sender)
	userID := createSession(t, srv)
	orch, ok := registry.Get(userID)
	require.True(t, ok)
	require.NoError(t, orch.SetContact(validContact()))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/sessions/" + userID + "/ws"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	var ev OutboundEvent
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.Equal(t, "snapshot", ev.Type)
	assert.Equal(t, userID, ev.Snapshot.UserID)

	require.NoError(t, websocket.JSON.Send(conn, InboundEvent{Type: "ping"}))
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, "pong", ev.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundEvent{Type: "message", Text: "pets please"}))
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, "typing", ev.Type)
	ev = OutboundEvent{}
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.Equal(t, "snapshot", ev.Type)
	assert.Equal(t, session.PanelSelection, ev.Snapshot.Panel)

	require.NoError(t, websocket.JSON.Send(conn, InboundEvent{Type: "bogus"}))
	ev = OutboundEvent{}
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, "error", ev.Type)
}
