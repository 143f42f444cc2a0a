// Package webhook provides a client for the booking workflow's chat webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/pawcare-booking-chat/internal/action"
	"github.com/wolfman30/pawcare-booking-chat/internal/contact"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxReplyBytes = 1 << 20

// ErrNoURL is returned when the client was built without a webhook URL.
var ErrNoURL = errors.New("webhook: url not configured")

// Request is one customer message bound for the workflow.
type Request struct {
	Text           string
	UserID         string
	Timestamp      time.Time
	Contact        contact.Info
	Action         action.Action
	SessionID      string
	ConversationID string
}

// Response is the workflow's answer.
type Response struct {
	Message        string `json:"message"`
	HTMLMessage    string `json:"htmlMessage,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Sender delivers a message and waits for the reply.
type Sender interface {
	Send(ctx context.Context, req Request) (Response, error)
}

type envelope struct {
	Message outboundMessage `json:"message"`
}

type outboundMessage struct {
	Text           string   `json:"text"`
	UserID         string   `json:"userId"`
	Timestamp      string   `json:"timestamp"`
	UserInfo       userInfo `json:"userInfo"`
	SessionID      string   `json:"sessionId,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
}

type userInfo struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	SelectedAction string `json:"selectedAction"`
}

// Client POSTs chat envelopes to the workflow webhook.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
	tracer     trace.Tracer
	validator  *replyValidator
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each call. Zero keeps the HTTP client's own timeout. The
// client passed to WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call outcomes and latency.
func WithMetrics(m *metrics.BookingMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a webhook client. The default HTTP client has no timeout;
// the workflow may take as long as it needs to answer.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{},
		logger:     logging.Default(),
		tracer:     otel.Tracer("pawcare.internal.webhook"),
		validator:  mustReplyValidator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		bounded := *c.httpClient
		bounded.Timeout = c.timeout
		c.httpClient = &bounded
	}
	return c
}

// Send posts req and decodes the reply. Non-2xx statuses and replies without
// a message are errors. There is no retry.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if c.url == "" {
		return Response{}, ErrNoURL
	}

	ctx, span := c.tracer.Start(ctx, "webhook.send", trace.WithAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.send(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("webhook call failed",
			"user_id", req.UserID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	} else {
		c.logger.Debug("webhook reply received",
			"user_id", req.UserID,
			"session_id", resp.SessionID,
			"conversation_id", resp.ConversationID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	c.metrics.ObserveWebhook(status, time.Since(start).Seconds())
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(newEnvelope(req))
	if err != nil {
		return Response{}, fmt.Errorf("webhook: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("webhook: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("webhook: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxReplyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("webhook: read reply: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return Response{}, fmt.Errorf("webhook: status %d: %s", httpResp.StatusCode, truncate(string(raw), 200))
	}

	if err := c.validator.validate(raw); err != nil {
		return Response{}, err
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("webhook: decode reply: %w", err)
	}
	return out, nil
}

func newEnvelope(req Request) envelope {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	info := req.Contact.Normalize()
	return envelope{Message: outboundMessage{
		Text:      req.Text,
		UserID:    req.UserID,
		Timestamp: ts.UTC().Format(time.RFC3339),
		UserInfo: userInfo{
			FirstName:      info.FirstName,
			LastName:       info.LastName,
			Email:          info.Email,
			SelectedAction: string(req.Action),
		},
		SessionID:      req.SessionID,
		ConversationID: req.ConversationID,
	}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
