package webchat

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

// Factory builds a fresh conversation.
type Factory func() *orchestrator.Orchestrator

type entry struct {
	orch     *orchestrator.Orchestrator
	lastSeen time.Time
}

// Registry maps user ids to live conversations and forgets the ones left idle
// longer than the configured TTL.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics reports the number of held conversations.
func WithRegistryMetrics(m *metrics.BookingMetrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryLogger sets a custom logger.
func WithRegistryLogger(logger *logging.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistryClock overrides the time source used for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry. A ttl of zero disables eviction.
func NewRegistry(factory Factory, ttl time.Duration, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts and registers a new conversation.
func (r *Registry) Create() *orchestrator.Orchestrator {
	orch := r.factory()
	userID := orch.UserID()

	r.mu.Lock()
	r.sessions[userID] = &entry{orch: orch, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	r.logger.Info("webchat: conversation created", "user_id", userID)
	return orch
}

// Get returns the conversation for userID and marks it as used.
func (r *Registry) Get(userID string) (*orchestrator.Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.orch, true
}

// Remove forgets userID.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetActiveSessions(n)
}

// Len returns the number of held conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts idle conversations and returns how many were removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	removed := 0
	for userID, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, userID)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if removed > 0 {
		r.metrics.SetActiveSessions(n)
		r.logger.Info("webchat: evicted idle conversations", "count", removed, "remaining", n)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = r.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
