package webchat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/pawcare-booking-chat/internal/contact"
	"github.com/wolfman30/pawcare-booking-chat/internal/observability/metrics"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

func validContact() contact.Info {
	return contact.Info{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(ttl time.Duration, clock *fakeClock) *Registry {
	return NewRegistry(func() *orchestrator.Orchestrator {
		return orchestrator.New(&mockSender{}, logging.Discard())
	}, ttl,
		WithRegistryClock(clock.Now),
		WithRegistryLogger(logging.Discard()),
		WithRegistryMetrics(metrics.NewBookingMetrics(prometheus.NewRegistry())),
	)
}

func TestRegistryCreateGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	r := newTestRegistry(time.Hour, clock)

	a := r.Create()
	b := r.Create()
	assert.NotEqual(t, a.UserID(), b.UserID())
	assert.Equal(t, 2, r.Len())

	got, ok := r.Get(a.UserID())
	require.True(t, ok)
	assert.Same(t, a, got)

	r.Remove(a.UserID())
	_, ok = r.Get(a.UserID())
	assert.False(t, ok)
}

func TestRegistrySweepEvictsIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	r := newTestRegistry(time.Hour, clock)

	idle := r.Create()
	active := r.Create()

	clock.Advance(45 * time.Minute)
	_, ok := r.Get(active.UserID())
	require.True(t, ok)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	_, ok = r.Get(idle.UserID())
	assert.False(t, ok)
	_, ok = r.Get(active.UserID())
	assert.True(t, ok)
}

func TestRegistryZeroTTLNeverEvicts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	r := newTestRegistry(0, clock)
	r.Create()
	clock.Advance(1000 * time.Hour)
	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, r.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx, time.Millisecond)
}
