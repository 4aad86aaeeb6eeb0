package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagwatch/dagwatch/core"
)

type testLogger struct{}

func (testLogger) Criticalf(string, ...interface{}) {}
func (testLogger) Debugf(string, ...interface{})    {}
func (testLogger) Errorf(string, ...interface{})    {}
func (testLogger) Noticef(string, ...interface{})   {}
func (testLogger) Warningf(string, ...interface{})  {}

type waitResult struct {
	notification *pgconn.Notification
	err          error
}

// fakeNotifyConn scripts WaitForNotification results through a channel.
type fakeNotifyConn struct {
	mu      sync.Mutex
	results chan waitResult
	execs   []string
	closed  bool
}

func newFakeNotifyConn() *fakeNotifyConn {
	return &fakeNotifyConn{results: make(chan waitResult, 8)}
}

func (c *fakeNotifyConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (c *fakeNotifyConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-c.results:
		return res.notification, res.err
	}
}

func (c *fakeNotifyConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeNotifyConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeNotifyConn) pushPayload(payload string) {
	c.results <- waitResult{notification: &pgconn.Notification{Channel: settingsChannel, Payload: payload}}
}

func (c *fakeNotifyConn) pushError(err error) {
	c.results <- waitResult{err: err}
}

type listenerFixture struct {
	listener *SettingsListener
	cache    *core.SettingsCache
	clock    *core.FakeClock

	mu    sync.Mutex
	conns []*fakeNotifyConn
}

func setupListener(t *testing.T) *listenerFixture {
	t.Helper()

	f := &listenerFixture{
		cache: core.NewSettingsCache(core.Settings{MaxStageDurationHours: 24}),
		clock: core.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)),
	}
	f.listener = &SettingsListener{
		cache:  f.cache,
		logger: testLogger{},
		clock:  f.clock,
		acquire: func(context.Context) (notifyConn, error) {
			conn := newFakeNotifyConn()
			f.mu.Lock()
			f.conns = append(f.conns, conn)
			f.mu.Unlock()
			return conn, nil
		},
	}
	return f
}

func (f *listenerFixture) conn(t *testing.T, i int) *fakeNotifyConn {
	t.Helper()
	var conn *fakeNotifyConn
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.conns) > i {
			conn = f.conns[i]
			return true
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "listener never acquired connection %d", i)
	return conn
}

const settingsPayload = `{
	"success_retention_days": 14,
	"failure_retention_days": 60,
	"maintenance_mode": true,
	"default_channels": "oncall",
	"error_channels": "ops",
	"max_stage_duration_hours": 48,
	"updated_at": "2024-03-15T12:00:00Z"
}`

func TestListenerAppliesNotification(t *testing.T) {
	f := setupListener(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.listener.Run(ctx) }()

	conn := f.conn(t, 0)
	conn.pushPayload(settingsPayload)

	require.Eventually(t, func() bool {
		return f.cache.Snapshot().MaxStageDurationHours == 48
	}, 2*time.Second, 5*time.Millisecond)

	snap := f.cache.Snapshot()
	assert.True(t, snap.MaintenanceMode)
	assert.Equal(t, "ops", snap.ErrorChannels)
	assert.Equal(t, 14, snap.SuccessRetentionDays)
	assert.Equal(t, []string{"LISTEN " + settingsChannel}, conn.execs)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
	assert.True(t, conn.isClosed(), "the subscription connection must be destroyed on exit")
}

func TestListenerSkipsBadPayload(t *testing.T) {
	f := setupListener(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.listener.Run(ctx) }()

	conn := f.conn(t, 0)
	conn.pushPayload(`{not json`)
	conn.pushPayload(settingsPayload)

	require.Eventually(t, func() bool {
		return f.cache.Snapshot().MaxStageDurationHours == 48
	}, 2*time.Second, 5*time.Millisecond, "a malformed payload must not stop the loop")
}

func TestListenerReconnectsAfterFailure(t *testing.T) {
	f := setupListener(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.listener.Run(ctx) }()

	first := f.conn(t, 0)
	first.pushError(errors.New("connection reset"))

	// The failed connection is torn down, never reused, and the next one
	// is only acquired after the full backoff.
	require.Eventually(t, func() bool { return first.isClosed() }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.clock.WaiterCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	f.mu.Lock()
	acquired := len(f.conns)
	f.mu.Unlock()
	assert.Equal(t, 1, acquired)

	f.clock.Advance(reconnectBackoff)

	second := f.conn(t, 1)
	second.pushPayload(settingsPayload)
	require.Eventually(t, func() bool {
		return f.cache.Snapshot().MaxStageDurationHours == 48
	}, 2*time.Second, 5*time.Millisecond)
}
