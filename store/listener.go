package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dagwatch/dagwatch/core"
)

const (
	settingsChannel  = "settings_update"
	reconnectBackoff = 5 * time.Second
)

// notifyConn is the slice of a Postgres connection the listener uses.
// *pgx.Conn satisfies it.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// SettingsListener keeps a SettingsCache in sync with the database via
// LISTEN/NOTIFY on the settings_update channel. The row trigger sends the
// full settings record as the notification payload.
type SettingsListener struct {
	cache   *core.SettingsCache
	logger  core.Logger
	clock   core.Clock
	acquire func(ctx context.Context) (notifyConn, error)
}

func NewSettingsListener(store *Store, cache *core.SettingsCache, logger core.Logger, clock core.Clock) *SettingsListener {
	return &SettingsListener{
		cache:  cache,
		logger: logger,
		clock:  clock,
		acquire: func(ctx context.Context) (notifyConn, error) {
			conn, err := store.pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			// A connection carrying a LISTEN subscription must never go
			// back to the pool; hijacking removes it for good.
			return conn.Hijack(), nil
		},
	}
}

// Run blocks until the context is cancelled, reconnecting with a fixed
// backoff after any listen or transport failure.
func (l *SettingsListener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Errorf("settings listener error: %v, reconnecting in %s", err, reconnectBackoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(reconnectBackoff):
		}
	}
}

func (l *SettingsListener) listen(ctx context.Context) error {
	conn, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "LISTEN "+settingsChannel); err != nil {
		return err
	}
	l.logger.Noticef("listening for settings updates")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var payload struct {
			SuccessRetentionDays  int    `json:"success_retention_days"`
			FailureRetentionDays  int    `json:"failure_retention_days"`
			MaintenanceMode       bool   `json:"maintenance_mode"`
			DefaultChannels       string `json:"default_channels"`
			ErrorChannels         string `json:"error_channels"`
			MaxStageDurationHours int    `json:"max_stage_duration_hours"`
		}
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			l.logger.Errorf("failed to parse settings payload: %v", err)
			continue
		}

		l.cache.Replace(core.Settings{
			SuccessRetentionDays:  payload.SuccessRetentionDays,
			FailureRetentionDays:  payload.FailureRetentionDays,
			MaintenanceMode:       payload.MaintenanceMode,
			DefaultChannels:       payload.DefaultChannels,
			ErrorChannels:         payload.ErrorChannels,
			MaxStageDurationHours: payload.MaxStageDurationHours,
		})
		l.logger.Debugf("settings snapshot refreshed from notification")
	}
}
