package store

import (
	"context"

	"github.com/dagwatch/dagwatch/core"
)

const settingsColumns = `success_retention_days, failure_retention_days, maintenance_mode,
	default_channels, error_channels, max_stage_duration_hours`

// GetSettings reads the single operator settings row.
func (s *Store) GetSettings(ctx context.Context) (core.Settings, error) {
	var out core.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM global_settings WHERE id = 1`).Scan(
		&out.SuccessRetentionDays, &out.FailureRetentionDays, &out.MaintenanceMode,
		&out.DefaultChannels, &out.ErrorChannels, &out.MaxStageDurationHours,
	)
	if err != nil {
		return core.Settings{}, core.DatabaseError("get settings", err)
	}
	return out, nil
}

// SaveSettings replaces the settings row. The row update fires the
// settings_update notification that refreshes every listening process.
func (s *Store) SaveSettings(ctx context.Context, in core.Settings) (core.Settings, error) {
	var out core.Settings
	err := s.pool.QueryRow(ctx,
		`UPDATE global_settings
		 SET success_retention_days = $1, failure_retention_days = $2, maintenance_mode = $3,
		     default_channels = $4, error_channels = $5, max_stage_duration_hours = $6,
		     updated_at = NOW()
		 WHERE id = 1
		 RETURNING `+settingsColumns,
		in.SuccessRetentionDays, in.FailureRetentionDays, in.MaintenanceMode,
		in.DefaultChannels, in.ErrorChannels, in.MaxStageDurationHours,
	).Scan(
		&out.SuccessRetentionDays, &out.FailureRetentionDays, &out.MaintenanceMode,
		&out.DefaultChannels, &out.ErrorChannels, &out.MaxStageDurationHours,
	)
	if err != nil {
		return core.Settings{}, core.DatabaseError("save settings", err)
	}
	return out, nil
}
