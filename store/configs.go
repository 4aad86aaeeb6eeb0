package store

import (
	"context"

	"github.com/dagwatch/dagwatch/core"
)

const configColumns = `app_name, job_name, schedule, zone_id, enabled, stages, channel_ids, created_at, updated_at`

type configRow interface {
	Scan(dest ...any) error
}

func scanConfig(row configRow) (*core.JobConfig, error) {
	var cfg core.JobConfig
	err := row.Scan(
		&cfg.AppName, &cfg.JobName, &cfg.Schedule, &cfg.ZoneID,
		&cfg.Enabled, &cfg.Stages, &cfg.ChannelIDs,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfig returns the config for (app, job) or a not-found error.
func (s *Store) GetConfig(ctx context.Context, appName, jobName string) (*core.JobConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+configColumns+` FROM job_configs WHERE app_name = $1 AND job_name = $2`,
		appName, jobName)
	cfg, err := scanConfig(row)
	if noRows(err) {
		return nil, core.NotFoundf("job config not found for: %s-%s", appName, jobName)
	}
	if err != nil {
		return nil, core.DatabaseError("get job config", err)
	}
	return cfg, nil
}

// ListEnabledConfigs returns every config the scanner should consider.
func (s *Store) ListEnabledConfigs(ctx context.Context) ([]*core.JobConfig, error) {
	return s.listConfigs(ctx,
		`SELECT `+configColumns+` FROM job_configs WHERE enabled ORDER BY app_name, job_name`)
}

// ListConfigs returns every config, enabled or not.
func (s *Store) ListConfigs(ctx context.Context) ([]*core.JobConfig, error) {
	return s.listConfigs(ctx,
		`SELECT `+configColumns+` FROM job_configs ORDER BY app_name, job_name`)
}

// ListConfigsByApp returns every config belonging to one application.
func (s *Store) ListConfigsByApp(ctx context.Context, appName string) ([]*core.JobConfig, error) {
	return s.listConfigs(ctx,
		`SELECT `+configColumns+` FROM job_configs WHERE app_name = $1 ORDER BY job_name`, appName)
}

func (s *Store) listConfigs(ctx context.Context, query string, args ...any) ([]*core.JobConfig, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, core.DatabaseError("list job configs", err)
	}
	defer rows.Close()

	var configs []*core.JobConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, core.DatabaseError("scan job config", err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, core.DatabaseError("list job configs", err)
	}
	return configs, nil
}

// ListAppNames returns the distinct application names that have configs.
func (s *Store) ListAppNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT app_name FROM job_configs ORDER BY app_name`)
	if err != nil {
		return nil, core.DatabaseError("list applications", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, core.DatabaseError("scan application name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, core.DatabaseError("list applications", err)
	}
	return names, nil
}

// InsertConfig creates a new config; duplicates map to a conflict error.
func (s *Store) InsertConfig(ctx context.Context, cfg *core.JobConfig) (*core.JobConfig, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO job_configs (app_name, job_name, schedule, zone_id, enabled, stages, channel_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+configColumns,
		cfg.AppName, cfg.JobName, cfg.Schedule, cfg.ZoneID, cfg.Enabled, cfg.Stages, cfg.ChannelIDs)
	created, err := scanConfig(row)
	if isUniqueViolation(err) {
		return nil, core.Conflictf("job config already exists for: %s-%s", cfg.AppName, cfg.JobName)
	}
	if err != nil {
		return nil, core.DatabaseError("insert job config", err)
	}
	return created, nil
}

// SaveConfig updates an existing config in place.
func (s *Store) SaveConfig(ctx context.Context, cfg *core.JobConfig) (*core.JobConfig, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE job_configs
		 SET schedule = $3, zone_id = $4, enabled = $5, stages = $6, channel_ids = $7, updated_at = NOW()
		 WHERE app_name = $1 AND job_name = $2
		 RETURNING `+configColumns,
		cfg.AppName, cfg.JobName, cfg.Schedule, cfg.ZoneID, cfg.Enabled, cfg.Stages, cfg.ChannelIDs)
	saved, err := scanConfig(row)
	if noRows(err) {
		return nil, core.NotFoundf("job config not found for: %s-%s", cfg.AppName, cfg.JobName)
	}
	if err != nil {
		return nil, core.DatabaseError("save job config", err)
	}
	return saved, nil
}
