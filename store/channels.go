package store

import (
	"context"

	"github.com/dagwatch/dagwatch/core"
)

const channelColumns = `name, provider_type, configuration, created_at, updated_at`

func scanChannel(row configRow) (*core.Channel, error) {
	var ch core.Channel
	err := row.Scan(&ch.Name, &ch.ProviderType, &ch.Configuration, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ChannelByName returns one channel or a not-found error.
func (s *Store) ChannelByName(ctx context.Context, name string) (*core.Channel, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE name = $1`, name)
	ch, err := scanChannel(row)
	if noRows(err) {
		return nil, core.NotFoundf("channel not found: %s", name)
	}
	if err != nil {
		return nil, core.DatabaseError("get channel", err)
	}
	return ch, nil
}

// ListChannels returns every configured channel.
func (s *Store) ListChannels(ctx context.Context) ([]*core.Channel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels ORDER BY name`)
	if err != nil {
		return nil, core.DatabaseError("list channels", err)
	}
	defer rows.Close()

	var channels []*core.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, core.DatabaseError("scan channel", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, core.DatabaseError("list channels", err)
	}
	return channels, nil
}

// InsertChannel creates a channel; duplicate names map to a conflict error.
func (s *Store) InsertChannel(ctx context.Context, ch *core.Channel) (*core.Channel, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO channels (name, provider_type, configuration)
		 VALUES ($1, $2, $3)
		 RETURNING `+channelColumns,
		ch.Name, ch.ProviderType, ch.Configuration)
	created, err := scanChannel(row)
	if isUniqueViolation(err) {
		return nil, core.Conflictf("channel already exists: %s", ch.Name)
	}
	if err != nil {
		return nil, core.DatabaseError("insert channel", err)
	}
	return created, nil
}

// UpdateChannel replaces provider type and configuration of a channel.
func (s *Store) UpdateChannel(ctx context.Context, ch *core.Channel) (*core.Channel, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE channels
		 SET provider_type = $2, configuration = $3, updated_at = NOW()
		 WHERE name = $1
		 RETURNING `+channelColumns,
		ch.Name, ch.ProviderType, ch.Configuration)
	saved, err := scanChannel(row)
	if noRows(err) {
		return nil, core.NotFoundf("channel not found: %s", ch.Name)
	}
	if err != nil {
		return nil, core.DatabaseError("update channel", err)
	}
	return saved, nil
}
