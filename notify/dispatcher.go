package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/dagwatch/dagwatch/core"
)

// Plugin is one delivery mechanism. Implementations must be safe for
// concurrent use; the dispatcher calls Send from one goroutine per channel.
type Plugin interface {
	ProviderType() core.ProviderType
	// ValidateConfig vets a channel configuration before it is persisted.
	ValidateConfig(config json.RawMessage) error
	Send(ctx context.Context, msg Message, config json.RawMessage) error
}

// ChannelSource looks channels up by name. The store package provides the
// production implementation.
type ChannelSource interface {
	ChannelByName(ctx context.Context, name string) (*core.Channel, error)
}

// Dispatcher fans alerts out to channels. The plugin registry is built once
// at construction and never mutated afterwards.
type Dispatcher struct {
	channels ChannelSource
	registry map[core.ProviderType]Plugin
	logger   core.Logger
}

func NewDispatcher(channels ChannelSource, logger core.Logger, plugins ...Plugin) *Dispatcher {
	registry := make(map[core.ProviderType]Plugin, len(plugins))
	for _, p := range plugins {
		registry[p.ProviderType()] = p
	}
	return &Dispatcher{channels: channels, registry: registry, logger: logger}
}

// Validate vets a channel configuration against its provider's plugin.
func (d *Dispatcher) Validate(providerType core.ProviderType, config json.RawMessage) error {
	plugin, ok := d.registry[providerType]
	if !ok {
		return core.BadRequestf("no plugin registered for provider type %q", providerType)
	}
	return plugin.ValidateConfig(config)
}

// Send renders the alert and delivers it to every channel named in the
// comma-separated list. Channel resolution failures abort the dispatch and
// surface to the caller; delivery failures are logged per channel and do
// not affect siblings. Send returns once every delivery attempt finished.
func (d *Dispatcher) Send(ctx context.Context, alert core.Alert, channelIDs string) error {
	names := splitChannelIDs(channelIDs)
	if len(names) == 0 {
		return nil
	}

	// Resolve everything before spawning so a bad channel list fails as a
	// unit instead of half-delivering.
	resolved := make([]*core.Channel, 0, len(names))
	for _, name := range names {
		ch, err := d.channels.ChannelByName(ctx, name)
		if err != nil {
			return err
		}
		resolved = append(resolved, ch)
	}

	msg := Render(alert)

	var wg sync.WaitGroup
	for _, ch := range resolved {
		plugin, ok := d.registry[ch.ProviderType]
		if !ok {
			d.logger.Errorf("no plugin registered for provider type %q on channel %q", ch.ProviderType, ch.Name)
			continue
		}
		wg.Add(1)
		go func(ch *core.Channel, plugin Plugin) {
			defer wg.Done()
			if err := plugin.Send(ctx, msg, ch.Configuration); err != nil {
				d.logger.Errorf("failed to send via channel %q: %v", ch.Name, err)
				return
			}
			d.logger.Debugf("sent %s alert via channel %q", alert.Type, ch.Name)
		}(ch, plugin)
	}
	wg.Wait()
	return nil
}

func splitChannelIDs(channelIDs string) []string {
	var names []string
	for _, part := range strings.Split(channelIDs, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
