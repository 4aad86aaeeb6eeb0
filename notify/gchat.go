package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dagwatch/dagwatch/core"
)

// GchatConfig is the stored configuration of a chat-webhook channel.
type GchatConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// GchatPlugin posts alerts as plain-text messages to a Google Chat style
// incoming webhook.
type GchatPlugin struct {
	Client *http.Client
}

func NewGchatPlugin() *GchatPlugin {
	return &GchatPlugin{Client: &http.Client{Timeout: 5 * time.Second}}
}

func (p *GchatPlugin) ProviderType() core.ProviderType {
	return core.ProviderGchatWebhook
}

func (p *GchatPlugin) ValidateConfig(config json.RawMessage) error {
	var cfg GchatConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return core.BadRequestf("invalid webhook configuration: %v", err)
	}
	url := cfg.WebhookURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return core.BadRequestf("webhook_url must start with http:// or https://")
	}
	if len(url) < 8 {
		return core.BadRequestf("webhook_url is too short")
	}
	if strings.ContainsAny(url, " \t\r\n") {
		return core.BadRequestf("webhook_url must not contain whitespace")
	}
	return nil
}

func (p *GchatPlugin) Send(ctx context.Context, msg Message, config json.RawMessage) error {
	var cfg GchatConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return fmt.Errorf("decode webhook configuration: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"text": msg.Body})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
