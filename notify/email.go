package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/mail"

	gomail "github.com/go-mail/mail/v2"

	"github.com/dagwatch/dagwatch/core"
)

// EmailConfig is the stored configuration of an SMTP channel.
type EmailConfig struct {
	Host                  string   `json:"host"`
	Port                  int      `json:"port"`
	Username              string   `json:"username"`
	Password              string   `json:"password"`
	FromAddress           string   `json:"from_address"`
	ToAddresses           []string `json:"to_addresses"`
	IgnoreTLSVerification bool     `json:"ignore_tls_verification"`
}

// EmailPlugin delivers alerts over SMTP.
type EmailPlugin struct{}

func NewEmailPlugin() *EmailPlugin {
	return &EmailPlugin{}
}

func (p *EmailPlugin) ProviderType() core.ProviderType {
	return core.ProviderEmailSMTP
}

func (p *EmailPlugin) ValidateConfig(config json.RawMessage) error {
	var cfg EmailConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return core.BadRequestf("invalid smtp configuration: %v", err)
	}
	if len(cfg.Host) < 4 {
		return core.BadRequestf("host is too short")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return core.BadRequestf("port must be between 1 and 65535")
	}
	if len(cfg.ToAddresses) == 0 {
		return core.BadRequestf("to_addresses must not be empty")
	}
	for _, addr := range cfg.ToAddresses {
		if _, err := mail.ParseAddress(addr); err != nil {
			return core.BadRequestf("invalid to address %q", addr)
		}
	}
	if _, err := mail.ParseAddress(cfg.FromAddress); err != nil {
		return core.BadRequestf("invalid from address %q", cfg.FromAddress)
	}
	return nil
}

func (p *EmailPlugin) Send(_ context.Context, msg Message, config json.RawMessage) error {
	var cfg EmailConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.FromAddress)
	m.SetHeader("To", cfg.ToAddresses...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.IgnoreTLSVerification {
		// Explicit opt-in for servers with self-signed certificates.
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	return d.DialAndSend(m)
}
