package notifications

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const defaultSendTimeout = 15 * time.Second

// Config holds the delivery settings for order notifications. A channel whose
// credentials are blank is skipped.
type Config struct {
	MailEnabled bool
	FromEmail   string
	FromName    string

	ChatEnabled bool
	ChatChannel string

	// SendTimeout bounds one background delivery of both channels.
	SendTimeout time.Duration
}

// NewConfig derives notification settings from the service configuration.
func NewConfig(cfg *config.Config) Config {
	if cfg == nil {
		return Config{SendTimeout: defaultSendTimeout}
	}
	return Config{
		MailEnabled: cfg.Sendgrid.Enabled(),
		FromEmail:   strings.TrimSpace(cfg.Sendgrid.DefaultFrom),
		FromName:    strings.TrimSpace(cfg.Sendgrid.FromName),
		ChatEnabled: cfg.Slack.Enabled(),
		ChatChannel: strings.TrimSpace(cfg.Slack.Channel),
		SendTimeout: defaultSendTimeout,
	}
}
