package checkout

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/payments"
)

const defaultRefundTimeout = 30 * time.Second

// Config carries the payment settings checkout needs. It is built once at
// startup and passed to NewService.
type Config struct {
	Currency string
	// RefundTimeout bounds a compensating refund, which runs even after the
	// request context is cancelled.
	RefundTimeout time.Duration
}

// NewConfig derives checkout settings from the payments configuration.
func NewConfig(cfg config.PaymentsConfig) Config {
	return Config{
		Currency:      payments.NormalizeCurrency(cfg.Currency),
		RefundTimeout: defaultRefundTimeout,
	}
}
