// Package payments defines the gateway contract checkout uses to capture and refund charges.
package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CaptureRequest asks the gateway to charge and confirm an amount synchronously.
type CaptureRequest struct {
	AmountMinor    int64
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

// Capture is a confirmed charge.
type Capture struct {
	Provider    enums.PaymentProvider
	Reference   string
	AmountMinor int64
	Currency    string
	Status      string
}

// RefundRequest reverses all or part of a capture.
type RefundRequest struct {
	Reference      string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Reason         string
}

// Gateway captures and refunds payments. Implementations return *errors.Error
// with CodePaymentFailed for declines so callers can tell them apart from outages.
type Gateway interface {
	Provider() enums.PaymentProvider
	Capture(ctx context.Context, req CaptureRequest) (*Capture, error)
	Refund(ctx context.Context, req RefundRequest) error
}

// ToMinorUnits converts a two-decimal amount to the smallest currency unit (cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// FromMinorUnits converts cents back to a two-decimal amount.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// NormalizeCurrency lowercases a currency code, defaulting to usd.
func NormalizeCurrency(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "usd"
	}
	return code
}
