package square

import (
	"context"
	"errors"

	sq "github.com/square/square-go-sdk"
)

// SignatureHeader carries Square's webhook HMAC.
const SignatureHeader = "X-Square-Hmacsha256-Signature"

var (
	errWebhookNotConfigured = errors.New("square webhook signature key and url are required")
	errEmptyWebhookBody     = errors.New("square webhook body is empty")
)

type webhooksAPI interface {
	VerifySignature(ctx context.Context, request *sq.VerifySignatureRequest) error
}

// VerifyWebhook checks the notification signature against the configured
// signature key and notification URL.
func (c *Client) VerifyWebhook(ctx context.Context, payload []byte, signature string) error {
	if c == nil || c.webhooks == nil || c.webhookKey == "" || c.webhookURL == "" {
		return errWebhookNotConfigured
	}
	// The SDK accepts an empty body without checking the signature.
	if len(payload) == 0 {
		return errEmptyWebhookBody
	}
	return c.webhooks.VerifySignature(ctx, &sq.VerifySignatureRequest{
		RequestBody:     string(payload),
		SignatureHeader: signature,
		SignatureKey:    c.webhookKey,
		NotificationURL: c.webhookURL,
	})
}
