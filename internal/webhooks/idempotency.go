// Package webhooks holds the delivery guard shared by the payment webhooks.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type eventStore interface {
	MarkWebhookEvent(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
	ReleaseWebhookEvent(ctx context.Context, provider, eventID string) error
}

// IdempotencyGuard drops webhook deliveries whose event id was already handled.
type IdempotencyGuard struct {
	store    eventStore
	provider string
	ttl      time.Duration
}

func NewIdempotencyGuard(store eventStore, provider string, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("event store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &IdempotencyGuard{store: store, provider: provider, ttl: ttl}, nil
}

// CheckAndMark claims eventID and reports whether it had already been claimed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	claimed, err := g.store.MarkWebhookEvent(ctx, g.provider, eventID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark webhook event: %w", err)
	}
	return !claimed, nil
}

// Delete releases eventID so the provider's retry is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.ReleaseWebhookEvent(ctx, g.provider, eventID)
}
