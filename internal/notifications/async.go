package notifications

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type notifier interface {
	Notify(ctx context.Context, order *models.Order, user *models.User) error
}

// AsyncDispatcher delivers notifications off the request path. Each delivery
// runs detached from the request context with its own timeout.
type AsyncDispatcher struct {
	inner   notifier
	timeout time.Duration
	logg    *logger.Logger
	group   errgroup.Group
}

// NewAsyncDispatcher wraps inner for background delivery.
func NewAsyncDispatcher(inner notifier, timeout time.Duration, logg *logger.Logger) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &AsyncDispatcher{inner: inner, timeout: timeout, logg: logg}
}

// OrderPlaced schedules delivery for a committed order. It never blocks on the transports.
func (a *AsyncDispatcher) OrderPlaced(ctx context.Context, order models.Order, user models.User) {
	if a == nil || a.inner == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	a.group.Go(func() error {
		sendCtx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()
		if err := a.inner.Notify(sendCtx, &order, &user); err != nil && a.logg != nil {
			a.logg.Warn(a.logg.WithOrderID(sendCtx, order.ID.String()), "order notifications incomplete")
		}
		return nil
	})
}

// Wait blocks until scheduled deliveries finish or ctx is done.
func (a *AsyncDispatcher) Wait(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- a.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
