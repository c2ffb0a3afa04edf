package stripewebhook

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type statusApplier interface {
	Apply(ctx context.Context, provider enums.PaymentProvider, reference string, next enums.OrderStatus) (bool, error)
}

// Service turns Stripe payment events into order status changes.
type Service struct {
	orders statusApplier
}

func NewService(orders statusApplier) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order status applier required")
	}
	return &Service{orders: orders}, nil
}

// HandleEvent applies the status implied by event. Unrelated event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var (
		reference string
		next      enums.OrderStatus
	)
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		reference, next = event.GetObjectValue("id"), enums.OrderStatusCompleted
	case stripe.EventTypePaymentIntentPaymentFailed:
		reference, next = event.GetObjectValue("id"), enums.OrderStatusFailed
	case stripe.EventTypePaymentIntentCanceled:
		reference, next = event.GetObjectValue("id"), enums.OrderStatusCancelled
	case stripe.EventTypeChargeRefunded:
		reference, next = event.GetObjectValue("payment_intent"), enums.OrderStatusCancelled
	default:
		return nil
	}
	if reference == "" {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s event missing payment intent id", event.Type)
	}

	_, err := s.orders.Apply(ctx, enums.PaymentProviderStripe, reference, next)
	return err
}
