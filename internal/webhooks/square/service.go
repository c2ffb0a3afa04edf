package squarewebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type statusApplier interface {
	Apply(ctx context.Context, provider enums.PaymentProvider, reference string, next enums.OrderStatus) (bool, error)
}

// Service turns Square payment and refund notifications into order status changes.
type Service struct {
	orders statusApplier
}

func NewService(orders statusApplier) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order status applier required")
	}
	return &Service{orders: orders}, nil
}

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
	Refund  *SquareRefund  `json:"refund"`
}

type SquarePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type SquareRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

var paymentStatuses = map[string]enums.OrderStatus{
	"COMPLETED": enums.OrderStatusCompleted,
	"FAILED":    enums.OrderStatusFailed,
	"CANCELED":  enums.OrderStatusCancelled,
}

// HandleEvent processes payment.* and refund.* notifications; others are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch {
	case strings.HasPrefix(event.Type, "payment."):
		payment := event.Data.Object.Payment
		if payment == nil || payment.ID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "square payment missing from event")
		}
		next, ok := paymentStatuses[strings.ToUpper(payment.Status)]
		if !ok {
			return nil
		}
		_, err := s.orders.Apply(ctx, enums.PaymentProviderSquare, payment.ID, next)
		return err
	case strings.HasPrefix(event.Type, "refund."):
		refund := event.Data.Object.Refund
		if refund == nil || refund.PaymentID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "square refund missing from event")
		}
		if !strings.EqualFold(refund.Status, "COMPLETED") {
			return nil
		}
		_, err := s.orders.Apply(ctx, enums.PaymentProviderSquare, refund.PaymentID, enums.OrderStatusCancelled)
		return err
	default:
		return nil
	}
}
