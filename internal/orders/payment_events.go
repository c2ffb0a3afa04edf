package orders

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentEvents advances order status from gateway notifications.
type PaymentEvents struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewPaymentEvents builds the status updater used by the payment webhooks.
func NewPaymentEvents(repo Repository, tx txRunner, logg *logger.Logger) (*PaymentEvents, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PaymentEvents{repo: repo, tx: tx, logg: logg}, nil
}

// Apply moves the order paid with reference to next. Unknown references and
// backward transitions are ignored; the result reports whether a row changed.
func (p *PaymentEvents) Apply(ctx context.Context, provider enums.PaymentProvider, reference string, next enums.OrderStatus) (bool, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if !next.IsValid() {
		return false, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", next)
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"payment_provider":  provider.String(),
		"payment_reference": reference,
		"next_status":       next.String(),
	})

	changed := false
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)
		order, err := repo.FindByPaymentReference(ctx, provider, reference)
		if err != nil {
			if db.IsNotFound(err) {
				p.logg.Info(ctx, "payment event for unknown order ignored")
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by payment reference")
		}
		if !order.Status.CanTransitionTo(next) {
			p.logg.Info(p.logg.WithOrderID(ctx, order.ID.String()), fmt.Sprintf("order status %s kept", order.Status))
			return nil
		}
		changed, err = repo.UpdateStatus(ctx, order.ID, order.Status, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
