package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/payments"
)

// Service turns a shopper's cart into a paid order.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest, idempotencyKey string) (*orders.OrderDTO, error)
}

// ServiceParams wires the checkout collaborators.
type ServiceParams struct {
	Config    Config
	DB        txRunner
	Users     userLoader
	CartRepo  cart.CartRepository
	OrderRepo orders.Repository
	Gateway   payments.Gateway
	Notifier  Notifier
	Metrics   recorder
	Logger    *logger.Logger
}

type service struct {
	cfg       Config
	tx        txRunner
	users     userLoader
	cartRepo  cart.CartRepository
	orderRepo orders.Repository
	inventory func(tx *gorm.DB) inventoryStore
	gateway   payments.Gateway
	notifier  Notifier
	metrics   recorder
	logg      *logger.Logger
}

// NewService builds the checkout workflow.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	cfg.Currency = payments.NormalizeCurrency(cfg.Currency)
	if cfg.RefundTimeout <= 0 {
		cfg.RefundTimeout = defaultRefundTimeout
	}
	return &service{
		cfg:       cfg,
		tx:        params.DB,
		users:     params.Users,
		cartRepo:  params.CartRepo,
		orderRepo: params.OrderRepo,
		inventory: func(tx *gorm.DB) inventoryStore { return product.NewRepository(tx) },
		gateway:   params.Gateway,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest, idempotencyKey string) (*orders.OrderDTO, error) {
	start := time.Now()
	order, err := s.checkout(ctx, userID, req, idempotencyKey)
	if s.metrics != nil {
		s.metrics.ObserveCheckout(outcomeFor(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return orders.FromModel(order), nil
}

func (s *service) checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest, idempotencyKey string) (*models.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	total := decimal.Zero
	lineIDs := make([]uuid.UUID, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		if line.Quantity > line.Product.InventoryCount {
			return nil, insufficientInventory(&line.Product, line.Quantity)
		}
		total = total.Add(line.LineTotal())
		lineIDs = append(lineIDs, line.ID)
	}
	total = total.Round(2)

	orderID := uuid.New()
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	idempotencyKey = attemptKey(idempotencyKey, orderID)

	capture, err := s.gateway.Capture(ctx, payments.CaptureRequest{
		AmountMinor:    payments.ToMinorUnits(total),
		Currency:       s.cfg.Currency,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethodID),
		IdempotencyKey: idempotencyKey,
		Description:    fmt.Sprintf("Storefront order %s", orderID),
		Metadata: map[string]string{
			"order_ref": orderID.String(),
			"user_id":   userID.String(),
		},
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment capture failed")
	}

	order := &models.Order{
		ID:               orderID,
		UserID:           userID,
		TotalAmount:      total,
		Status:           enums.OrderStatusProcessing,
		ShippingAddress:  strings.TrimSpace(req.ShippingAddress),
		PaymentProvider:  capture.Provider,
		PaymentReference: capture.Reference,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Claiming the lines first makes a concurrent checkout of the same cart
		// find nothing to delete and roll back.
		claimed, err := s.cartRepo.WithTx(tx).DeleteLines(ctx, userID, lineIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		if claimed != int64(len(lineIDs)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}

		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		inventory := s.inventory(tx)
		items := make([]models.OrderItem, 0, len(lines))
		itemsTotal := decimal.Zero
		for i := range lines {
			line := &lines[i]
			ok, err := inventory.DecrementInventory(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement inventory")
			}
			// The decrement holds the row, so the price read below is the one being sold.
			current, err := inventory.FindByID(ctx, line.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
			}
			if !ok {
				return insufficientInventory(current, line.Quantity)
			}

			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: current.Price,
				Product:   *current,
			}
			itemsTotal = itemsTotal.Add(item.LineTotal())
			items = append(items, item)
		}

		if !itemsTotal.Round(2).Equal(total) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product prices changed during checkout").
				WithDetails(map[string]any{"charged": total.StringFixed(2), "current": itemsTotal.StringFixed(2)})
		}

		if err := s.orderRepo.WithTx(tx).CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		order.Items = items
		return nil
	})
	if err != nil {
		s.refund(ctx, capture, idempotencyKey, err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout transaction")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "payment_reference", capture.Reference), "order placed")
	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, *order, *user)
	}
	return order, nil
}

// refund reverses a capture whose order could not be committed. A failed
// refund leaves the charge captured and is logged for reconciliation.
func (s *service) refund(ctx context.Context, capture *payments.Capture, idempotencyKey string, cause error) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefundTimeout)
	defer cancel()

	refundCtx = s.logg.WithFields(refundCtx, map[string]any{
		"payment_provider":  capture.Provider.String(),
		"payment_reference": capture.Reference,
		"amount":            payments.FromMinorUnits(capture.AmountMinor).StringFixed(2),
		"refund_cause":      cause.Error(),
	})

	err := s.gateway.Refund(refundCtx, payments.RefundRequest{
		Reference:      capture.Reference,
		AmountMinor:    capture.AmountMinor,
		Currency:       capture.Currency,
		IdempotencyKey: "refund-" + idempotencyKey,
		Reason:         "order_not_created",
	})
	if s.metrics != nil {
		s.metrics.IncRefund(err == nil)
	}
	if err != nil {
		s.logg.Error(refundCtx, "compensating refund failed; payment remains captured", err)
		return
	}
	s.logg.Warn(refundCtx, "payment refunded after checkout failure")
}

// attemptKey scopes the gateway idempotency key to one checkout attempt. A
// retry after a refunded attempt must not replay the refunded capture.
func attemptKey(clientKey string, orderID uuid.UUID) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return orderID.String()
	}
	return clientKey + ":" + orderID.String()
}

func validateRequest(req CheckoutRequest) error {
	details := map[string]string{}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		details["shipping_address"] = "is required"
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		details["payment_method_id"] = "is required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func insufficientInventory(p *models.Product, requested int) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientInventory, "insufficient inventory for %s", p.Name).
		WithDetails(map[string]any{
			"product_id": p.ID,
			"available":  p.InventoryCount,
			"requested":  requested,
		})
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeEmptyCart:
		return metrics.OutcomeEmptyCart
	case pkgerrors.CodePaymentFailed:
		return metrics.OutcomePaymentFailed
	case pkgerrors.CodeInsufficientInventory, pkgerrors.CodeOutOfStock:
		return metrics.OutcomeInsufficientInventory
	default:
		return metrics.OutcomeError
	}
}
