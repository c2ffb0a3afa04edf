package orders

import (
	"time"

	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderItemDTO is one purchased line at its snapshotted price.
type OrderItemDTO struct {
	ID        uuid.UUID          `json:"id"`
	Product   product.ProductDTO `json:"product"`
	Quantity  int                `json:"quantity"`
	UnitPrice string             `json:"unit_price"`
	LineTotal string             `json:"line_total"`
}

// OrderDTO is the shopper-facing order representation.
type OrderDTO struct {
	ID               uuid.UUID             `json:"id"`
	Status           enums.OrderStatus     `json:"status"`
	TotalAmount      string                `json:"total_amount"`
	ShippingAddress  string                `json:"shipping_address"`
	PaymentProvider  enums.PaymentProvider `json:"payment_provider"`
	PaymentReference string                `json:"payment_reference"`
	Items            []OrderItemDTO        `json:"items"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// FromModel maps an order with its preloaded items.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			Product:   *product.FromModel(&item.Product),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return &OrderDTO{
		ID:               o.ID,
		Status:           o.Status,
		TotalAmount:      o.TotalAmount.StringFixed(2),
		ShippingAddress:  o.ShippingAddress,
		PaymentProvider:  o.PaymentProvider,
		PaymentReference: o.PaymentReference,
		Items:            items,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}
