package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// AddItemRequest is the body of POST /cart/add.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest is the body of PUT /cart/{id}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// CartLineDTO is one cart line priced at the live product price.
type CartLineDTO struct {
	ID         uuid.UUID          `json:"id"`
	Product    product.ProductDTO `json:"product"`
	Quantity   int                `json:"quantity"`
	TotalPrice string             `json:"total_price"`
	// Available is false once stock has dropped below the line quantity.
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartDTO is the full cart with its running total.
type CartDTO struct {
	Items []CartLineDTO `json:"items"`
	Total string        `json:"total"`
	Count int           `json:"count"`
}

func lineFromModel(item *models.CartItem) CartLineDTO {
	return CartLineDTO{
		ID:         item.ID,
		Product:    *product.FromModel(&item.Product),
		Quantity:   item.Quantity,
		TotalPrice: item.LineTotal().StringFixed(2),
		Available:  item.Quantity <= item.Product.InventoryCount,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

func cartFromModels(items []models.CartItem) *CartDTO {
	total := decimal.Zero
	lines := make([]CartLineDTO, 0, len(items))
	for i := range items {
		total = total.Add(items[i].LineTotal())
		lines = append(lines, lineFromModel(&items[i]))
	}
	return &CartDTO{Items: lines, Total: total.StringFixed(2), Count: len(lines)}
}
