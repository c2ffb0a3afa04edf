package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error)
	FindByUserProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	AddQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error
	UpdateQuantity(ctx context.Context, id, userID uuid.UUID, qty int) error
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	DeleteLines(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}
