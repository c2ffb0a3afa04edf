package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type inventoryStore interface {
	DecrementInventory(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Notifier receives committed orders for best-effort delivery.
type Notifier interface {
	OrderPlaced(ctx context.Context, order models.Order, user models.User)
}

type recorder interface {
	ObserveCheckout(outcome string, duration time.Duration)
	IncRefund(ok bool)
}
