package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func orderStatus(t *testing.T, conn *gorm.DB, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, conn.Select("status").Where("id = ?", id).First(&order).Error)
	return order.Status
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, reference string, created time.Time, products ...*models.Product) *models.Order {
	t.Helper()
	repo := NewRepository(conn)
	ctx := context.Background()

	order := &models.Order{
		UserID:           userID,
		TotalAmount:      decimal.Zero,
		Status:           enums.OrderStatusProcessing,
		ShippingAddress:  "1 Main St",
		PaymentProvider:  enums.PaymentProviderStripe,
		PaymentReference: reference,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	items := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: 2, UnitPrice: p.Price})
		order.TotalAmount = order.TotalAmount.Add(p.Price.Mul(decimal.NewFromInt(2)))
	}
	require.NoError(t, repo.Create(ctx, order))
	for i := range items {
		items[i].OrderID = order.ID
	}
	require.NoError(t, repo.CreateItems(ctx, items))
	return order
}

func TestListForUserNewestFirstWithItems(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, "buyer")
	other := dbtest.SeedUser(t, conn, "other")
	lamp := dbtest.SeedProduct(t, conn, dbtest.ProductSeed{Name: "Lamp", Price: "12.25", Inventory: 3})
	rug := dbtest.SeedProduct(t, conn, dbtest.ProductSeed{Name: "Rug", Price: "40.00", Inventory: 3})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := seedOrder(t, conn, user.ID, "pi_old", base, lamp)
	newer := seedOrder(t, conn, user.ID, "pi_new", base.Add(time.Hour), lamp, rug)
	seedOrder(t, conn, other.ID, "pi_other", base.Add(2*time.Hour), rug)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	list, err := svc.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.Len(t, list[0].Items, 2)
	assert.Equal(t, "104.50", list[0].TotalAmount)
	names := []string{list[0].Items[0].Product.Name, list[0].Items[1].Product.Name}
	assert.ElementsMatch(t, []string{"Lamp", "Rug"}, names)
	for _, item := range list[0].Items {
		if item.Product.Name == "Lamp" {
			assert.Equal(t, "12.25", item.UnitPrice)
			assert.Equal(t, "24.50", item.LineTotal)
		}
	}

	empty, err := svc.ListForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.ListForUser(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateStatusIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, "buyer")
	order := seedOrder(t, conn, user.ID, "pi_1", time.Now().UTC())
	repo := NewRepository(conn)
	ctx := context.Background()

	found, err := repo.FindByPaymentReference(ctx, enums.PaymentProviderStripe, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByPaymentReference(ctx, enums.PaymentProviderSquare, "pi_1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, enums.OrderStatusCompleted, orderStatus(t, conn, order.ID))
}
