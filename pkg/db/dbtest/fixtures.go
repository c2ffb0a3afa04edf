package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductSeed describes a catalog row for tests. Zero values get defaults.
type ProductSeed struct {
	Name        string
	Description string
	Price       string
	Inventory   int
	Category    string
	CreatedAt   time.Time
}

// SeedUser inserts an active user with a placeholder password hash.
func SeedUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		FirstName:    "",
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

// SeedProduct inserts a product and returns it.
func SeedProduct(t *testing.T, conn *gorm.DB, seed ProductSeed) *models.Product {
	t.Helper()
	if seed.Name == "" {
		seed.Name = "Product " + uuid.NewString()[:8]
	}
	if seed.Price == "" {
		seed.Price = "10.00"
	}
	if seed.Category == "" {
		seed.Category = "General"
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = time.Now().UTC()
	}
	product := &models.Product{
		ID:             uuid.New(),
		Name:           seed.Name,
		Description:    seed.Description,
		Price:          decimal.RequireFromString(seed.Price),
		InventoryCount: seed.Inventory,
		Category:       seed.Category,
		CreatedAt:      seed.CreatedAt,
		UpdatedAt:      seed.CreatedAt,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product %s: %v", seed.Name, err)
	}
	return product
}

// Inventory reloads a product's current stock.
func Inventory(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	if err := conn.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product %s: %v", id, err)
	}
	return p.InventoryCount
}
