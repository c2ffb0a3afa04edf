package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Inventory is only decremented by checkout.
type Product struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Description    string          `gorm:"type:text;not null;default:''"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null;check:chk_products_price_positive,price > 0"`
	InventoryCount int             `gorm:"column:inventory_count;not null;default:0;check:chk_products_inventory_non_negative,inventory_count >= 0"`
	ImageURL       *string         `gorm:"column:image_url"`
	Category       string          `gorm:"type:varchar(100);not null;default:'General';index"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.InventoryCount > 0
}
