package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a placed purchase. It owns its items; deleting it cascades to them.
type Order struct {
	ID               uuid.UUID             `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID             `gorm:"type:uuid;not null;index"`
	TotalAmount      decimal.Decimal       `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status           enums.OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	ShippingAddress  string                `gorm:"column:shipping_address;type:text;not null"`
	PaymentProvider  enums.PaymentProvider `gorm:"column:payment_provider;type:varchar(20);not null"`
	PaymentReference string                `gorm:"column:payment_reference;type:varchar(255);not null;index"`
	Items            []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User             *User                 `gorm:"foreignKey:UserID"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the unit price paid; it is never updated after creation.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null;check:chk_order_items_quantity_positive,quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Product   Product         `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is quantity times the snapshotted unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
