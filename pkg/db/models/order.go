package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crispyspin/crispyspin-backend/pkg/enums"
)

// Order records one settled payment; the payment reference is its key.
type Order struct {
	ID           string            `gorm:"column:id;type:text;primaryKey"`
	Wallet       string            `gorm:"column:wallet;type:text;not null;index"`
	SKU          string            `gorm:"column:sku;type:text;not null"`
	AmountUSDC   decimal.Decimal   `gorm:"column:amount_usdc;type:numeric(18,6);not null"`
	CreditsAdded int64             `gorm:"column:credits_added;not null"`
	PointsAdded  int64             `gorm:"column:points_added;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null"`
	CompletedAt  time.Time         `gorm:"column:completed_at;not null"`
}

func (Order) TableName() string { return "orders" }
