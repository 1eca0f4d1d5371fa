package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	// 削除済み商品とは重複してよい
	Barcode     string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_barcode,where:deleted_at IS NULL" json:"barcode"`
	Name        string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	// 在庫数
	Quantity  int64          `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Category  string         `gorm:"type:varchar(100);not null;index" json:"category"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p Product) InStock() bool {
	return p.Quantity > 0
}
