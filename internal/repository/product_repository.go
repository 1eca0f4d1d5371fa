package repository

import (
	"context"

	"shopapi/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)
	// 行ロック付きでまとめて取得（id昇順）。注文トランザクション用
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error)
	// excludeID以外に同じバーコードがあるか
	BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error)
	Categories(ctx context.Context) ([]string, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
}
