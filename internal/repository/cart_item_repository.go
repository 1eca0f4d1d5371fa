package repository

import (
	"context"

	"shopapi/internal/domain/model"
)

type CartItemRepository interface {
	// Productも一緒に読む（削除済み商品の行は返さない）
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同じ user×product の行をロックして取得。無ければErrNotFound
	FindByUserAndProductForUpdate(ctx context.Context, userID int64, productID int64) (model.CartItem, error)
	FindByIDForUpdate(ctx context.Context, cartItemID int64) (model.CartItem, error)
	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// 注文確定した商品をカートから消す
	DeleteByUserAndProducts(ctx context.Context, userID int64, productIDs []int64) error
	// 商品削除時に全ユーザーのカートから消す
	DeleteByProductID(ctx context.Context, productID int64) error
	SumQuantityByUserID(ctx context.Context, userID int64) (int64, error)
}
