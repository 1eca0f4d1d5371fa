package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// 数量を変える操作は毎回トランザクション内で商品を読み直して在庫と比べます。
type CartUsecase struct {
	tx        repo.TransactionManager
	cartItems repo.CartItemRepository
	validator InputValidator
	log       *zap.Logger
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartItems repo.CartItemRepository,
	validator InputValidator,
	log *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		tx:        tx,
		cartItems: cartItems,
		validator: validator,
		log:       log,
	}
}

type CartProductOutput struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Description       string          `json:"description,omitempty"`
	AvailableQuantity int64           `json:"available_quantity"`
}

type CartLineOutput struct {
	ID           int64             `json:"id"`
	ProductName  string            `json:"product_name"`
	Quantity     int64             `json:"quantity"`
	PricePerItem decimal.Decimal   `json:"price_per_item"`
	TotalPrice   decimal.Decimal   `json:"total_price"`
	Product      CartProductOutput `json:"product"`
}

type CartOutput struct {
	Items     []CartLineOutput `json:"items"`
	Total     decimal.Decimal  `json:"total"`
	ItemCount int64            `json:"item_count"`
}

type CartCountOutput struct {
	CartCount int64 `json:"cart_count"`
}

type CartItemOutput struct {
	Message  string         `json:"message"`
	CartItem CartLineOutput `json:"cart_item"`
}

type AddCartInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gte=1,lte=1000000"`
}

type UpdateCartItemInput struct {
	Quantity int64 `json:"quantity" validate:"required,gte=1,lte=1000000"`
}

// GetCart はカート明細と合計を返す（価格は商品の現在値）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Error("list cart items failed", zap.Error(err), zap.Int64("user_id", userID))
		return CartOutput{}, errInternal()
	}

	out := CartOutput{Items: make([]CartLineOutput, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		line := toCartLineOutput(it, *it.Product)
		out.Items = append(out.Items, line)
		out.Total = out.Total.Add(line.TotalPrice)
		out.ItemCount += it.Quantity
	}
	return out, nil
}

func (u *CartUsecase) Count(ctx context.Context, userID int64) (CartCountOutput, error) {
	if userID <= 0 {
		return CartCountOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	n, err := u.cartItems.SumQuantityByUserID(ctx, userID)
	if err != nil {
		u.log.Error("sum cart quantity failed", zap.Error(err), zap.Int64("user_id", userID))
		return CartCountOutput{}, errInternal()
	}
	return CartCountOutput{CartCount: n}, nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
// 合計が在庫を超えるなら何も変えずに422。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartItemOutput, error) {
	if userID <= 0 {
		return CartItemOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("cart validation failed", zap.Error(err))
		return CartItemOutput{}, errInternal()
	}
	if len(fields) > 0 {
		return CartItemOutput{}, NewValidationError(fields)
	}

	var out CartLineOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByIDForUpdate(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return newFieldError("product_id", "The selected product_id is invalid.")
		}
		if err != nil {
			return err
		}

		if in.Quantity > p.Quantity {
			return insufficientCartStock(p)
		}

		existing, err := r.CartItems().FindByUserAndProductForUpdate(ctx, userID, in.ProductID)
		switch {
		case err == nil:
			// 足す前に比べる（足し算であふれさせない）
			if in.Quantity > p.Quantity-existing.Quantity {
				return newDetailError(http.StatusUnprocessableEntity,
					"Cannot add more items. Would exceed available stock.",
					map[string]interface{}{
						"product_id": p.ID,
						"available":  p.Quantity,
						"in_cart":    existing.Quantity,
					})
			}
			newQty := existing.Quantity + in.Quantity
			if err := r.CartItems().UpdateQuantity(ctx, existing.ID, newQty); err != nil {
				return err
			}
			existing.Quantity = newQty
			out = toCartLineOutput(existing, p)
			return nil

		case errors.Is(err, repo.ErrNotFound):
			created, err := r.CartItems().Create(ctx, model.CartItem{
				UserID:    userID,
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
			})
			if err != nil {
				return err
			}
			out = toCartLineOutput(created, p)
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return CartItemOutput{}, u.cartWriteError(err, "add to cart failed")
	}

	return CartItemOutput{Message: "Product added to cart successfully", CartItem: out}, nil
}

// UpdateItem は数量を上書き（加算ではない）
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartItemOutput, error) {
	if userID <= 0 {
		return CartItemOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("cart validation failed", zap.Error(err))
		return CartItemOutput{}, errInternal()
	}

	var out CartLineOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByIDForUpdate(ctx, cartItemID)
		if err != nil {
			return err
		}
		// 他人の明細
		if item.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "Unauthorized")
		}
		if len(fields) > 0 {
			return NewValidationError(fields)
		}

		p, err := r.Products().FindByIDForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if in.Quantity > p.Quantity {
			return insufficientCartStock(p)
		}

		if err := r.CartItems().UpdateQuantity(ctx, item.ID, in.Quantity); err != nil {
			return err
		}
		item.Quantity = in.Quantity
		out = toCartLineOutput(item, p)
		return nil
	})
	if err != nil {
		return CartItemOutput{}, u.cartWriteError(err, "update cart item failed")
	}

	return CartItemOutput{Message: "Cart updated successfully", CartItem: out}, nil
}

func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, cartItemID int64) (MessageOutput, error) {
	if userID <= 0 {
		return MessageOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.CartItems().FindByIDForUpdate(ctx, cartItemID)
		if err != nil {
			return err
		}
		if item.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "Unauthorized")
		}
		return r.CartItems().DeleteByID(ctx, item.ID)
	})
	if err != nil {
		return MessageOutput{}, u.cartWriteError(err, "remove cart item failed")
	}

	return MessageOutput{Message: "Item removed from cart successfully"}, nil
}

func (u *CartUsecase) cartWriteError(err error, msg string) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "Cart item not found")
	case errors.Is(err, repo.ErrDuplicate):
		return NewHTTPError(http.StatusConflict, "cart was updated concurrently, please retry")
	}
	u.log.Error(msg, zap.Error(err))
	return errInternal()
}

func insufficientCartStock(p model.Product) error {
	return newDetailError(http.StatusUnprocessableEntity,
		fmt.Sprintf("Insufficient stock. Available: %d", p.Quantity),
		map[string]interface{}{
			"product_id": p.ID,
			"available":  p.Quantity,
		})
}

func toCartLineOutput(it model.CartItem, p model.Product) CartLineOutput {
	return CartLineOutput{
		ID:           it.ID,
		ProductName:  p.Name,
		Quantity:     it.Quantity,
		PricePerItem: p.Price,
		TotalPrice:   p.Price.Mul(decimal.NewFromInt(it.Quantity)),
		Product: CartProductOutput{
			ID:                p.ID,
			Name:              p.Name,
			Price:             p.Price,
			Description:       p.Description,
			AvailableQuantity: p.Quantity,
		},
	}
}
