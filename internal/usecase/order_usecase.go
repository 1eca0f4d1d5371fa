package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	validator InputValidator
	events    OrderEventPublisher
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	validator InputValidator,
	events OrderEventPublisher,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		validator: validator,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// クライアントが持っているカートの1行
type OrderLineInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gte=1,lte=1000000"`
}

type PlaceOrderInput struct {
	ShippingAddress string           `json:"shipping_address" validate:"required"`
	PaymentMethod   string           `json:"payment_method" validate:"required,oneof='cash on delivery' 'online payment'"`
	ShippingFee     *decimal.Decimal `json:"shipping_fee" validate:"required,gte=0,lte=99999999.99"`
	CartItems       []OrderLineInput `json:"cart_items" validate:"required,min=1,dive"`
}

type PlaceOrderOutput struct {
	Message string      `json:"message"`
	Order   model.Order `json:"order"`
}

type OrderListOutput struct {
	Orders []model.Order `json:"orders"`
}

type OrderDetailOutput struct {
	Order model.Order `json:"order"`
}

// PlaceOrder は在庫確認・合計計算・注文作成・在庫減算を1トランザクションで行う。
// どこかで失敗したら何も残らない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)

	fields, err := u.validator.Struct(in)
	if err != nil {
		u.log.Error("order validation failed", zap.Error(err))
		return PlaceOrderOutput{}, errInternal()
	}
	if len(fields) > 0 {
		return PlaceOrderOutput{}, NewValidationError(fields)
	}

	// 商品ごとの合計数量（同じ商品が複数行あってもまとめて在庫と比べる）
	requested := map[int64]int64{}
	for i, line := range in.CartItems {
		if requested[line.ProductID] > math.MaxInt64-line.Quantity {
			return PlaceOrderOutput{}, newFieldError(fmt.Sprintf("cart_items[%d].quantity", i), "The quantity is too large.")
		}
		requested[line.ProductID] += line.Quantity
	}
	productIDs := make([]int64, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	shippingFee := in.ShippingFee.Round(2)

	var placed model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//行ロック（id昇順）
		locked, err := r.Products().FindByIDsForUpdate(ctx, productIDs)
		if err != nil {
			return err
		}
		products := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		//存在しない商品
		missing := map[string]string{}
		for i, line := range in.CartItems {
			if _, ok := products[line.ProductID]; !ok {
				missing[fmt.Sprintf("cart_items[%d].product_id", i)] = "The selected product is invalid."
			}
		}
		if len(missing) > 0 {
			return NewValidationError(missing)
		}

		//在庫チェック
		for _, id := range productIDs {
			p := products[id]
			if requested[id] > p.Quantity {
				return insufficientOrderStock(p, requested[id])
			}
		}

		//合計（価格は今の値）
		subtotal := decimal.Zero
		lines := make([]model.OrderItem, 0, len(in.CartItems))
		for _, line := range in.CartItems {
			p := products[line.ProductID]
			item := model.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Price:       p.Price,
				Quantity:    line.Quantity,
			}
			subtotal = subtotal.Add(item.LineTotal())
			lines = append(lines, item)
		}

		order, err := r.Orders().Create(ctx, model.Order{
			UserID:          userID,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   model.PaymentMethod(in.PaymentMethod),
			ShippingFee:     shippingFee,
			Subtotal:        subtotal,
			Total:           subtotal.Add(shippingFee),
			Status:          model.OrderStatusPending,
		})
		if err != nil {
			return err
		}

		items, err := r.OrderItems().CreateBulk(ctx, order.ID, lines)
		if err != nil {
			return err
		}

		//在庫減算（条件付き）。1つでも外れたら全部ロールバック
		for _, id := range productIDs {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, id, requested[id])
			if err != nil {
				return err
			}
			if !ok {
				return insufficientOrderStock(products[id], requested[id])
			}
		}

		//注文した商品はサーバー側のカートから消す
		if err := r.CartItems().DeleteByUserAndProducts(ctx, userID, productIDs); err != nil {
			return err
		}

		order.Items = items
		placed = order
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return PlaceOrderOutput{}, err
		}
		u.log.Error("place order failed", zap.Error(err), zap.Int64("user_id", userID))
		return PlaceOrderOutput{}, errInternal()
	}

	u.log.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("user_id", userID),
		zap.String("total", placed.Total.StringFixed(2)))

	u.publish(ctx, model.OrderEvent{
		EventID:    uuid.NewString(),
		Type:       model.OrderEventPlaced,
		OrderID:    placed.ID,
		UserID:     placed.UserID,
		Status:     placed.Status,
		Total:      placed.Total,
		OccurredAt: u.now().UTC(),
	})

	return PlaceOrderOutput{Message: "Order placed successfully", Order: placed}, nil
}

// 自分の注文（新しい順、明細つき）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		u.log.Error("list orders failed", zap.Error(err), zap.Int64("user_id", userID))
		return OrderListOutput{}, errInternal()
	}
	return OrderListOutput{Orders: orders}, nil
}

// 他人の注文は403
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (OrderDetailOutput, error) {
	if userID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
	}
	if err != nil {
		u.log.Error("find order failed", zap.Error(err), zap.Int64("order_id", orderID))
		return OrderDetailOutput{}, errInternal()
	}
	if o.UserID != userID {
		return OrderDetailOutput{}, NewHTTPError(http.StatusForbidden, "Unauthorized")
	}
	return OrderDetailOutput{Order: o}, nil
}

// コミット後に送る。失敗しても注文は成功のまま
func (u *OrderUsecase) publish(ctx context.Context, evt model.OrderEvent) {
	if err := u.events.PublishOrderEvent(ctx, evt); err != nil {
		u.log.Warn("publish order event failed",
			zap.Error(err),
			zap.String("type", string(evt.Type)),
			zap.Int64("order_id", evt.OrderID))
	}
}

func insufficientOrderStock(p model.Product, requested int64) error {
	return newDetailError(http.StatusUnprocessableEntity,
		fmt.Sprintf("Insufficient stock for %s. Available: %d", p.Name, p.Quantity),
		map[string]interface{}{
			"product_id": p.ID,
			"available":  p.Quantity,
			"requested":  requested,
		})
}
