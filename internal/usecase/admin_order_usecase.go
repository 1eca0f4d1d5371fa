package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	events OrderEventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	events OrderEventPublisher,
	log *zap.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:     tx,
		orders: orders,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
}

type AdminOrderListOutput struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type UpdateOrderStatusOutput struct {
	Message string      `json:"message"`
	Order   model.Order `json:"order"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminListOrdersInput) (AdminOrderListOutput, error) {
	fields := map[string]string{}
	if in.Page < 1 {
		fields["page"] = "page must be at least 1"
	}
	if in.Limit < 1 || in.Limit > 100 {
		fields["limit"] = "limit must be between 1 and 100"
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.OrderStatus(status).Valid() {
		fields["status"] = "The selected status is invalid."
	}
	if len(fields) > 0 {
		return AdminOrderListOutput{}, NewValidationError(fields)
	}

	orders, total, err := u.orders.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: status,
		UserID: in.UserID,
	})
	if err != nil {
		u.log.Error("admin list orders failed", zap.Error(err))
		return AdminOrderListOutput{}, errInternal()
	}

	return AdminOrderListOutput{Orders: orders, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// UpdateStatus は許可された遷移だけ通す。同じステータスなら何もしない。
// cancelledにしたら在庫を戻す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, rawStatus string) (UpdateOrderStatusOutput, error) {
	if actorAdminUserID <= 0 {
		return UpdateOrderStatusOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	next := model.OrderStatus(strings.TrimSpace(rawStatus))
	if next == "" {
		return UpdateOrderStatusOutput{}, newFieldError("status", "status is required")
	}
	if !next.Valid() {
		return UpdateOrderStatusOutput{}, newFieldError("status", "The selected status is invalid.")
	}
	if orderID <= 0 {
		return UpdateOrderStatusOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
	}

	var (
		updated model.Order
		prev    model.OrderStatus
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		prev = o.Status

		// すでに同じなら何もしない（200）
		if o.Status != next {
			if !o.Status.CanTransitionTo(next) {
				return newDetailError(http.StatusUnprocessableEntity,
					fmt.Sprintf("Cannot change order status from %s to %s", o.Status, next),
					map[string]interface{}{"from": o.Status, "to": next})
			}

			// 在庫戻し
			if next == model.OrderStatusCancelled {
				items, err := r.OrderItems().ListByOrderID(ctx, orderID)
				if err != nil {
					return err
				}
				for _, it := range items {
					if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
						return err
					}
				}
			}

			if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
				return err
			}

			if err := r.AuditLogs().Append(ctx, model.AuditLog{
				ActorUserID:  actorAdminUserID,
				Action:       model.AuditActionUpdateOrderStatus,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   orderID,
				BeforeJSON:   toAuditJSON(map[string]string{"status": string(o.Status)}),
				AfterJSON:    toAuditJSON(map[string]string{"status": string(next)}),
				CreatedAt:    u.now(),
			}); err != nil {
				return err
			}
			changed = true
		}

		updated, err = r.Orders().FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return UpdateOrderStatusOutput{}, err
		}
		if errors.Is(err, repo.ErrNotFound) {
			return UpdateOrderStatusOutput{}, NewHTTPError(http.StatusNotFound, "Order not found")
		}
		u.log.Error("update order status failed", zap.Error(err), zap.Int64("order_id", orderID))
		return UpdateOrderStatusOutput{}, errInternal()
	}

	if changed {
		u.log.Info("order status changed",
			zap.Int64("order_id", orderID),
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
			zap.Int64("actor_user_id", actorAdminUserID))

		if err := u.events.PublishOrderEvent(ctx, model.OrderEvent{
			EventID:        uuid.NewString(),
			Type:           model.OrderEventStatusChanged,
			OrderID:        updated.ID,
			UserID:         updated.UserID,
			Status:         updated.Status,
			PreviousStatus: prev,
			Total:          updated.Total,
			OccurredAt:     u.now().UTC(),
		}); err != nil {
			u.log.Warn("publish order event failed", zap.Error(err), zap.Int64("order_id", orderID))
		}
	}

	return UpdateOrderStatusOutput{Message: "Order status updated successfully", Order: updated}, nil
}
