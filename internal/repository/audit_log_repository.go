package repository

import (
	"context"
	"time"

	"shopapi/internal/domain/model"
)

const (
	DefaultAuditLogLimit = 50
	MaxAuditLogLimit     = 200
)

// AuditLogQuery はゼロ値の項目では絞り込まない。Since/Until は両端を含む
type AuditLogQuery struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// 商品の作成・更新・削除と注文ステータス変更の記録。更新と削除は無い
type AuditLogRepository interface {
	Append(ctx context.Context, entry model.AuditLog) error
	List(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, error)
}
