package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
	log  *zap.Logger
}

func NewAuditLogUsecase(logs repo.AuditLogRepository, log *zap.Logger) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs, log: log}
}

// GET /admin/audit-logs のクエリ（文字列のまま）
type ListAuditLogsInput struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         string
	To           string
	Limit        int
	Offset       int
}

type AuditLogListOutput struct {
	AuditLogs []model.AuditLog `json:"audit_logs"`
}

func (u *AuditLogUsecase) List(ctx context.Context, in ListAuditLogsInput) (AuditLogListOutput, error) {
	q := repo.AuditLogQuery{
		Action:       model.AuditAction(in.Action),
		ResourceType: model.AuditResourceType(in.ResourceType),
		Limit:        in.Limit,
		Offset:       in.Offset,
	}
	if in.ActorUserID != nil {
		q.ActorUserID = *in.ActorUserID
	}
	if in.ResourceID != nil {
		q.ResourceID = *in.ResourceID
	}

	fields := map[string]string{}
	if t, ok, err := parseRFC3339(in.From); err != nil {
		fields["from"] = "from must be RFC3339"
	} else if ok {
		q.Since = t
	}
	if t, ok, err := parseRFC3339(in.To); err != nil {
		fields["to"] = "to must be RFC3339"
	} else if ok {
		q.Until = t
	}
	if in.Limit < 0 || in.Limit > repo.MaxAuditLogLimit {
		fields["limit"] = fmt.Sprintf("limit must be between 1 and %d", repo.MaxAuditLogLimit)
	}
	if in.Offset < 0 {
		fields["offset"] = "offset must be at least 0"
	}
	if len(fields) > 0 {
		return AuditLogListOutput{}, NewValidationError(fields)
	}

	logs, err := u.logs.List(ctx, q)
	if err != nil {
		u.log.Error("list audit logs failed", zap.Error(err))
		return AuditLogListOutput{}, errInternal()
	}
	return AuditLogListOutput{AuditLogs: logs}, nil
}

// 空文字は指定なし
func parseRFC3339(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
