package repository

import (
	"context"

	"shopapi/internal/domain/model"
	repo "shopapi/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// Append はトランザクション内で呼ばれる（変更と同じコミットで残る）
func (r *auditLogGormRepository) Append(ctx context.Context, entry model.AuditLog) error {
	entry.ID = 0
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, q repo.AuditLogQuery) ([]model.AuditLog, error) {
	entries := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditLogWhere(q), auditLogPage(q.Limit, q.Offset)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func auditLogWhere(q repo.AuditLogQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.ActorUserID > 0 {
			db = db.Where("actor_user_id = ?", q.ActorUserID)
		}
		if q.Action != "" {
			db = db.Where("action = ?", q.Action)
		}
		if q.ResourceType != "" {
			db = db.Where("resource_type = ?", q.ResourceType)
		}
		if q.ResourceID > 0 {
			db = db.Where("resource_id = ?", q.ResourceID)
		}
		if !q.Since.IsZero() {
			db = db.Where("created_at >= ?", q.Since)
		}
		if !q.Until.IsZero() {
			db = db.Where("created_at <= ?", q.Until)
		}
		return db
	}
}

// 範囲外は既定値に寄せる
func auditLogPage(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > repo.MaxAuditLogLimit {
		limit = repo.DefaultAuditLogLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit).Offset(offset)
	}
}
