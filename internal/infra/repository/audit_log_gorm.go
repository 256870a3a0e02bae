package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
)

type AuditLogGormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db, now: time.Now}
}

var _ repo.AuditLogRepository = (*AuditLogGormRepository)(nil)

func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	return mapError(r.db.WithContext(ctx).Create(&entry).Error)
}

func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := r.db.WithContext(ctx).
		Scopes(auditConditions(f), paginate(f.Limit, f.Offset)).
		Order("created_at desc").Order("id desc").
		Find(&out).Error
	if err != nil {
		return []model.AuditLog{}, err
	}
	return out, nil
}

func auditConditions(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		eq := []struct {
			col string
			set bool
			val any
		}{
			{"actor_user_id", f.ActorUserID != nil, lo.FromPtr(f.ActorUserID)},
			{"action", f.Action != nil, lo.FromPtr(f.Action)},
			{"resource_type", f.ResourceType != nil, lo.FromPtr(f.ResourceType)},
			{"resource_id", f.ResourceID != nil, lo.FromPtr(f.ResourceID)},
		}
		for _, c := range eq {
			if c.set {
				q = q.Where(c.col+" = ?", c.val)
			}
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at < ?", *f.CreatedTo)
		}
		return q
	}
}

// 範囲外の limit は既定値に戻す
func paginate(limit int, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(limit).Offset(max(offset, 0))
	}
}
