package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

// AuditLogFilter は監査ログの検索条件。nil の項目では絞らない。
// 期間は [CreatedFrom, CreatedTo)。Limit が 0 以下なら既定件数。
type AuditLogFilter struct {
	ActorUserID  *string
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry model.AuditLog) error
	// 新しい順
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, error)
}
