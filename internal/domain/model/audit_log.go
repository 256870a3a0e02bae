package model

import "time"

type AuditAction string

const (
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	// 課金済みで注文の無い決済から注文を作り直した
	AuditActionReconcilePayment AuditAction = "RECONCILE_PAYMENT"
)

type AuditResourceType string

const (
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourcePayment AuditResourceType = "payment"
)

// AuditLog は管理者の操作1件。変更前後は JSON 文字列で持つ。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  string            `gorm:"type:varchar(64);not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource,priority:1" json:"resource_type"`
	ResourceID   string            `gorm:"type:varchar(255);not null;index:idx_audit_resource,priority:2" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json,omitempty"`
	AfterJSON    string            `gorm:"type:text" json:"after_json,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
