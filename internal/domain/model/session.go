package model

import "time"

// 端末セッションの保存形式
type SessionRecord struct {
	SessionID   string    `json:"session_id"`
	Identity    Identity  `json:"identity"`
	LastLoginAt time.Time `json:"last_login_at"`
}

func (s SessionRecord) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastLoginAt) > timeout
}

// OTPChallenge は送信済みOTPの検証用データ。コードはハッシュで持つ。
type OTPChallenge struct {
	Phone             string    `json:"phone"`
	CodeHash          string    `json:"code_hash"`
	ProviderSessionID string    `json:"provider_session_id"`
	ExpiresAt         time.Time `json:"expires_at"`
	Attempts          int       `json:"attempts"`
}

// OrderEvent はキッチンや集計向けに流す注文イベント。
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"order_id"`
	OrderRef   string      `json:"order_ref"`
	UserID     string      `json:"user_id"`
	Status     OrderStatus `json:"status"`
	Total      int64       `json:"total"`
	OccurredAt time.Time   `json:"occurred_at"`
}

const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
)

func NewOrderEvent(eventType string, o Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		OrderRef:   o.OrderRef,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: at,
	}
}
