package model

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodOnline
}

var (
	ErrMissingUser   = errors.New("user id is required")
	ErrNoValidItems  = errors.New("no valid items in order")
	ErrInvalidTotal  = errors.New("total must be positive")
	ErrTotalMismatch = errors.New("total does not match items")
)

// OrderIdxUserCreated はユーザー別の注文一覧で使う複合インデックス。
const OrderIdxUserCreated = "idx_orders_user_created"

// 注文。明細は作成時点のスナップショット。
type Order struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderRef       string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_ref"`
	UserID         string        `gorm:"type:varchar(64);not null;index:idx_orders_user_created,priority:1" json:"user_id"`
	Items          []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Total          int64         `gorm:"not null" json:"total"`
	PaymentMethod  PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentID      string        `gorm:"type:varchar(255);not null;index" json:"payment_id"`
	IdempotencyKey string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CustomerName   string        `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone  string        `gorm:"type:varchar(20)" json:"customer_phone"`
	Status         OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderTime      time.Time     `gorm:"not null" json:"order_time"`
	CreatedAt      time.Time     `gorm:"not null;index:idx_orders_user_created,priority:2;index:idx_orders_created_at" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

// 明細の合計
func (o Order) ItemsTotal() int64 {
	return lo.SumBy(o.Items, func(it OrderItem) int64 { return it.Price * it.Quantity })
}

// 文字列の前後空白を落とし、明細を SanitizeOrderItems に通す。
func SanitizeOrder(o Order) Order {
	o.OrderRef = strings.TrimSpace(o.OrderRef)
	o.UserID = strings.TrimSpace(o.UserID)
	o.PaymentID = strings.TrimSpace(o.PaymentID)
	o.IdempotencyKey = strings.TrimSpace(o.IdempotencyKey)
	o.CustomerName = strings.TrimSpace(o.CustomerName)
	o.CustomerPhone = strings.TrimSpace(o.CustomerPhone)
	o.Items = SanitizeOrderItems(o.Items)
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return o
}

func (o Order) Validate() error {
	if o.UserID == "" {
		return ErrMissingUser
	}
	if len(o.Items) == 0 {
		return ErrNoValidItems
	}
	if o.Total <= 0 {
		return ErrInvalidTotal
	}
	if o.Total != o.ItemsTotal() {
		return ErrTotalMismatch
	}
	return nil
}
