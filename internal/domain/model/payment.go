package model

import "time"

type PaymentOutcome string

const (
	PaymentSucceeded          PaymentOutcome = "succeeded"
	PaymentFailed             PaymentOutcome = "failed"
	PaymentCancelled          PaymentOutcome = "cancelled"
	PaymentVerificationFailed PaymentOutcome = "verification_failed"
)

const (
	MsgPaymentCancelled          = "Payment cancelled by user"
	MsgPaymentVerificationFailed = "Payment verification failed. If money was deducted, it will be refunded."
	MsgPaymentFailed             = "Payment failed. Please try again or choose Cash on Delivery."
	MsgPaymentInterrupted        = "Payment was interrupted. Please try again."
)

// CashPaymentPrefix はオンライン決済IDと区別するための接頭辞。
const CashPaymentPrefix = "COD-"

// PaymentResult は決済1回分の結果。保存はしない。
type PaymentResult struct {
	Success        bool           `json:"success"`
	Outcome        PaymentOutcome `json:"outcome"`
	PaymentID      string         `json:"payment_id,omitempty"`
	GatewayOrderID string         `json:"gateway_order_id,omitempty"`
	Verified       bool           `json:"verified"`
	Error          string         `json:"error,omitempty"`
}

func NewPaymentSuccess(paymentID string, gatewayOrderID string, verified bool) PaymentResult {
	return PaymentResult{
		Success:        true,
		Outcome:        PaymentSucceeded,
		PaymentID:      paymentID,
		GatewayOrderID: gatewayOrderID,
		Verified:       verified,
	}
}

func NewPaymentFailure(outcome PaymentOutcome, message string) PaymentResult {
	return PaymentResult{
		Success: false,
		Outcome: outcome,
		Error:   message,
	}
}

// ゲートウェイ側の注文作成リクエスト（金額は最小単位）
type GatewayOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type PaymentRecordStatus string

const (
	//決済は確認済み、注文はまだ
	PaymentRecordConfirmed PaymentRecordStatus = "confirmed"
	//注文まで保存済み
	PaymentRecordRecorded PaymentRecordStatus = "recorded"
)

// PaymentRecord はオンライン決済の確認直後に残す台帳。
// 注文保存に失敗しても OrderDraft から復旧できる。
type PaymentRecord struct {
	PaymentID      string              `gorm:"primaryKey;type:varchar(255)" json:"payment_id"`
	GatewayOrderID string              `gorm:"type:varchar(255);not null;default:''" json:"gateway_order_id"`
	UserID         string              `gorm:"type:varchar(64);not null;index" json:"user_id"`
	OrderRef       string              `gorm:"type:varchar(64);not null" json:"order_ref"`
	Amount         int64               `gorm:"not null" json:"amount"`
	Method         PaymentMethod       `gorm:"type:varchar(20);not null" json:"method"`
	Status         PaymentRecordStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	OrderDraft     string              `gorm:"type:text;not null" json:"-"`
	OrderID        string              `gorm:"type:varchar(36);not null;default:''" json:"order_id,omitempty"`
	RecordedAt     *time.Time          `json:"recorded_at,omitempty"`
	CreatedAt      time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null" json:"updated_at"`
}
