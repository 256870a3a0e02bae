package usecase

import (
	"context"

	"foodorder/internal/domain/model"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidatePhoneLogin(ctx context.Context, phone string, name string) error
	ValidateAdminLogin(ctx context.Context, phone string, pin string) error
	ValidateOTP(ctx context.Context, phone string, code string) error
}

// 注文イベントの送り先（Kafka）
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error
}

// 外部決済サービス
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (model.GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type SMSProvider interface {
	SendOTP(ctx context.Context, phone string, code string) (string, error)
}

type QRRenderer interface {
	OrderPNG(orderID string) ([]byte, error)
}

// PaymentServer はサーバー側の決済処理（注文作成と検証）。
type PaymentServer interface {
	CreateOrder(ctx context.Context, in CreateGatewayOrderInput) (model.GatewayOrder, error)
	VerifyPayment(ctx context.Context, in VerifyPaymentInput) (VerifyPaymentOutput, error)
}

// CheckoutWidget はクライアント側の決済画面。完了か閉じるまで戻らない。
type CheckoutWidget interface {
	Open(ctx context.Context, req WidgetRequest) (WidgetResponse, error)
}

type WidgetRequest struct {
	CheckoutID     string            `json:"checkout_id"`
	GatewayOrderID string            `json:"gateway_order_id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	KeyID          string            `json:"key_id,omitempty"`
	Prefill        map[string]string `json:"prefill,omitempty"`
	Description    string            `json:"description,omitempty"`
}

// Dismissed なら他は空
type WidgetResponse struct {
	Dismissed      bool
	GatewayOrderID string
	PaymentID      string
	Signature      string
}
