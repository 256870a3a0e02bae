package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	MsgPaymentNotConfigured = "Payment service not configured"
	MsgAmountRequired       = "Amount is required"
	MsgMissingPaymentFields = "Missing required payment details"
	MsgInvalidSignature     = "Invalid payment signature"
)

// POST /create-order の入力。金額は主単位（ルピー）。
type CreateGatewayOrderInput struct {
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"-"`
}

type VerifyPaymentInput struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

type VerifyPaymentOutput struct {
	Verified  bool   `json:"verified"`
	PaymentID string `json:"paymentId,omitempty"`
}

// GatewayUsecase はゲートウェイの秘密鍵を使う処理をサーバー側に閉じ込める。
type GatewayUsecase struct {
	gateway         PaymentGateway
	keyID           string
	defaultCurrency string
	log             logging.Logger
	now             func() time.Time
}

// gateway が nil なら未設定として扱う
func NewGatewayUsecase(gateway PaymentGateway, keyID string, defaultCurrency string, log logging.Logger) *GatewayUsecase {
	return &GatewayUsecase{
		gateway:         gateway,
		keyID:           keyID,
		defaultCurrency: defaultCurrency,
		log:             log,
		now:             time.Now,
	}
}

func (u *GatewayUsecase) Enabled() bool {
	return u.gateway != nil
}

// クライアントの決済画面に渡す公開キー
func (u *GatewayUsecase) KeyID() string {
	return u.keyID
}

// 主単位の金額を通貨の最小単位に直す（INRなら100倍）
func ToMinorUnits(amount decimal.Decimal, code string) (int64, string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, "", fmt.Errorf("invalid currency %q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)

	minor := amount.Shift(int32(scale))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, "", fmt.Errorf("amount %s has too many decimal places for %s", amount, unit)
	}
	return minor.IntPart(), unit.String(), nil
}

func (u *GatewayUsecase) CreateOrder(ctx context.Context, in CreateGatewayOrderInput) (model.GatewayOrder, error) {
	if u.gateway == nil {
		return model.GatewayOrder{}, NewHTTPError(http.StatusServiceUnavailable, MsgPaymentNotConfigured)
	}
	if !in.Amount.IsPositive() {
		return model.GatewayOrder{}, NewHTTPError(http.StatusBadRequest, MsgAmountRequired)
	}

	code := in.Currency
	if strings.TrimSpace(code) == "" {
		code = u.defaultCurrency
	}
	minor, code, err := ToMinorUnits(in.Amount, code)
	if err != nil {
		return model.GatewayOrder{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	now := u.now()
	receipt := strings.TrimSpace(in.Receipt)
	if receipt == "" {
		receipt = fmt.Sprintf("receipt_%d", now.UnixMilli())
	}
	notes := map[string]string{"created_at": now.UTC().Format(time.RFC3339)}
	for k, v := range in.Notes {
		notes[k] = v
	}

	order, err := u.gateway.CreateOrder(ctx, model.GatewayOrderRequest{
		Amount:   minor,
		Currency: code,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		u.log.Errorf("gateway create order failed: receipt=%s err=%v", receipt, err)
		return model.GatewayOrder{}, NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return order, nil
}

// 署名の検証結果だけを返す。不一致はエラーではなく Verified=false。
func (u *GatewayUsecase) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (VerifyPaymentOutput, error) {
	if u.gateway == nil {
		return VerifyPaymentOutput{}, NewHTTPError(http.StatusServiceUnavailable, MsgPaymentNotConfigured)
	}
	paymentID := strings.TrimSpace(in.PaymentID)
	signature := strings.TrimSpace(in.Signature)
	if paymentID == "" || signature == "" {
		return VerifyPaymentOutput{}, NewHTTPError(http.StatusBadRequest, MsgMissingPaymentFields)
	}

	if !u.gateway.VerifySignature(strings.TrimSpace(in.GatewayOrderID), paymentID, signature) {
		u.log.Warnf("payment signature mismatch: payment=%s order=%s", paymentID, in.GatewayOrderID)
		return VerifyPaymentOutput{Verified: false}, nil
	}
	return VerifyPaymentOutput{Verified: true, PaymentID: paymentID}, nil
}
