package usecase

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"

	"github.com/shopspring/decimal"
)

// 決済1回分の依頼。金額は主単位。
type PaymentRequest struct {
	CheckoutID    string
	Method        model.PaymentMethod
	Amount        int64
	Currency      string
	Receipt       string
	CustomerName  string
	CustomerPhone string
}

const MsgOnlineUnavailable = "Online payment is not available. Please choose Cash on Delivery."

// PaymentProcessor は現金とオンラインを1つの結果にまとめる。何も保存しない。
type PaymentProcessor struct {
	server PaymentServer
	widget CheckoutWidget
	keyID  string
	log    logging.Logger
	now    func() time.Time
}

type PaymentOption func(*PaymentProcessor)

// WithPaymentClock は決済IDの時刻部分に使う時計を差し替える。
func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(p *PaymentProcessor) { p.now = now }
}

// server / widget が nil ならオンライン決済は使えない
func NewPaymentProcessor(server PaymentServer, widget CheckoutWidget, keyID string, log logging.Logger, opts ...PaymentOption) *PaymentProcessor {
	p := &PaymentProcessor{
		server: server,
		widget: widget,
		keyID:  keyID,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PaymentProcessor) Process(ctx context.Context, req PaymentRequest) model.PaymentResult {
	switch req.Method {
	case model.PaymentMethodCash:
		//外部呼び出しなし
		return model.NewPaymentSuccess(model.NewCashPaymentID(p.now()), "", false)
	case model.PaymentMethodOnline:
		return p.processOnline(ctx, req)
	}
	return model.NewPaymentFailure(model.PaymentFailed, "invalid payment method")
}

// ゲートウェイ注文作成 → 決済画面 → サーバー検証
func (p *PaymentProcessor) processOnline(ctx context.Context, req PaymentRequest) model.PaymentResult {
	if p.server == nil || p.widget == nil {
		return model.NewPaymentFailure(model.PaymentFailed, MsgOnlineUnavailable)
	}

	gwOrder, err := p.server.CreateOrder(ctx, CreateGatewayOrderInput{
		Amount:   decimal.NewFromInt(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    map[string]string{"order_ref": req.Receipt},
	})
	if err != nil {
		p.log.Errorf("payment: create gateway order failed: ref=%s err=%v", req.Receipt, err)
		return model.NewPaymentFailure(model.PaymentFailed, model.MsgPaymentFailed)
	}

	resp, err := p.widget.Open(ctx, WidgetRequest{
		CheckoutID:     req.CheckoutID,
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       gwOrder.Currency,
		KeyID:          p.keyID,
		Description:    "Order " + req.Receipt,
		Prefill: map[string]string{
			"name":    req.CustomerName,
			"contact": req.CustomerPhone,
		},
	})
	if err != nil {
		p.log.Warnf("payment: checkout interrupted: ref=%s err=%v", req.Receipt, err)
		return model.NewPaymentFailure(model.PaymentFailed, model.MsgPaymentInterrupted)
	}
	if resp.Dismissed {
		return model.NewPaymentFailure(model.PaymentCancelled, model.MsgPaymentCancelled)
	}

	//別の注文の支払いは受け付けない
	if resp.GatewayOrderID != "" && resp.GatewayOrderID != gwOrder.ID {
		p.log.Warnf("payment: gateway order mismatch: want=%s got=%s", gwOrder.ID, resp.GatewayOrderID)
		return model.NewPaymentFailure(model.PaymentVerificationFailed, model.MsgPaymentVerificationFailed)
	}

	out, err := p.server.VerifyPayment(ctx, VerifyPaymentInput{
		GatewayOrderID: gwOrder.ID,
		PaymentID:      resp.PaymentID,
		Signature:      resp.Signature,
	})
	if err != nil || !out.Verified {
		if err != nil {
			p.log.Errorf("payment: verify failed: payment=%s err=%v", resp.PaymentID, err)
		}
		return model.NewPaymentFailure(model.PaymentVerificationFailed, model.MsgPaymentVerificationFailed)
	}

	return model.NewPaymentSuccess(out.PaymentID, gwOrder.ID, true)
}
