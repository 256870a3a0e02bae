package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type GatewayService interface {
	CreateOrder(ctx context.Context, in usecase.CreateGatewayOrderInput) (model.GatewayOrder, error)
	VerifyPayment(ctx context.Context, in usecase.VerifyPaymentInput) (usecase.VerifyPaymentOutput, error)
}

// 決済ゲートウェイの注文作成と署名検証
type PaymentHandler struct {
	uc GatewayService
}

func NewPaymentHandler(uc GatewayService) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

// 金額は主単位（ルピー）。小数も受ける。
type CreateOrderRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
}

// razorpay_* のキーでも gateway* のキーでも受ける
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	GatewayOrderID    string `json:"gatewayOrderId"`
	GatewayPaymentID  string `json:"gatewayPaymentId"`
	Signature         string `json:"signature"`
}

func (r VerifyPaymentRequest) input() usecase.VerifyPaymentInput {
	in := usecase.VerifyPaymentInput{
		GatewayOrderID: r.RazorpayOrderID,
		PaymentID:      r.RazorpayPaymentID,
		Signature:      r.RazorpaySignature,
	}
	if in.GatewayOrderID == "" {
		in.GatewayOrderID = r.GatewayOrderID
	}
	if in.PaymentID == "" {
		in.PaymentID = r.GatewayPaymentID
	}
	if in.Signature == "" {
		in.Signature = r.Signature
	}
	return in
}

type verifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Verified  bool   `json:"verified"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/create-order", h.createOrder)
	g.POST("/verify-payment", h.verifyPayment)
}

func (h *PaymentHandler) createOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), usecase.CreateGatewayOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) verifyPayment(c echo.Context) error {
	var req VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	out, err := h.uc.VerifyPayment(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, verifyPaymentResponse{Success: true, Verified: out.Verified, PaymentID: out.PaymentID})
}
