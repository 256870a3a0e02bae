package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutService interface {
	Start(ctx context.Context, sess usecase.Session, method model.PaymentMethod) (usecase.CheckoutStatus, error)
	Status(ctx context.Context, sess usecase.Session, checkoutID string) (usecase.CheckoutStatus, error)
	CompletePayment(ctx context.Context, sess usecase.Session, checkoutID string, resp usecase.WidgetResponse) (usecase.CheckoutStatus, error)
	DismissPayment(ctx context.Context, sess usecase.Session, checkoutID string) (usecase.CheckoutStatus, error)
}

type CheckoutHandler struct {
	uc CheckoutService
}

func NewCheckoutHandler(uc CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

// 決済画面から返ってきた値
type CheckoutPaymentRequest struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

type checkoutErrorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// 未ログインはログイン画面へ誘導する
func writeCheckoutError(c echo.Context, err error) error {
	he, ok := usecase.AsHTTPError(err)
	if !ok || he.Status != http.StatusUnauthorized {
		return writeError(c, err)
	}
	return c.JSON(he.Status, checkoutErrorResponse{Success: false, Error: he.Message, Redirect: usecase.RedirectLogin})
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	cg := g.Group("/checkout")

	cg.POST("", h.start)
	cg.GET("/:id", h.status)
	cg.POST("/:id/payment", h.completePayment)
	cg.POST("/:id/dismiss", h.dismiss)
}

// 現金は結果まで、オンラインは決済画面の情報が出た時点で返す
func (h *CheckoutHandler) start(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	st, err := h.uc.Start(c.Request().Context(), session(c), req.PaymentMethod)
	if err != nil {
		return writeCheckoutError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *CheckoutHandler) status(c echo.Context) error {
	st, err := h.uc.Status(c.Request().Context(), session(c), c.Param("id"))
	if err != nil {
		return writeCheckoutError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *CheckoutHandler) completePayment(c echo.Context) error {
	var req CheckoutPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	st, err := h.uc.CompletePayment(c.Request().Context(), session(c), c.Param("id"), usecase.WidgetResponse{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		return writeCheckoutError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *CheckoutHandler) dismiss(c echo.Context) error {
	st, err := h.uc.DismissPayment(c.Request().Context(), session(c), c.Param("id"))
	if err != nil {
		return writeCheckoutError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
