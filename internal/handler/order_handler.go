package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderService interface {
	ListMine(ctx context.Context, sess usecase.Session) ([]model.Order, error)
	GetDetail(ctx context.Context, sess usecase.Session, orderID string) (model.Order, error)
	QRCode(ctx context.Context, sess usecase.Session, orderID string) ([]byte, error)
	Watch(ctx context.Context, sess usecase.Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error)
}

// 注文履歴
type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group, guards ...echo.MiddlewareFunc) {
	og := g.Group("/orders", guards...)

	og.GET("", h.list)
	og.GET("/stream", h.stream)
	og.GET("/:id", h.detail)
	og.GET("/:id/qr", h.qr)
}

func (h *OrderHandler) list(c echo.Context) error {
	out, err := h.uc.ListMine(c.Request().Context(), session(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	o, err := h.uc.GetDetail(c.Request().Context(), session(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) qr(c echo.Context) error {
	png, err := h.uc.QRCode(c.Request().Context(), session(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// 自分の注文の変化をSSEで受け取る
func (h *OrderHandler) stream(c echo.Context) error {
	sess := session(c)
	return streamOrders(c, func(ctx context.Context, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
		return h.uc.Watch(ctx, sess, onUpdate, onError)
	})
}
