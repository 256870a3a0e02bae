package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartService interface {
	Get(ctx context.Context, sessionID string) (usecase.CartView, error)
	AddLine(ctx context.Context, sessionID string, in usecase.AddLineInput) (usecase.CartView, error)
	SetQuantity(ctx context.Context, sessionID string, lineID string, n int64) (usecase.CartView, error)
	RemoveLine(ctx context.Context, sessionID string, lineID string) (usecase.CartView, error)
	Clear(ctx context.Context, sessionID string) error
	QuantityOf(ctx context.Context, sessionID string, itemID string, size string) (int64, error)
}

// /cartのHTTP。ログイン前でも端末セッションごとに使える。
type CartHandler struct {
	uc CartService
}

// DI
func NewCartHandler(uc CartService) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartLineRequest struct {
	ItemID string           `json:"item_id"`
	Size   string           `json:"size"`
	Action model.CartAction `json:"action"`
}

type UpdateCartLineRequest struct {
	Quantity int64 `json:"quantity"`
}

type quantityResponse struct {
	Quantity int64 `json:"quantity"`
}

// /cart, /cart/lines/{lineId} を登録
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	cg := g.Group("/cart")

	cg.GET("", h.getCart)
	cg.DELETE("", h.clear)
	cg.GET("/quantity", h.quantity)
	cg.POST("/lines", h.addLine)
	cg.PATCH("/lines/:lineId", h.patchLine)
	cg.DELETE("/lines/:lineId", h.deleteLine)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context(), session(c).ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addLine(c echo.Context) error {
	var req AddCartLineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	if req.Action == "" {
		req.Action = model.CartActionAdd
	}

	out, err := h.uc.AddLine(c.Request().Context(), session(c).ID, usecase.AddLineInput{
		ItemID: req.ItemID,
		Size:   req.Size,
		Action: req.Action,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchLine(c echo.Context) error {
	var req UpdateCartLineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	out, err := h.uc.SetQuantity(c.Request().Context(), session(c).ID, c.Param("lineId"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteLine(c echo.Context) error {
	out, err := h.uc.RemoveLine(c.Request().Context(), session(c).ID, c.Param("lineId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	if err := h.uc.Clear(c.Request().Context(), session(c).ID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "cleared"})
}

// 商品カードの数量表示用
func (h *CartHandler) quantity(c echo.Context) error {
	itemID := c.QueryParam("item_id")
	if itemID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("invalid item_id"))
	}
	n, err := h.uc.QuantityOf(c.Request().Context(), session(c).ID, itemID, c.QueryParam("size"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, quantityResponse{Quantity: n})
}
