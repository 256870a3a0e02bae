package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type MenuService interface {
	List(ctx context.Context) ([]usecase.MenuCategory, error)
	Get(ctx context.Context, id string) (model.MenuItem, error)
}

// /menu の公開API
type MenuHandler struct {
	uc MenuService
}

// DI
func NewMenuHandler(uc MenuService) *MenuHandler {
	return &MenuHandler{uc: uc}
}

func (h *MenuHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/menu", h.list)
	g.GET("/menu/:id", h.detail)
}

func (h *MenuHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MenuHandler) detail(c echo.Context) error {
	m, err := h.uc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
