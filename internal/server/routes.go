package server

import (
	"foodorder/internal/handler"
	"foodorder/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Menu       *handler.MenuHandler
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	Payment    *handler.PaymentHandler
	Orders     *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
}

// RegisterRoutes は /api 以下をまとめて登録する。全リクエストでセッションを読む。
func RegisterRoutes(e *echo.Echo, loadSession echo.MiddlewareFunc, h Handlers) *echo.Group {
	api := e.Group("/api", loadSession)

	h.Auth.RegisterRoutes(api)
	h.Menu.RegisterRoutes(api)
	h.Cart.RegisterRoutes(api)
	h.Checkout.RegisterRoutes(api)
	h.Payment.RegisterRoutes(api)
	h.Orders.RegisterRoutes(api, middleware.RequireAuth())
	h.AdminOrder.RegisterRoutes(api, middleware.AdminRoleGuard())

	return api
}
