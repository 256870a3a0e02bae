package handler

import (
	"context"
	"net/http"
	"strconv"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderService interface {
	List(ctx context.Context, sess usecase.Session, filter string) ([]model.Order, error)
	Stats(ctx context.Context, sess usecase.Session) (model.OrderStats, error)
	UpdateStatus(ctx context.Context, sess usecase.Session, orderID string, in usecase.AdminUpdateOrderStatusInput) (model.Order, error)
	Watch(ctx context.Context, sess usecase.Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error)
	AuditLogs(ctx context.Context, sess usecase.Session, f repo.AuditLogFilter) ([]model.AuditLog, error)
}

type ReconcileService interface {
	ListUnrecorded(ctx context.Context, sess usecase.Session, limit int) ([]model.PaymentRecord, error)
	Recover(ctx context.Context, sess usecase.Session, paymentID string) (model.Order, error)
}

type AdminOrderHandler struct {
	uc        AdminOrderService
	reconcile ReconcileService
}

func NewAdminOrderHandler(uc AdminOrderService, reconcile ReconcileService) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, reconcile: reconcile}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(g *echo.Group, guards ...echo.MiddlewareFunc) {
	admin := g.Group("/admin", guards...)

	admin.GET("/orders", h.list)
	admin.GET("/orders/stats", h.stats)
	admin.GET("/orders/stream", h.stream)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.GET("/audit-logs", h.auditLogs)
	admin.GET("/payments/unrecorded", h.unrecorded)
	admin.POST("/payments/:paymentId/reconcile", h.reconcilePayment)
}

// ?filter=active|all|pending|confirmed|delivered|cancelled
func (h *AdminOrderHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), session(c), c.QueryParam("filter"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) stats(c echo.Context) error {
	out, err := h.uc.Stats(c.Request().Context(), session(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}

	o, err := h.uc.UpdateStatus(
		c.Request().Context(),
		session(c),
		c.Param("id"),
		usecase.AdminUpdateOrderStatusInput{Status: req.Status},
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *AdminOrderHandler) stream(c echo.Context) error {
	sess := session(c)
	return streamOrders(c, func(ctx context.Context, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
		return h.uc.Watch(ctx, sess, onUpdate, onError)
	})
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	f := repo.AuditLogFilter{Limit: 50}

	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid limit"))
		}
		f.Limit = l
	}
	if v := c.QueryParam("offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid offset"))
		}
		f.Offset = o
	}
	if v := c.QueryParam("actor_user_id"); v != "" {
		f.ActorUserID = &v
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if v := c.QueryParam("resource_id"); v != "" {
		f.ResourceID = &v
	}
	if v := c.QueryParam("from"); v != "" {
		t, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorBody("invalid from"))
		}
		f.CreatedFrom = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorBody("invalid to"))
		}
		f.CreatedTo = t
	}

	out, err := h.uc.AuditLogs(c.Request().Context(), session(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 課金済みで注文の無い決済
func (h *AdminOrderHandler) unrecorded(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid limit"))
		}
		limit = l
	}

	out, err := h.reconcile.ListUnrecorded(c.Request().Context(), session(c), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) reconcilePayment(c echo.Context) error {
	o, err := h.reconcile.Recover(c.Request().Context(), session(c), c.Param("paymentId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
