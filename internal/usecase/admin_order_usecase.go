package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"github.com/samber/lo"
)

const MsgOrderUpdatedElsewhere = "Order was updated by someone else"

type AdminOrderUsecase struct {
	orders    repo.OrderRepository
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	events    OrderEventPublisher
	loc       *time.Location
	log       logging.Logger
	now       func() time.Time
}

func NewAdminOrderUsecase(
	orders repo.OrderRepository,
	tx repo.TransactionManager,
	auditRepo repo.AuditLogRepository,
	events OrderEventPublisher,
	loc *time.Location,
	log logging.Logger,
) *AdminOrderUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &AdminOrderUsecase{
		orders:    orders,
		tx:        tx,
		auditRepo: auditRepo,
		events:    events,
		loc:       loc,
		log:       log,
		now:       time.Now,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

func requireAdmin(sess Session) (model.Identity, error) {
	if !sess.Authenticated() {
		return model.Identity{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !sess.Identity.IsAdmin() {
		return model.Identity{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return *sess.Identity, nil
}

// 画面の絞り込みを検索条件にする
func (u *AdminOrderUsecase) listFilter(f model.OrderFilter) repo.AdminOrderListFilter {
	switch f {
	case model.OrderFilterActive:
		return repo.AdminOrderListFilter{Statuses: []model.OrderStatus{model.OrderStatusPending, model.OrderStatusConfirmed}}
	case model.OrderFilterAll:
		from := model.StartOfDay(u.now(), u.loc)
		to := from.AddDate(0, 0, 1)
		return repo.AdminOrderListFilter{From: &from, To: &to}
	default:
		return repo.AdminOrderListFilter{Statuses: []model.OrderStatus{model.OrderStatus(f)}}
	}
}

// 注文一覧（新しい順）
func (u *AdminOrderUsecase) List(ctx context.Context, sess Session, filter string) ([]model.Order, error) {
	if _, err := requireAdmin(sess); err != nil {
		return []model.Order{}, err
	}
	f, err := model.ParseOrderFilter(filter)
	if err != nil {
		return []model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid filter")
	}

	orders, err := u.orders.ListAdmin(ctx, u.listFilter(f))
	if err != nil {
		u.log.Errorf("admin: list orders failed: filter=%s err=%v", f, err)
		return []model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return model.FilterOrders(orders, f, u.now(), u.loc), nil
}

// 進行中と当日分を合わせて集計する
func (u *AdminOrderUsecase) Stats(ctx context.Context, sess Session) (model.OrderStats, error) {
	if _, err := requireAdmin(sess); err != nil {
		return model.OrderStats{}, err
	}

	active, err := u.orders.ListAdmin(ctx, u.listFilter(model.OrderFilterActive))
	if err != nil {
		return model.OrderStats{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	today, err := u.orders.ListAdmin(ctx, u.listFilter(model.OrderFilterAll))
	if err != nil {
		return model.OrderStats{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	merged := lo.UniqBy(append(active, today...), func(o model.Order) string { return o.ID })
	return model.ComputeOrderStats(merged, u.now(), u.loc), nil
}

type statusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

func statusJSON(s model.OrderStatus) string {
	b, _ := json.Marshal(statusSnapshot{Status: s})
	return string(b)
}

// ステータス更新。許可された遷移だけ、読んだ時点の状態からの更新だけ通す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, sess Session, orderID string, in AdminUpdateOrderStatusInput) (model.Order, error) {
	actor, err := requireAdmin(sess)
	if err != nil {
		return model.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next, err := model.ParseOrderStatus(in.Status)
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var updated model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 終端や逆戻りはここで止める
		if _, err := o.Status.TransitionTo(next); err != nil {
			return NewHTTPError(http.StatusBadRequest, "cannot change order from "+string(o.Status)+" to "+string(next))
		}

		updated, err = r.Orders().UpdateStatus(ctx, orderID, o.Status, next)
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, MsgOrderUpdatedElsewhere)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.ID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   statusJSON(o.Status),
			AfterJSON:    statusJSON(next),
			CreatedAt:    u.now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	ev := model.NewOrderEvent(model.OrderEventStatusChanged, updated, u.now())
	if err := u.events.PublishOrderEvent(context.WithoutCancel(ctx), ev); err != nil {
		u.log.Errorf("admin: publish order event failed: order=%s err=%v", updated.ID, err)
	}
	return updated, nil
}

// 全注文の購読
func (u *AdminOrderUsecase) Watch(ctx context.Context, sess Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	if _, err := requireAdmin(sess); err != nil {
		return nil, err
	}
	unsub, err := u.orders.SubscribeAll(ctx, onUpdate, onError)
	if err != nil {
		u.log.Errorf("admin: subscribe failed: %v", err)
		return nil, NewHTTPError(http.StatusInternalServerError, "subscribe error")
	}
	return unsub, nil
}

func (u *AdminOrderUsecase) AuditLogs(ctx context.Context, sess Session, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if _, err := requireAdmin(sess); err != nil {
		return []model.AuditLog{}, err
	}
	if f.Limit < 0 || f.Limit > 200 || f.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid paging")
	}
	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

// 期間パラメータでtime.Timeが必要なら、handlerでtime.Parseしてここに入れる
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
