package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"
)

const MsgOrdersUnavailable = "Order history is temporarily unavailable"

// OrderUsecase は顧客の注文履歴。
type OrderUsecase struct {
	orders repo.OrderRepository
	qr     QRRenderer
	log    logging.Logger
}

func NewOrderUsecase(orders repo.OrderRepository, qr QRRenderer, log logging.Logger) *OrderUsecase {
	return &OrderUsecase{orders: orders, qr: qr, log: log}
}

func requireIdentity(sess Session) (model.Identity, error) {
	if !sess.Authenticated() {
		return model.Identity{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return *sess.Identity, nil
}

// 新しい順
func (u *OrderUsecase) ListMine(ctx context.Context, sess Session) ([]model.Order, error) {
	id, err := requireIdentity(sess)
	if err != nil {
		return []model.Order{}, err
	}

	orders, err := u.orders.ListByUserID(ctx, id.ID)
	if err != nil {
		u.log.Errorf("orders: list failed: user=%s err=%v", id.ID, err)
		return []model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

func (u *OrderUsecase) GetDetail(ctx context.Context, sess Session, orderID string) (model.Order, error) {
	id, err := requireIdentity(sess)
	if err != nil {
		return model.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//他人の注文は「存在しない扱い」にする
	if o.UserID != id.ID && !id.IsAdmin() {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return o, nil
}

// 注文詳細URLのQR（PNG）
func (u *OrderUsecase) QRCode(ctx context.Context, sess Session, orderID string) ([]byte, error) {
	o, err := u.GetDetail(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	png, err := u.qr.OrderPNG(o.ID)
	if err != nil {
		u.log.Errorf("orders: qr render failed: order=%s err=%v", o.ID, err)
		return nil, NewHTTPError(http.StatusInternalServerError, "qr error")
	}
	return png, nil
}

// Watch は自分の注文の購読。呼び出し側が必ず解除する。
func (u *OrderUsecase) Watch(ctx context.Context, sess Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	id, err := requireIdentity(sess)
	if err != nil {
		return nil, err
	}

	unsub, err := u.orders.SubscribeForUser(ctx, id.ID, onUpdate, onError)
	if errors.Is(err, repo.ErrIndexMissing) {
		return nil, NewHTTPError(http.StatusServiceUnavailable, MsgOrdersUnavailable)
	}
	if err != nil {
		u.log.Errorf("orders: subscribe failed: user=%s err=%v", id.ID, err)
		return nil, NewHTTPError(http.StatusInternalServerError, "subscribe error")
	}
	return unsub, nil
}
