package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

type AdminOrderListFilter struct {
	Statuses []model.OrderStatus
	UserID   *string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// OrderStore は注文の読み書き。トランザクション内でも使う。
type OrderStore interface {
	// 検証して保存し、採番済みの注文を返す
	Create(ctx context.Context, order model.Order) (model.Order, error)
	FindByID(ctx context.Context, orderID string) (model.Order, error)

	//そのユーザーの注文だけを検索する（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error)

	// 新しい順
	ListAll(ctx context.Context) ([]model.Order, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, error)

	// 現在のステータスが from のときだけ to に変える。
	// 他の更新が先に入っていれば ErrConflict。
	UpdateStatus(ctx context.Context, orderID string, from model.OrderStatus, to model.OrderStatus) (model.Order, error)
}

type OrdersListener func(orders []model.Order)
type ErrorListener func(err error)

// 購読解除。呼ぶまで購読は続く。何度呼んでもよい。
type Unsubscribe func()

type OrderRepository interface {
	OrderStore

	// 全注文の購読（管理者用）
	SubscribeAll(ctx context.Context, onUpdate OrdersListener, onError ErrorListener) (Unsubscribe, error)
	// 1ユーザーの注文の購読
	SubscribeForUser(ctx context.Context, userID string, onUpdate OrdersListener, onError ErrorListener) (Unsubscribe, error)
}
