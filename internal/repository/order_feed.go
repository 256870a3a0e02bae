package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// 注文の変更通知
type OrderChange struct {
	OrderID string            `json:"order_id"`
	UserID  string            `json:"user_id"`
	Status  model.OrderStatus `json:"status"`
}

type OrderChangeStream interface {
	Changes() <-chan OrderChange
	Close() error
}

// OrderChangeFeed はインスタンスをまたいで注文の変更を知らせる。
type OrderChangeFeed interface {
	Publish(ctx context.Context, change OrderChange) error
	// 購読が確立してから返る
	Listen(ctx context.Context) (OrderChangeStream, error)
}
