package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// メニューの読み取りだけを約束。
type MenuRepository interface {
	FindByID(ctx context.Context, id string) (model.MenuItem, error)
	ListAvailable(ctx context.Context) ([]model.MenuItem, error)
}
