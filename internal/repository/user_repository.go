package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（電話番号が重複なら ErrConflict）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//電話番号からユーザーを一件取得する。
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	// 既存ユーザーを管理者にしてPINを設定する
	PromoteToAdmin(ctx context.Context, userID string, pin string, at time.Time) error
	//最後のログイン時刻を更新
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}
