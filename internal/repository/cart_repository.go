package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

// CartStorage は端末セッションごとのカート行を丸ごと保存する。
type CartStorage interface {
	// 保存が無ければ空。読めないデータは ErrCorruptData。
	Load(ctx context.Context, sessionID string) ([]model.CartLine, error)
	Save(ctx context.Context, sessionID string, lines []model.CartLine) error
	Delete(ctx context.Context, sessionID string) error
}

// セッションの保存・取得・削除
type SessionStore interface {
	Save(ctx context.Context, rec model.SessionRecord, ttl time.Duration) error
	// 無ければ ErrNotFound、読めなければ ErrCorruptData
	Load(ctx context.Context, sessionID string) (model.SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

// OTPの一時保存
type OTPStore interface {
	Save(ctx context.Context, ch model.OTPChallenge, ttl time.Duration) error
	Load(ctx context.Context, phone string) (model.OTPChallenge, error)
	Delete(ctx context.Context, phone string) error
}
