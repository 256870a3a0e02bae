package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
)

// 決済台帳
type PaymentRecordRepository interface {
	// 同じ決済IDがあれば ErrConflict
	Create(ctx context.Context, rec model.PaymentRecord) error
	FindByPaymentID(ctx context.Context, paymentID string) (model.PaymentRecord, error)
	MarkRecorded(ctx context.Context, paymentID string, orderID string, at time.Time) error
	// 注文が未保存のものを古い順に
	ListUnrecorded(ctx context.Context, limit int) ([]model.PaymentRecord, error)
}
