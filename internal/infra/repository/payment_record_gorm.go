package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type paymentRecordGormRepository struct {
	db *gorm.DB
}

func NewPaymentRecordGormRepository(db *gorm.DB) repo.PaymentRecordRepository {
	return &paymentRecordGormRepository{db: db}
}

func (r *paymentRecordGormRepository) Create(ctx context.Context, rec model.PaymentRecord) error {
	return mapError(r.db.WithContext(ctx).Create(&rec).Error)
}

func (r *paymentRecordGormRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.PaymentRecord, error) {
	var rec model.PaymentRecord
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&rec).Error; err != nil {
		return model.PaymentRecord{}, mapError(err)
	}
	return rec, nil
}

// 注文保存済みにする
func (r *paymentRecordGormRepository) MarkRecorded(ctx context.Context, paymentID string, orderID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.PaymentRecord{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]interface{}{
			"status":      model.PaymentRecordRecorded,
			"order_id":    orderID,
			"recorded_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *paymentRecordGormRepository) ListUnrecorded(ctx context.Context, limit int) ([]model.PaymentRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var recs []model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", model.PaymentRecordConfirmed).
		Order("created_at asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
