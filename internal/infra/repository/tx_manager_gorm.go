package repository

import (
	"context"

	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders    repo.OrderStore
	payments  repo.PaymentRecordRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderStore                { return r.orders }
func (r *txReposGorm) Payments() repo.PaymentRecordRepository { return r.payments }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository     { return r.auditLogs }

type TxManagerGorm struct {
	db     *gorm.DB
	orders *OrderGormRepository
}

func NewTxManagerGorm(db *gorm.DB, orders *OrderGormRepository) *TxManagerGorm {
	return &TxManagerGorm{db: db, orders: orders}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	var pending []repo.OrderChange

	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:    tm.orders.withTx(tx, &pending),
			payments:  NewPaymentRecordGormRepository(tx),
			auditLogs: NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
	if err != nil {
		return err
	}

	//commit後に通知
	publishChanges(ctx, tm.orders.feed, tm.orders.log, pending)
	return nil
}
