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
)

// ReconcileUsecase は課金済みで注文が無い決済を台帳から復旧する。
type ReconcileUsecase struct {
	ledger repo.PaymentRecordRepository
	tx     repo.TransactionManager
	events OrderEventPublisher
	log    logging.Logger
	now    func() time.Time
}

func NewReconcileUsecase(ledger repo.PaymentRecordRepository, tx repo.TransactionManager, events OrderEventPublisher, log logging.Logger) *ReconcileUsecase {
	return &ReconcileUsecase{
		ledger: ledger,
		tx:     tx,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// 古い順
func (u *ReconcileUsecase) ListUnrecorded(ctx context.Context, sess Session, limit int) ([]model.PaymentRecord, error) {
	if _, err := requireAdmin(sess); err != nil {
		return []model.PaymentRecord{}, err
	}
	recs, err := u.ledger.ListUnrecorded(ctx, limit)
	if err != nil {
		return []model.PaymentRecord{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return recs, nil
}

// Recover は台帳の下書きから注文を作る。既に注文があればそれに紐づけるだけ。
func (u *ReconcileUsecase) Recover(ctx context.Context, sess Session, paymentID string) (model.Order, error) {
	actor, err := requireAdmin(sess)
	if err != nil {
		return model.Order{}, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid payment id")
	}

	rec, err := u.ledger.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if rec.Status == model.PaymentRecordRecorded {
		return model.Order{}, NewHTTPError(http.StatusConflict, "payment already recorded")
	}

	var draft model.Order
	if err := json.Unmarshal([]byte(rec.OrderDraft), &draft); err != nil {
		u.log.Errorf("reconcile: broken order draft: payment=%s err=%v", paymentID, err)
		return model.Order{}, NewHTTPError(http.StatusUnprocessableEntity, "order draft is unreadable")
	}
	draft.ID = ""
	draft.UserID = rec.UserID
	draft.PaymentID = rec.PaymentID
	draft.IdempotencyKey = rec.PaymentID
	draft.Status = model.OrderStatusPending

	var (
		out     model.Order
		created bool
	)
	//注文番号が既に使われていたら作り直す
	for attempt := 1; attempt <= orderRefAttempts; attempt++ {
		out, created, err = u.recordOnce(ctx, actor, rec, draft)
		if !errors.Is(err, repo.ErrConflict) {
			break
		}
		u.log.Warnf("reconcile: order write conflict: ref=%s payment=%s attempt=%d", draft.OrderRef, rec.PaymentID, attempt)
		draft.OrderRef = model.NewOrderRef(model.OrderRefPrefix(draft.OrderRef), u.now())
	}
	if err != nil {
		u.log.Errorf("reconcile: recover failed: payment=%s err=%v", paymentID, err)
		if errors.Is(err, model.ErrNoValidItems) || errors.Is(err, model.ErrTotalMismatch) ||
			errors.Is(err, model.ErrInvalidTotal) || errors.Is(err, model.ErrMissingUser) {
			return model.Order{}, NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if created {
		ev := model.NewOrderEvent(model.OrderEventCreated, out, u.now())
		if err := u.events.PublishOrderEvent(context.WithoutCancel(ctx), ev); err != nil {
			u.log.Errorf("reconcile: publish order event failed: order=%s err=%v", out.ID, err)
		}
	}
	u.log.Infof("reconcile: payment %s recorded as order %s by %s", rec.PaymentID, out.ID, actor.ID)
	return out, nil
}

func (u *ReconcileUsecase) recordOnce(ctx context.Context, actor model.Identity, rec model.PaymentRecord, draft model.Order) (out model.Order, created bool, err error) {
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, rec.UserID, rec.PaymentID)
		if err != nil {
			return err
		}
		if found {
			out = existing
		} else {
			out, err = r.Orders().Create(ctx, draft)
			if err != nil {
				return err
			}
			created = true
		}

		now := u.now()
		if err := r.Payments().MarkRecorded(ctx, rec.PaymentID, out.ID, now); err != nil {
			return err
		}

		after, _ := json.Marshal(map[string]string{"order_id": out.ID, "status": string(model.PaymentRecordRecorded)})
		before, _ := json.Marshal(map[string]string{"status": string(rec.Status)})
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.ID,
			Action:       model.AuditActionReconcilePayment,
			ResourceType: model.AuditResourcePayment,
			ResourceID:   rec.PaymentID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		})
	})
	return out, created, err
}
