package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	adminListDefaultLimit = 200
	adminListMaxLimit     = 500
)

type OrderGormRepository struct {
	db   *gorm.DB
	feed repo.OrderChangeFeed
	log  logging.Logger
	now  func() time.Time

	// トランザクション中はcommitまで通知をためる
	pending *[]repo.OrderChange
}

type OrderRepoOption func(*OrderGormRepository)

// 作成・更新時刻に使う時計
func WithClock(now func() time.Time) OrderRepoOption {
	return func(r *OrderGormRepository) { r.now = now }
}

func NewOrderGormRepository(db *gorm.DB, feed repo.OrderChangeFeed, log logging.Logger, opts ...OrderRepoOption) *OrderGormRepository {
	r := &OrderGormRepository{db: db, feed: feed, log: log, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ repo.OrderRepository = (*OrderGormRepository)(nil)

// 同じ設定でtx用のrepoを作る
func (r *OrderGormRepository) withTx(tx *gorm.DB, pending *[]repo.OrderChange) *OrderGormRepository {
	return &OrderGormRepository{db: tx, feed: r.feed, log: r.log, now: r.now, pending: pending}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position asc").Order("id asc")
	})
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := preloadItems(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, mapError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	var o model.Order
	err := preloadItems(r.db.WithContext(ctx)).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&o).Error

	if err == nil {
		return o, true, nil
	}
	if mapped := mapError(err); mapped == repo.ErrNotFound {
		return model.Order{}, false, nil
	}
	return model.Order{}, false, err
}

// 新しい順（created_at、同時刻ならid）
func (r *OrderGormRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(preloadItems(r.db.WithContext(ctx)))
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(preloadItems(r.db.WithContext(ctx)).Where("user_id = ?", userID))
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, error) {
	if f.Limit <= 0 {
		f.Limit = adminListDefaultLimit
	}
	if f.Limit > adminListMaxLimit {
		f.Limit = adminListMaxLimit
	}

	q := preloadItems(r.db.WithContext(ctx))

	//status 絞り込み
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	//user_id 絞り込み
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	return r.list(q.Limit(f.Limit))
}

func (r *OrderGormRepository) list(q *gorm.DB) ([]model.Order, error) {
	var items []model.Order
	if err := q.Order("created_at desc").Order("id desc").Find(&items).Error; err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// 注文作成
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	o := model.SanitizeOrder(order)
	if err := o.Validate(); err != nil {
		return model.Order{}, err
	}

	now := r.now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.IdempotencyKey == "" {
		o.IdempotencyKey = o.ID
	}
	if o.OrderTime.IsZero() {
		o.OrderTime = now
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	items := make([]model.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.ID = 0
		it.OrderID = o.ID
		it.Position = i
		items[i] = it
	}
	o.Items = items

	//明細も一緒に保存される
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.Order{}, mapError(err)
	}

	r.notify(ctx, repo.OrderChange{OrderID: o.ID, UserID: o.UserID, Status: o.Status})
	return o, nil
}

// status と updated_at だけ更新する
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, from model.OrderStatus, to model.OrderStatus) (model.Order, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return model.Order{}, res.Error
	}

	if res.RowsAffected == 0 {
		//無いのか、先に変えられたのか
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return model.Order{}, err
		}
		if count == 0 {
			return model.Order{}, repo.ErrNotFound
		}
		return model.Order{}, repo.ErrConflict
	}

	o, err := r.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}

	r.notify(ctx, repo.OrderChange{OrderID: o.ID, UserID: o.UserID, Status: o.Status})
	return o, nil
}

func (r *OrderGormRepository) notify(ctx context.Context, ch repo.OrderChange) {
	if r.pending != nil {
		*r.pending = append(*r.pending, ch)
		return
	}
	publishChanges(ctx, r.feed, r.log, []repo.OrderChange{ch})
}

func publishChanges(ctx context.Context, feed repo.OrderChangeFeed, log logging.Logger, changes []repo.OrderChange) {
	if feed == nil {
		return
	}
	for _, ch := range changes {
		if err := feed.Publish(context.WithoutCancel(ctx), ch); err != nil {
			//保存は済んでいるので購読側の反映が遅れるだけ
			log.Errorf("order feed publish failed: order=%s err=%v", ch.OrderID, err)
		}
	}
}
