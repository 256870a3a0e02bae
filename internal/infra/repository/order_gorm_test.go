package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/db"
	infrarepo "foodorder/internal/infra/repository"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"go.uber.org/goleak"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type orderRepositorySuite struct {
	suite.Suite

	db        *gorm.DB
	feed      *memFeed
	clock     *stepClock
	repo      *infrarepo.OrderGormRepository
	txm       *infrarepo.TxManagerGorm
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestOrderRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container test")
	}
	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t)

	suite.Run(t, new(orderRepositorySuite))
}

// before all tests in the suite
func (suite *orderRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.Require().NoError(err)

	suite.db, err = db.Open(connStr, logger.Silent)
	suite.Require().NoError(err)
	suite.Require().NoError(db.Migrate(suite.db))

	suite.feed = newMemFeed()
	suite.clock = &stepClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	suite.repo = infrarepo.NewOrderGormRepository(suite.db, suite.feed, logging.Discard(), infrarepo.WithClock(suite.clock.Now))
	suite.txm = infrarepo.NewTxManagerGorm(suite.db, suite.repo)
}

// after all tests in the suite
func (suite *orderRepositorySuite) TearDownSuite() {
	ctx := context.Background()

	if suite.db != nil {
		if sqlDB, err := suite.db.DB(); err == nil {
			suite.NoError(sqlDB.Close())
		}
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *orderRepositorySuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE order_items, orders, payment_records, audit_logs, users, menu_items RESTART IDENTITY CASCADE").Error)
	suite.feed.Reset()
}

func (suite *orderRepositorySuite) TestCreate() {
	userID := model.CustomerUserID("9876543210")

	dirty := fakeOrder(userID, 2)
	dirty.Items = append(dirty.Items, model.OrderItem{ItemID: " ", Name: "ghost", Price: 100, Quantity: 1})
	dirty.Total = dirty.Items[0].Price*dirty.Items[0].Quantity + dirty.Items[1].Price*dirty.Items[1].Quantity

	zeroQty := fakeOrder(userID, 1)
	zeroQty.Items[0].Quantity = 0
	zeroQty.Total = zeroQty.Items[0].Price

	tests := []struct {
		name      string
		order     model.Order
		wantItems int
		wantError error
	}{
		{
			name:      "three lines: ok",
			order:     fakeOrder(userID, 3),
			wantItems: 3,
		},
		{
			name:      "line without id dropped: ok",
			order:     dirty,
			wantItems: 2,
		},
		{
			name:      "zero quantity becomes one: ok",
			order:     zeroQty,
			wantItems: 1,
		},
		{
			name: "no valid items",
			order: model.Order{
				UserID: userID,
				Items:  []model.OrderItem{{Name: "no id", Price: 10, Quantity: 1}},
				Total:  10,
			},
			wantError: model.ErrNoValidItems,
		},
		{
			name:      "missing user",
			order:     fakeOrder("", 1),
			wantError: model.ErrMissingUser,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			created, err := suite.repo.Create(ctx, tt.order)
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			assert.NotEmpty(t, created.ID)
			assert.Equal(t, model.OrderStatusPending, created.Status)
			assert.Equal(t, created.ID, created.IdempotencyKey)
			require.Len(t, created.Items, tt.wantItems)
			assert.Equal(t, created.ItemsTotal(), created.Total)

			found, err := suite.repo.FindByID(ctx, created.ID)
			require.NoError(t, err)

			opts := cmp.Options{
				cmpopts.IgnoreFields(model.OrderItem{}, "ID"),
				cmpopts.EquateApproxTime(time.Millisecond),
			}
			if diff := cmp.Diff(created, found, opts); diff != "" {
				t.Errorf("order mismatch (-created +found):\n%s", diff)
			}
		})
	}
}

func (suite *orderRepositorySuite) TestCreate_DuplicateIdempotencyKey() {
	t := suite.T()
	ctx := t.Context()

	o := fakeOrder(model.CustomerUserID("9876543210"), 1)
	o.PaymentMethod = model.PaymentMethodOnline
	o.PaymentID = "pay_" + gofakeit.LetterN(14)
	o.IdempotencyKey = o.PaymentID

	first, err := suite.repo.Create(ctx, o)
	require.NoError(t, err)

	o.OrderRef = "PS3-" + gofakeit.Numerify("#############")
	_, err = suite.repo.Create(ctx, o)
	require.ErrorIs(t, err, repo.ErrConflict)

	found, ok, err := suite.repo.FindByIdempotencyKey(ctx, o.UserID, o.PaymentID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID)

	//他のユーザーからは見えない
	_, ok, err = suite.repo.FindByIdempotencyKey(ctx, model.CustomerUserID("9123456780"), o.PaymentID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = suite.repo.FindByIdempotencyKey(ctx, o.UserID, "pay_missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *orderRepositorySuite) TestListByUserID_NewestFirst() {
	t := suite.T()
	ctx := t.Context()

	alice := model.CustomerUserID("9876543210")
	bob := model.CustomerUserID("9123456780")

	o1, err := suite.repo.Create(ctx, fakeOrder(alice, 1))
	require.NoError(t, err)
	_, err = suite.repo.Create(ctx, fakeOrder(bob, 1))
	require.NoError(t, err)
	o3, err := suite.repo.Create(ctx, fakeOrder(alice, 2))
	require.NoError(t, err)

	mine, err := suite.repo.ListByUserID(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, o3.ID, mine[0].ID)
	assert.Equal(t, o1.ID, mine[1].ID)

	all, err := suite.repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, o3.ID, all[0].ID)
}

func (suite *orderRepositorySuite) TestListAdmin() {
	t := suite.T()
	ctx := t.Context()

	userID := model.CustomerUserID("9876543210")
	pending, err := suite.repo.Create(ctx, fakeOrder(userID, 1))
	require.NoError(t, err)
	confirmed, err := suite.repo.Create(ctx, fakeOrder(userID, 1))
	require.NoError(t, err)
	_, err = suite.repo.UpdateStatus(ctx, confirmed.ID, model.OrderStatusPending, model.OrderStatusConfirmed)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filter  repo.AdminOrderListFilter
		wantIDs []string
	}{
		{
			name:    "no filter",
			filter:  repo.AdminOrderListFilter{},
			wantIDs: []string{confirmed.ID, pending.ID},
		},
		{
			name:    "pending only",
			filter:  repo.AdminOrderListFilter{Statuses: []model.OrderStatus{model.OrderStatusPending}},
			wantIDs: []string{pending.ID},
		},
		{
			name:    "limit",
			filter:  repo.AdminOrderListFilter{Limit: 1},
			wantIDs: []string{confirmed.ID},
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			orders, err := suite.repo.ListAdmin(suite.T().Context(), tt.filter)
			require.NoError(suite.T(), err)

			ids := make([]string, len(orders))
			for i, o := range orders {
				ids[i] = o.ID
			}
			assert.Equal(suite.T(), tt.wantIDs, ids)
		})
	}
}

func (suite *orderRepositorySuite) TestUpdateStatus() {
	t := suite.T()
	ctx := t.Context()

	o, err := suite.repo.Create(ctx, fakeOrder(model.CustomerUserID("9876543210"), 1))
	require.NoError(t, err)

	updated, err := suite.repo.UpdateStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
	assert.True(t, updated.UpdatedAt.After(o.UpdatedAt))

	//古いstatusを前提にした更新は衝突
	_, err = suite.repo.UpdateStatus(ctx, o.ID, model.OrderStatusPending, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, repo.ErrConflict)

	_, err = suite.repo.UpdateStatus(ctx, gofakeit.UUID(), model.OrderStatusPending, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	found, err := suite.repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, found.Status)
}

func (suite *orderRepositorySuite) TestSubscribeForUser() {
	t := suite.T()
	ctx := t.Context()

	alice := model.CustomerUserID("9876543210")
	bob := model.CustomerUserID("9123456780")

	first, err := suite.repo.Create(ctx, fakeOrder(alice, 1))
	require.NoError(t, err)

	var got snapshots
	unsubscribe, err := suite.repo.SubscribeForUser(ctx, alice, got.onUpdate, got.onError)
	require.NoError(t, err)

	//初回スナップショット
	require.Eventually(t, func() bool {
		_, n := got.Last()
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	second, err := suite.repo.Create(ctx, fakeOrder(alice, 2))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last, _ := got.Last()
		return len(last) == 2
	}, 5*time.Second, 20*time.Millisecond)

	last, n := got.Last()
	assert.Equal(t, second.ID, last[0].ID)
	assert.Equal(t, first.ID, last[1].ID)

	//他人の注文では再配信しない
	_, err = suite.repo.Create(ctx, fakeOrder(bob, 1))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, n2 := got.Last()
	assert.Equal(t, n, n2)

	_, err = suite.repo.UpdateStatus(ctx, first.ID, model.OrderStatusPending, model.OrderStatusConfirmed)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		last, _ := got.Last()
		return len(last) == 2 && last[1].Status == model.OrderStatusConfirmed
	}, 5*time.Second, 20*time.Millisecond)

	unsubscribe()
	//二回目は何もしない
	unsubscribe()

	_, before := got.Last()
	_, err = suite.repo.Create(ctx, fakeOrder(alice, 1))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	_, after := got.Last()
	assert.Equal(t, before, after)
	assert.Empty(t, got.Errors())
}

func (suite *orderRepositorySuite) TestSubscribeAll_FeedClosed() {
	t := suite.T()
	ctx := t.Context()

	var got snapshots
	unsubscribe, err := suite.repo.SubscribeAll(ctx, got.onUpdate, got.onError)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool {
		_, n := got.Last()
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	suite.feed.CloseAll()

	require.Eventually(t, func() bool {
		return len(got.Errors()) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func (suite *orderRepositorySuite) TestSubscribeForUser_IndexMissing() {
	t := suite.T()
	ctx := t.Context()

	migrator := suite.db.Migrator()
	require.NoError(t, migrator.DropIndex(&model.Order{}, model.OrderIdxUserCreated))
	defer func() {
		require.NoError(t, migrator.CreateIndex(&model.Order{}, model.OrderIdxUserCreated))
	}()

	var got snapshots
	_, err := suite.repo.SubscribeForUser(ctx, model.CustomerUserID("9876543210"), got.onUpdate, got.onError)
	require.ErrorIs(t, err, repo.ErrIndexMissing)

	_, n := got.Last()
	assert.Zero(t, n)
}

func (suite *orderRepositorySuite) TestWithinTx_PublishesAfterCommit() {
	t := suite.T()
	ctx := t.Context()

	payments := infrarepo.NewPaymentRecordGormRepository(suite.db)
	userID := model.CustomerUserID("9876543210")
	paymentID := "pay_" + gofakeit.LetterN(14)

	o := fakeOrder(userID, 2)
	o.PaymentMethod = model.PaymentMethodOnline
	o.PaymentID = paymentID
	o.IdempotencyKey = paymentID

	require.NoError(t, payments.Create(ctx, model.PaymentRecord{
		PaymentID:  paymentID,
		UserID:     userID,
		OrderRef:   o.OrderRef,
		Amount:     o.Total,
		Method:     model.PaymentMethodOnline,
		Status:     model.PaymentRecordConfirmed,
		OrderDraft: "{}",
	}))

	unrecorded, err := payments.ListUnrecorded(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unrecorded, 1)

	//ロールバックしたら通知しない
	boom := errors.New("boom")
	err = suite.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().Create(ctx, o); err != nil {
			return err
		}
		assert.Empty(t, suite.feed.Published())
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, suite.feed.Published())

	var created model.Order
	err = suite.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		created, err = r.Orders().Create(ctx, o)
		if err != nil {
			return err
		}
		return r.Payments().MarkRecorded(ctx, paymentID, created.ID, suite.clock.Now())
	})
	require.NoError(t, err)

	published := suite.feed.Published()
	require.Len(t, published, 1)
	assert.Equal(t, created.ID, published[0].OrderID)

	rec, err := payments.FindByPaymentID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRecordRecorded, rec.Status)
	assert.Equal(t, created.ID, rec.OrderID)

	unrecorded, err = payments.ListUnrecorded(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, unrecorded)
}

func (suite *orderRepositorySuite) TestUserRepository() {
	t := suite.T()
	ctx := t.Context()

	users := infrarepo.NewUserGormRepository(suite.db)
	phone := "9876543210"

	require.NoError(t, users.Create(ctx, &model.User{ID: model.CustomerUserID(phone), Phone: phone, Name: "Ravi", Role: model.RoleCustomer}))
	//電話番号はロールに関係なく一意
	err := users.Create(ctx, &model.User{ID: model.AdminUserID(phone), Phone: phone, Name: "Admin", Role: model.RoleAdmin, AdminPin: "1234"})
	require.ErrorIs(t, err, repo.ErrConflict)

	u, err := users.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, model.CustomerUserID(phone), u.ID)
	assert.Equal(t, model.RoleCustomer, u.Role)

	at := suite.clock.Now()
	require.NoError(t, users.PromoteToAdmin(ctx, u.ID, "1234", at))
	u, err = users.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, "1234", u.AdminPin)

	require.NoError(t, users.TouchLogin(ctx, model.CustomerUserID(phone), at))
	u, err = users.FindByID(ctx, model.CustomerUserID(phone))
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	assert.WithinDuration(t, at, *u.LastLoginAt, time.Millisecond)

	_, err = users.FindByPhone(ctx, "9000000009")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, users.TouchLogin(ctx, "nobody", at), repo.ErrNotFound)
	assert.ErrorIs(t, users.PromoteToAdmin(ctx, "nobody", "1234", at), repo.ErrNotFound)
}

func (suite *orderRepositorySuite) TestMenuRepository() {
	t := suite.T()
	ctx := t.Context()

	menu := infrarepo.NewMenuGormRepository(suite.db)
	items := []model.MenuItem{
		{ID: "p1", Name: "Cheese Pizza", Category: "Pizza", Price: 160, IsAvailable: true,
			Sizes: []model.SizeVariant{{Label: "Medium", Price: 160}, {Label: "Large", Price: 240}}},
		{ID: "p2", Name: "Burnt Pizza", Category: "Pizza", Price: 90, IsAvailable: false},
		{ID: "d1", Name: "Cold Coffee", Category: "Drinks", Price: 60, IsAvailable: true},
	}
	require.NoError(t, suite.db.WithContext(ctx).Create(&items).Error)

	got, err := menu.ListAvailable(ctx)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, it := range got {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"d1", "p1"}, ids)

	p1, err := menu.FindByID(ctx, "p1")
	require.NoError(t, err)
	if diff := cmp.Diff(items[0].Sizes, p1.Sizes); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}

	_, err = menu.FindByID(ctx, "zz")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func (suite *orderRepositorySuite) TestAuditLogRepository() {
	t := suite.T()
	ctx := t.Context()

	logs := infrarepo.NewAuditLogGormRepository(suite.db)
	admin := model.AdminUserID("9000000001")
	base := suite.clock.Now()

	for i, id := range []string{"o1", "o2", "o3"} {
		require.NoError(t, logs.Create(ctx, model.AuditLog{
			ActorUserID:  admin,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   id,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, logs.Create(ctx, model.AuditLog{
		ActorUserID:  admin,
		Action:       model.AuditActionReconcilePayment,
		ResourceType: model.AuditResourcePayment,
		ResourceID:   "pay_1",
		CreatedAt:    base.Add(time.Hour),
	}))

	action := model.AuditActionUpdateOrderStatus
	from := base.Add(time.Minute)
	got, err := logs.List(ctx, repo.AuditLogFilter{Action: &action, CreatedFrom: &from})
	require.NoError(t, err)
	require.Len(t, got, 2)
	//新しい順
	assert.Equal(t, "o3", got[0].ResourceID)
	assert.Equal(t, "o2", got[1].ResourceID)

	got, err = logs.List(ctx, repo.AuditLogFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o3", got[0].ResourceID)
}
