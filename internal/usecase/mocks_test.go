package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
	}
}

func customerSession(sid string) usecase.Session {
	id := model.NewIdentity(model.User{ID: "customer-9876543210", Phone: "9876543210", Name: "Ravi Kumar", Role: model.RoleCustomer})
	return usecase.Session{State: usecase.SessionAuthenticated, ID: sid, Identity: &id}
}

func adminSession(sid string) usecase.Session {
	id := model.NewIdentity(model.User{ID: "admin-9000000001", Phone: "9000000001", Role: model.RoleAdmin})
	return usecase.Session{State: usecase.SessionAuthenticated, ID: sid, Identity: &id}
}

// =====================
// ストアのfake（redis の代わり）
// =====================

type memCartStore struct {
	mu      sync.Mutex
	data    map[string][]model.CartLine
	loadErr error
	saveErr error
}

func newMemCartStore() *memCartStore {
	return &memCartStore{data: map[string][]model.CartLine{}}
}

func (s *memCartStore) Load(ctx context.Context, sessionID string) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	lines, ok := s.data[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]model.CartLine(nil), lines...), nil
}

func (s *memCartStore) Save(ctx context.Context, sessionID string, lines []model.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if len(lines) == 0 {
		delete(s.data, sessionID)
		return nil
	}
	s.data[sessionID] = append([]model.CartLine(nil), lines...)
	return nil
}

func (s *memCartStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *memCartStore) Has(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[sessionID]
	return ok
}

type memSessionStore struct {
	mu   sync.Mutex
	data map[string]model.SessionRecord
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{data: map[string]model.SessionRecord{}}
}

func (s *memSessionStore) Save(ctx context.Context, rec model.SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.SessionID] = rec
	return nil
}

func (s *memSessionStore) Load(ctx context.Context, sessionID string) (model.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[sessionID]
	if !ok {
		return model.SessionRecord{}, repo.ErrNotFound
	}
	return rec, nil
}

func (s *memSessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

type memOTPStore struct {
	mu   sync.Mutex
	data map[string]model.OTPChallenge
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{data: map[string]model.OTPChallenge{}}
}

func (s *memOTPStore) Save(ctx context.Context, ch model.OTPChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ch.Phone] = ch
	return nil
}

func (s *memOTPStore) Load(ctx context.Context, phone string) (model.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.data[phone]
	if !ok {
		return model.OTPChallenge{}, repo.ErrNotFound
	}
	return ch, nil
}

func (s *memOTPStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, phone)
	return nil
}

// =====================
// Repository mocks
// =====================

type MenuRepoMock struct{ mock.Mock }

func (m *MenuRepoMock) FindByID(ctx context.Context, id string) (model.MenuItem, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(model.MenuItem)
	return it, args.Error(1)
}

func (m *MenuRepoMock) ListAvailable(ctx context.Context) ([]model.MenuItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.MenuItem)
	return items, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) PromoteToAdmin(ctx context.Context, userID string, pin string, at time.Time) error {
	args := m.Called(ctx, userID, pin, at)
	return args.Error(0)
}

func (m *UserRepoMock) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	args := m.Called(ctx, order)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID string, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAll(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID string, from model.OrderStatus, to model.OrderStatus) (model.Order, error) {
	args := m.Called(ctx, orderID, from, to)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) SubscribeAll(ctx context.Context, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	args := m.Called(ctx)
	unsub, _ := args.Get(0).(repo.Unsubscribe)
	return unsub, args.Error(1)
}

func (m *OrderRepoMock) SubscribeForUser(ctx context.Context, userID string, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	args := m.Called(ctx, userID)
	unsub, _ := args.Get(0).(repo.Unsubscribe)
	return unsub, args.Error(1)
}

type LedgerRepoMock struct{ mock.Mock }

func (m *LedgerRepoMock) Create(ctx context.Context, rec model.PaymentRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *LedgerRepoMock) FindByPaymentID(ctx context.Context, paymentID string) (model.PaymentRecord, error) {
	args := m.Called(ctx, paymentID)
	rec, _ := args.Get(0).(model.PaymentRecord)
	return rec, args.Error(1)
}

func (m *LedgerRepoMock) MarkRecorded(ctx context.Context, paymentID string, orderID string, at time.Time) error {
	args := m.Called(ctx, paymentID, orderID, at)
	return args.Error(0)
}

func (m *LedgerRepoMock) ListUnrecorded(ctx context.Context, limit int) ([]model.PaymentRecord, error) {
	args := m.Called(ctx, limit)
	recs, _ := args.Get(0).([]model.PaymentRecord)
	return recs, args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定する
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders   repo.OrderStore
	payments repo.PaymentRecordRepository
	audit    repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderStore                { return r.orders }
func (r *TxReposMock) Payments() repo.PaymentRecordRepository { return r.payments }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository     { return r.audit }

func newTx(orders repo.OrderStore, payments repo.PaymentRecordRepository, audit repo.AuditLogRepository) *TxManagerMock {
	tx := &TxManagerMock{Repos: &TxReposMock{orders: orders, payments: payments, audit: audit}}
	tx.On("WithinTx", mock.Anything).Return()
	return tx
}

// =====================
// 外部サービス mocks
// =====================

type EventPublisherMock struct{ mock.Mock }

func (m *EventPublisherMock) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type PaymentServerMock struct{ mock.Mock }

func (m *PaymentServerMock) CreateOrder(ctx context.Context, in usecase.CreateGatewayOrderInput) (model.GatewayOrder, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(model.GatewayOrder)
	return o, args.Error(1)
}

func (m *PaymentServerMock) VerifyPayment(ctx context.Context, in usecase.VerifyPaymentInput) (usecase.VerifyPaymentOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(usecase.VerifyPaymentOutput)
	return out, args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (model.GatewayOrder, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(model.GatewayOrder)
	return o, args.Error(1)
}

func (m *GatewayMock) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

type SMSMock struct{ mock.Mock }

func (m *SMSMock) SendOTP(ctx context.Context, phone string, code string) (string, error) {
	args := m.Called(ctx, phone, code)
	return args.String(0), args.Error(1)
}

type QRMock struct{ mock.Mock }

func (m *QRMock) OrderPNG(orderID string) ([]byte, error) {
	args := m.Called(orderID)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// widgetFunc は決済画面の代わり
type widgetFunc func(ctx context.Context, req usecase.WidgetRequest) (usecase.WidgetResponse, error)

func (f widgetFunc) Open(ctx context.Context, req usecase.WidgetRequest) (usecase.WidgetResponse, error) {
	return f(ctx, req)
}
