package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	repo "foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// helper
// =====================

type errorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// テスト用に固定のセッションを入れる
func withSession(sess usecase.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetSession(c, sess)
			return next(c)
		}
	}
}

func newAPI(sess usecase.Session) (*echo.Echo, *echo.Group) {
	e := echo.New()
	return e, e.Group("/api", withSession(sess))
}

func anonymous() usecase.Session {
	return usecase.Session{State: usecase.SessionAnonymous, ID: "sid-anon"}
}

func customerSession() usecase.Session {
	id := model.Identity{ID: "customer-9876543210", Name: "Ravi Kumar", Phone: "9876543210", Role: model.RoleCustomer}
	return usecase.Session{State: usecase.SessionAuthenticated, ID: "sid-c", Identity: &id}
}

func adminSession() usecase.Session {
	id := model.Identity{ID: "admin-9000000001", Name: "Admin", Phone: "9000000001", Role: model.RoleAdmin}
	return usecase.Session{State: usecase.SessionAuthenticated, ID: "sid-a", Identity: &id}
}

func doJSON(t *testing.T, e *echo.Echo, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body=%s", rec.Body.String())
}

// =====================
// service mocks
// =====================

type AuthServiceMock struct{ mock.Mock }

func (m *AuthServiceMock) LoginWithPhone(ctx context.Context, sessionID string, phone string, name string) usecase.LoginResult {
	args := m.Called(ctx, sessionID, phone, name)
	return args.Get(0).(usecase.LoginResult)
}

func (m *AuthServiceMock) LoginAdmin(ctx context.Context, sessionID string, phone string, pin string) usecase.LoginResult {
	args := m.Called(ctx, sessionID, phone, pin)
	return args.Get(0).(usecase.LoginResult)
}

func (m *AuthServiceMock) SignOut(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type OTPServiceMock struct{ mock.Mock }

func (m *OTPServiceMock) Send(ctx context.Context, phone string) (usecase.OTPSendOutput, error) {
	args := m.Called(ctx, phone)
	out, _ := args.Get(0).(usecase.OTPSendOutput)
	return out, args.Error(1)
}

func (m *OTPServiceMock) Verify(ctx context.Context, phone string, code string) (usecase.OTPVerifyOutput, error) {
	args := m.Called(ctx, phone, code)
	out, _ := args.Get(0).(usecase.OTPVerifyOutput)
	return out, args.Error(1)
}

type CartServiceMock struct{ mock.Mock }

func (m *CartServiceMock) Get(ctx context.Context, sessionID string) (usecase.CartView, error) {
	args := m.Called(ctx, sessionID)
	v, _ := args.Get(0).(usecase.CartView)
	return v, args.Error(1)
}

func (m *CartServiceMock) AddLine(ctx context.Context, sessionID string, in usecase.AddLineInput) (usecase.CartView, error) {
	args := m.Called(ctx, sessionID, in)
	v, _ := args.Get(0).(usecase.CartView)
	return v, args.Error(1)
}

func (m *CartServiceMock) SetQuantity(ctx context.Context, sessionID string, lineID string, n int64) (usecase.CartView, error) {
	args := m.Called(ctx, sessionID, lineID, n)
	v, _ := args.Get(0).(usecase.CartView)
	return v, args.Error(1)
}

func (m *CartServiceMock) RemoveLine(ctx context.Context, sessionID string, lineID string) (usecase.CartView, error) {
	args := m.Called(ctx, sessionID, lineID)
	v, _ := args.Get(0).(usecase.CartView)
	return v, args.Error(1)
}

func (m *CartServiceMock) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *CartServiceMock) QuantityOf(ctx context.Context, sessionID string, itemID string, size string) (int64, error) {
	args := m.Called(ctx, sessionID, itemID, size)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

type CheckoutServiceMock struct{ mock.Mock }

func (m *CheckoutServiceMock) Start(ctx context.Context, sess usecase.Session, method model.PaymentMethod) (usecase.CheckoutStatus, error) {
	args := m.Called(ctx, sess, method)
	st, _ := args.Get(0).(usecase.CheckoutStatus)
	return st, args.Error(1)
}

func (m *CheckoutServiceMock) Status(ctx context.Context, sess usecase.Session, checkoutID string) (usecase.CheckoutStatus, error) {
	args := m.Called(ctx, sess, checkoutID)
	st, _ := args.Get(0).(usecase.CheckoutStatus)
	return st, args.Error(1)
}

func (m *CheckoutServiceMock) CompletePayment(ctx context.Context, sess usecase.Session, checkoutID string, resp usecase.WidgetResponse) (usecase.CheckoutStatus, error) {
	args := m.Called(ctx, sess, checkoutID, resp)
	st, _ := args.Get(0).(usecase.CheckoutStatus)
	return st, args.Error(1)
}

func (m *CheckoutServiceMock) DismissPayment(ctx context.Context, sess usecase.Session, checkoutID string) (usecase.CheckoutStatus, error) {
	args := m.Called(ctx, sess, checkoutID)
	st, _ := args.Get(0).(usecase.CheckoutStatus)
	return st, args.Error(1)
}

type GatewayServiceMock struct{ mock.Mock }

func (m *GatewayServiceMock) CreateOrder(ctx context.Context, in usecase.CreateGatewayOrderInput) (model.GatewayOrder, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(model.GatewayOrder)
	return o, args.Error(1)
}

func (m *GatewayServiceMock) VerifyPayment(ctx context.Context, in usecase.VerifyPaymentInput) (usecase.VerifyPaymentOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(usecase.VerifyPaymentOutput)
	return out, args.Error(1)
}

type OrderServiceMock struct{ mock.Mock }

func (m *OrderServiceMock) ListMine(ctx context.Context, sess usecase.Session) ([]model.Order, error) {
	args := m.Called(ctx, sess)
	o, _ := args.Get(0).([]model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) GetDetail(ctx context.Context, sess usecase.Session, orderID string) (model.Order, error) {
	args := m.Called(ctx, sess, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderServiceMock) QRCode(ctx context.Context, sess usecase.Session, orderID string) ([]byte, error) {
	args := m.Called(ctx, sess, orderID)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// Watch は Run で onUpdate を呼べるように listener も渡す
func (m *OrderServiceMock) Watch(ctx context.Context, sess usecase.Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	args := m.Called(ctx, sess, onUpdate, onError)
	unsub, _ := args.Get(0).(repo.Unsubscribe)
	return unsub, args.Error(1)
}

type AdminOrderServiceMock struct{ mock.Mock }

func (m *AdminOrderServiceMock) List(ctx context.Context, sess usecase.Session, filter string) ([]model.Order, error) {
	args := m.Called(ctx, sess, filter)
	o, _ := args.Get(0).([]model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderServiceMock) Stats(ctx context.Context, sess usecase.Session) (model.OrderStats, error) {
	args := m.Called(ctx, sess)
	s, _ := args.Get(0).(model.OrderStats)
	return s, args.Error(1)
}

func (m *AdminOrderServiceMock) UpdateStatus(ctx context.Context, sess usecase.Session, orderID string, in usecase.AdminUpdateOrderStatusInput) (model.Order, error) {
	args := m.Called(ctx, sess, orderID, in)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdminOrderServiceMock) Watch(ctx context.Context, sess usecase.Session, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	args := m.Called(ctx, sess, onUpdate, onError)
	unsub, _ := args.Get(0).(repo.Unsubscribe)
	return unsub, args.Error(1)
}

func (m *AdminOrderServiceMock) AuditLogs(ctx context.Context, sess usecase.Session, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, sess, f)
	l, _ := args.Get(0).([]model.AuditLog)
	return l, args.Error(1)
}

type ReconcileServiceMock struct{ mock.Mock }

func (m *ReconcileServiceMock) ListUnrecorded(ctx context.Context, sess usecase.Session, limit int) ([]model.PaymentRecord, error) {
	args := m.Called(ctx, sess, limit)
	r, _ := args.Get(0).([]model.PaymentRecord)
	return r, args.Error(1)
}

func (m *ReconcileServiceMock) Recover(ctx context.Context, sess usecase.Session, paymentID string) (model.Order, error) {
	args := m.Called(ctx, sess, paymentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}
