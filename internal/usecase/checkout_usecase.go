package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"
)

const (
	MsgLoginToOrder       = "Please login to place order"
	MsgCompleteProfile    = "Please update your profile first"
	MsgCartEmpty          = "Your cart is empty"
	MsgNoValidItems       = "No valid items in cart"
	MsgInvalidMethod      = "Please choose a payment method"
	MsgOrderPlaced        = "Order Placed!"
	MsgOrderCreateFailed  = "Order creation failed. Please try again."
	MsgCheckoutInProgress = "A checkout is already in progress"
	MsgCheckoutNotFound   = "Checkout not found"
	MsgCheckoutNotWaiting = "Checkout is not waiting for payment"
	MsgCheckoutStopped    = "Checkout service is shutting down. Please try again."

	GuestName = "Guest User"

	RedirectLogin  = "/login"
	RedirectOrders = "/orders"
)

// CheckoutDraft は検証を通った注文の下書き。決済前に確定する。
type CheckoutDraft struct {
	SessionID     string
	UserID        string
	Method        model.PaymentMethod
	OrderRef      string
	Items         []model.OrderItem
	Total         int64
	CustomerName  string
	CustomerPhone string
}

// CheckoutResult は1回の注文操作の結果。失敗時は Error をそのまま見せる。
type CheckoutResult struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message,omitempty"`
	Error    string               `json:"error,omitempty"`
	Outcome  model.PaymentOutcome `json:"payment_outcome,omitempty"`
	Redirect string               `json:"redirect,omitempty"`
	Order    *model.Order         `json:"order,omitempty"`
}

func checkoutFailed(msg string) CheckoutResult {
	return CheckoutResult{Success: false, Error: msg}
}

// 注文番号の衝突時に作り直す回数
const orderRefAttempts = 3

type CheckoutUsecase struct {
	carts    *CartUsecase
	payments *PaymentProcessor
	tx       repo.TransactionManager
	ledger   repo.PaymentRecordRepository
	events   OrderEventPublisher
	registry *CheckoutRegistry
	currency string
	prefix   string
	log      logging.Logger
	now      func() time.Time
}

func NewCheckoutUsecase(
	carts *CartUsecase,
	payments *PaymentProcessor,
	tx repo.TransactionManager,
	ledger repo.PaymentRecordRepository,
	events OrderEventPublisher,
	registry *CheckoutRegistry,
	currency string,
	prefix string,
	log logging.Logger,
	opts ...CheckoutOption,
) *CheckoutUsecase {
	u := &CheckoutUsecase{
		carts:    carts,
		payments: payments,
		tx:       tx,
		ledger:   ledger,
		events:   events,
		registry: registry,
		currency: currency,
		prefix:   prefix,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type CheckoutOption func(*CheckoutUsecase)

// WithCheckoutClock は注文番号と注文時刻に使う時計を差し替える。
func WithCheckoutClock(now func() time.Time) CheckoutOption {
	return func(u *CheckoutUsecase) { u.now = now }
}

// Prepare は注文前の検証。ここで失敗したら何も変わらない。
func (u *CheckoutUsecase) Prepare(ctx context.Context, sess Session, method model.PaymentMethod) (CheckoutDraft, error) {
	if !sess.Authenticated() {
		return CheckoutDraft{}, NewHTTPError(http.StatusUnauthorized, MsgLoginToOrder)
	}
	id := *sess.Identity
	if id.MissingContact() {
		return CheckoutDraft{}, NewHTTPError(http.StatusBadRequest, MsgCompleteProfile)
	}
	if !method.Valid() {
		return CheckoutDraft{}, NewHTTPError(http.StatusBadRequest, MsgInvalidMethod)
	}

	lines, err := u.carts.Lines(ctx, sess.ID)
	if err != nil {
		return CheckoutDraft{}, err
	}
	if len(lines) == 0 {
		return CheckoutDraft{}, NewHTTPError(http.StatusBadRequest, MsgCartEmpty)
	}

	//id と name の無い行は落とす
	items := model.SanitizeOrderItems(model.OrderItemsFromCart(lines))
	if len(items) == 0 {
		return CheckoutDraft{}, NewHTTPError(http.StatusBadRequest, MsgNoValidItems)
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = GuestName
	}

	d := CheckoutDraft{
		SessionID:     sess.ID,
		UserID:        id.ID,
		Method:        method,
		OrderRef:      model.NewOrderRef(u.prefix, u.now()),
		Items:         items,
		CustomerName:  name,
		CustomerPhone: id.Phone,
	}
	d.Total = model.Order{Items: items}.ItemsTotal()
	return d, nil
}

func (u *CheckoutUsecase) phase(checkoutID string, p CheckoutPhase) {
	if checkoutID != "" && u.registry != nil {
		u.registry.SetPhase(checkoutID, p)
	}
}

// Execute は決済から注文保存まで。失敗してもカートは残す。
func (u *CheckoutUsecase) Execute(ctx context.Context, d CheckoutDraft, checkoutID string) CheckoutResult {
	u.phase(checkoutID, CheckoutAwaitingPayment)

	pay := u.payments.Process(ctx, PaymentRequest{
		CheckoutID:    checkoutID,
		Method:        d.Method,
		Amount:        d.Total,
		Currency:      u.currency,
		Receipt:       d.OrderRef,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
	})
	if !pay.Success {
		res := checkoutFailed(pay.Error)
		res.Outcome = pay.Outcome
		return res
	}

	u.phase(checkoutID, CheckoutPersisting)

	now := u.now()
	order := model.Order{
		OrderRef:       d.OrderRef,
		UserID:         d.UserID,
		Items:          d.Items,
		Total:          d.Total,
		PaymentMethod:  d.Method,
		PaymentID:      pay.PaymentID,
		IdempotencyKey: pay.PaymentID,
		CustomerName:   d.CustomerName,
		CustomerPhone:  d.CustomerPhone,
		Status:         model.OrderStatusPending,
		OrderTime:      now,
	}

	//課金済みなので注文より先に台帳へ残す
	ledgered := false
	if d.Method == model.PaymentMethodOnline {
		ledgered = u.writeLedger(ctx, order, pay, now)
	}

	created, err := u.persist(ctx, order, ledgered)
	if err != nil {
		u.log.Errorf("checkout: order write failed: ref=%s payment=%s err=%v", d.OrderRef, pay.PaymentID, err)
		res := checkoutFailed(orderFailureMessage(err, d.Method, pay.PaymentID, ledgered))
		res.Outcome = pay.Outcome
		return res
	}

	if err := u.carts.Clear(ctx, d.SessionID); err != nil {
		u.log.Warnf("checkout: cart clear failed: session=%s err=%v", d.SessionID, err)
	}

	ev := model.NewOrderEvent(model.OrderEventCreated, created, now)
	if err := u.events.PublishOrderEvent(context.WithoutCancel(ctx), ev); err != nil {
		u.log.Errorf("checkout: publish order event failed: order=%s err=%v", created.ID, err)
	}

	return CheckoutResult{
		Success:  true,
		Message:  MsgOrderPlaced,
		Outcome:  pay.Outcome,
		Redirect: RedirectOrders,
		Order:    &created,
	}
}

func (u *CheckoutUsecase) writeLedger(ctx context.Context, o model.Order, pay model.PaymentResult, now time.Time) bool {
	draft, err := json.Marshal(o)
	if err != nil {
		u.log.Errorf("checkout: encode order draft failed: payment=%s err=%v", pay.PaymentID, err)
		return false
	}

	err = u.ledger.Create(ctx, model.PaymentRecord{
		PaymentID:      pay.PaymentID,
		GatewayOrderID: pay.GatewayOrderID,
		UserID:         o.UserID,
		OrderRef:       o.OrderRef,
		Amount:         o.Total,
		Method:         o.PaymentMethod,
		Status:         model.PaymentRecordConfirmed,
		OrderDraft:     string(draft),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, repo.ErrConflict) {
		//同じ決済の再送
		return true
	}
	if err != nil {
		u.log.Errorf("checkout: payment ledger write failed: payment=%s err=%v", pay.PaymentID, err)
		return false
	}
	return true
}

// 同じユーザーの同じ決済IDの注文があればそれを返す。
// 一意制約に当たったら注文番号を作り直してトランザクションごとやり直す。
func (u *CheckoutUsecase) persist(ctx context.Context, order model.Order, ledgered bool) (model.Order, error) {
	var (
		out model.Order
		err error
	)
	for attempt := 1; attempt <= orderRefAttempts; attempt++ {
		out, err = u.persistOnce(ctx, order, ledgered)
		if !errors.Is(err, repo.ErrConflict) {
			return out, err
		}
		u.log.Warnf("checkout: order write conflict: ref=%s payment=%s attempt=%d", order.OrderRef, order.PaymentID, attempt)
		order.OrderRef = model.NewOrderRef(u.prefix, u.now())
	}
	return out, err
}

func (u *CheckoutUsecase) persistOnce(ctx context.Context, order model.Order, ledgered bool) (model.Order, error) {
	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, order.UserID, order.IdempotencyKey)
		if err != nil {
			return err
		}
		if found {
			out = existing
		} else {
			out, err = r.Orders().Create(ctx, order)
			if err != nil {
				return err
			}
		}

		if ledgered {
			return r.Payments().MarkRecorded(ctx, order.PaymentID, out.ID, u.now())
		}
		return nil
	})
	return out, err
}

// 検証エラーはそのまま、それ以外は内部の詳細を出さない
func orderFailureMessage(err error, method model.PaymentMethod, paymentID string, ledgered bool) string {
	msg := MsgOrderCreateFailed
	switch {
	case errors.Is(err, model.ErrNoValidItems):
		msg = MsgNoValidItems
	case errors.Is(err, model.ErrMissingUser), errors.Is(err, model.ErrInvalidTotal), errors.Is(err, model.ErrTotalMismatch):
		msg = "Order creation failed: " + err.Error()
	}
	if method != model.PaymentMethodOnline {
		return msg
	}
	if ledgered {
		return msg + fmt.Sprintf(" Your payment %s was received and recorded; your order will be restored by our staff. If it does not appear in your orders, please contact support with this payment ID.", paymentID)
	}
	return msg + fmt.Sprintf(" Your payment was received. Please contact support with payment ID %s.", paymentID)
}

// PlaceOrder は検証から保存までを同期で行う。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, sess Session, method model.PaymentMethod) CheckoutResult {
	d, err := u.Prepare(ctx, sess, method)
	if err != nil {
		return prepareFailed(err)
	}
	return u.Execute(ctx, d, "")
}

func prepareFailed(err error) CheckoutResult {
	he, ok := AsHTTPError(err)
	if !ok {
		return checkoutFailed(MsgOrderCreateFailed)
	}
	res := checkoutFailed(he.Message)
	if he.Status == http.StatusUnauthorized {
		res.Redirect = RedirectLogin
	}
	return res
}

// Start は検証だけ同期で行い、残りをバックグラウンドで進める。
// 決済画面の操作待ちか終了まで待ってから返る。
func (u *CheckoutUsecase) Start(ctx context.Context, sess Session, method model.PaymentMethod) (CheckoutStatus, error) {
	d, err := u.Prepare(ctx, sess, method)
	if err != nil {
		return CheckoutStatus{}, err
	}

	st, err := u.registry.Register(sess.ID, CheckoutStatus{
		Phase:    CheckoutValidating,
		Method:   d.Method,
		OrderRef: d.OrderRef,
		Total:    d.Total,
	})
	if err != nil {
		return CheckoutStatus{}, registryError(err)
	}

	err = u.registry.Go(func(bg context.Context) {
		res := u.Execute(bg, d, st.ID)
		u.registry.Finish(st.ID, res)
	})
	if err != nil {
		u.registry.Finish(st.ID, checkoutFailed(MsgCheckoutStopped))
		return CheckoutStatus{}, registryError(err)
	}

	return u.wait(ctx, sess.ID, st.ID)
}

func (u *CheckoutUsecase) Status(ctx context.Context, sess Session, checkoutID string) (CheckoutStatus, error) {
	st, err := u.registry.Get(sess.ID, checkoutID)
	if err != nil {
		return CheckoutStatus{}, registryError(err)
	}
	return st, nil
}

// 決済画面の完了を渡し、結果が出るまで待つ
func (u *CheckoutUsecase) CompletePayment(ctx context.Context, sess Session, checkoutID string, resp WidgetResponse) (CheckoutStatus, error) {
	resp.Dismissed = false
	if strings.TrimSpace(resp.PaymentID) == "" || strings.TrimSpace(resp.Signature) == "" {
		return CheckoutStatus{}, NewHTTPError(http.StatusBadRequest, MsgMissingPaymentFields)
	}
	if _, err := u.registry.Complete(sess.ID, checkoutID, resp); err != nil {
		return CheckoutStatus{}, registryError(err)
	}
	return u.wait(ctx, sess.ID, checkoutID)
}

// 決済画面を閉じた
func (u *CheckoutUsecase) DismissPayment(ctx context.Context, sess Session, checkoutID string) (CheckoutStatus, error) {
	if _, err := u.registry.Dismiss(sess.ID, checkoutID); err != nil {
		return CheckoutStatus{}, registryError(err)
	}
	return u.wait(ctx, sess.ID, checkoutID)
}

func (u *CheckoutUsecase) wait(ctx context.Context, sessionID string, checkoutID string) (CheckoutStatus, error) {
	st, err := u.registry.Wait(ctx, sessionID, checkoutID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			//クライアントは状態を取り直せばよい
			return st, nil
		}
		return CheckoutStatus{}, registryError(err)
	}
	return st, nil
}

func registryError(err error) error {
	switch {
	case errors.Is(err, ErrCheckoutNotFound):
		return NewHTTPError(http.StatusNotFound, MsgCheckoutNotFound)
	case errors.Is(err, ErrCheckoutInProgress):
		return NewHTTPError(http.StatusConflict, MsgCheckoutInProgress)
	case errors.Is(err, ErrCheckoutNotAwaiting):
		return NewHTTPError(http.StatusConflict, MsgCheckoutNotWaiting)
	case errors.Is(err, ErrCheckoutRegistryDown):
		return NewHTTPError(http.StatusServiceUnavailable, MsgCheckoutStopped)
	}
	return err
}
