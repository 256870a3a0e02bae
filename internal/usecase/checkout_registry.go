package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"foodorder/internal/domain/model"

	"github.com/google/uuid"
)

type CheckoutPhase string

const (
	CheckoutValidating      CheckoutPhase = "validating"
	CheckoutAwaitingPayment CheckoutPhase = "awaiting_payment"
	CheckoutPersisting      CheckoutPhase = "persisting"
	CheckoutSucceeded       CheckoutPhase = "succeeded"
	CheckoutFailed          CheckoutPhase = "failed"
)

func (p CheckoutPhase) Finished() bool {
	return p == CheckoutSucceeded || p == CheckoutFailed
}

var (
	ErrCheckoutNotFound     = errors.New("checkout not found")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
	ErrCheckoutNotAwaiting  = errors.New("checkout is not waiting for payment")
	ErrCheckoutRegistryDown = errors.New("checkout registry closed")
)

// CheckoutStatus はクライアントがポーリングで見る進行状況。
type CheckoutStatus struct {
	ID        string              `json:"checkout_id"`
	SessionID string              `json:"-"`
	Phase     CheckoutPhase       `json:"phase"`
	Method    model.PaymentMethod `json:"payment_method"`
	OrderRef  string              `json:"order_ref,omitempty"`
	Total     int64               `json:"total"`
	Payment   *WidgetRequest      `json:"payment,omitempty"`
	Result    *CheckoutResult     `json:"result,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// クライアントの操作待ちか終了済み
func (s CheckoutStatus) Actionable() bool {
	return s.Phase.Finished() || s.Payment != nil
}

type checkoutEntry struct {
	status     CheckoutStatus
	widget     chan WidgetResponse
	changed    chan struct{}
	finishedAt time.Time
}

// CheckoutRegistry は進行中のチェックアウトを保持し、決済画面の応答を待つ処理に渡す。
type CheckoutRegistry struct {
	mu        sync.Mutex
	entries   map[string]*checkoutEntry
	bySession map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	retention time.Duration
	now       func() time.Time
}

func NewCheckoutRegistry(retention time.Duration) *CheckoutRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &CheckoutRegistry{
		entries:   map[string]*checkoutEntry{},
		bySession: map[string]string{},
		ctx:       ctx,
		cancel:    cancel,
		retention: retention,
		now:       time.Now,
	}
}

// 1セッションにつき進行中は1件まで
func (r *CheckoutRegistry) Register(sessionID string, st CheckoutStatus) (CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return CheckoutStatus{}, ErrCheckoutRegistryDown
	}
	r.pruneLocked()

	if id, ok := r.bySession[sessionID]; ok {
		if e, ok := r.entries[id]; ok && !e.status.Phase.Finished() {
			return CheckoutStatus{}, ErrCheckoutInProgress
		}
	}

	st.ID = uuid.NewString()
	st.SessionID = sessionID
	st.UpdatedAt = r.now()
	if st.Phase == "" {
		st.Phase = CheckoutValidating
	}

	r.entries[st.ID] = &checkoutEntry{
		status:  st,
		widget:  make(chan WidgetResponse, 1),
		changed: make(chan struct{}),
	}
	r.bySession[sessionID] = st.ID
	return st, nil
}

// 終了後retentionを過ぎたものを捨てる
func (r *CheckoutRegistry) pruneLocked() {
	now := r.now()
	for id, e := range r.entries {
		if e.status.Phase.Finished() && now.Sub(e.finishedAt) > r.retention {
			delete(r.entries, id)
			if r.bySession[e.status.SessionID] == id {
				delete(r.bySession, e.status.SessionID)
			}
		}
	}
}

// 変更を適用して待っている側を起こす
func (r *CheckoutRegistry) update(id string, fn func(e *checkoutEntry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	fn(e)
	e.status.UpdatedAt = r.now()
	close(e.changed)
	e.changed = make(chan struct{})
	return true
}

func (r *CheckoutRegistry) SetPhase(id string, phase CheckoutPhase) {
	r.update(id, func(e *checkoutEntry) {
		e.status.Phase = phase
		if phase != CheckoutAwaitingPayment {
			e.status.Payment = nil
		}
	})
}

func (r *CheckoutRegistry) Finish(id string, res CheckoutResult) {
	r.update(id, func(e *checkoutEntry) {
		e.status.Phase = CheckoutFailed
		if res.Success {
			e.status.Phase = CheckoutSucceeded
		}
		e.status.Payment = nil
		e.status.Result = &res
		e.finishedAt = r.now()
	})
}

func (r *CheckoutRegistry) Get(sessionID string, id string) (CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.status.SessionID != sessionID {
		return CheckoutStatus{}, ErrCheckoutNotFound
	}
	return e.status, nil
}

// 操作待ちか終了まで待つ
func (r *CheckoutRegistry) Wait(ctx context.Context, sessionID string, id string) (CheckoutStatus, error) {
	for {
		r.mu.Lock()
		e, ok := r.entries[id]
		if !ok || e.status.SessionID != sessionID {
			r.mu.Unlock()
			return CheckoutStatus{}, ErrCheckoutNotFound
		}
		st := e.status
		changed := e.changed
		r.mu.Unlock()

		if st.Actionable() {
			return st, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		case <-r.ctx.Done():
			return st, ErrCheckoutRegistryDown
		}
	}
}

// Open は CheckoutWidget の実装。Complete か Dismiss が来るまで戻らない。
func (r *CheckoutRegistry) Open(ctx context.Context, req WidgetRequest) (WidgetResponse, error) {
	var widget chan WidgetResponse
	ok := r.update(req.CheckoutID, func(e *checkoutEntry) {
		p := req
		e.status.Phase = CheckoutAwaitingPayment
		e.status.Payment = &p
		widget = e.widget
	})
	if !ok {
		return WidgetResponse{}, ErrCheckoutNotFound
	}

	select {
	case resp := <-widget:
		return resp, nil
	case <-ctx.Done():
		return WidgetResponse{}, ctx.Err()
	case <-r.ctx.Done():
		return WidgetResponse{}, ErrCheckoutRegistryDown
	}
}

// 決済画面の完了（Dismissed なら閉じた）
func (r *CheckoutRegistry) Complete(sessionID string, id string, resp WidgetResponse) (CheckoutStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.status.SessionID != sessionID {
		return CheckoutStatus{}, ErrCheckoutNotFound
	}
	if e.status.Phase != CheckoutAwaitingPayment || e.status.Payment == nil {
		return CheckoutStatus{}, ErrCheckoutNotAwaiting
	}

	e.widget <- resp
	e.status.Payment = nil
	e.status.UpdatedAt = r.now()
	close(e.changed)
	e.changed = make(chan struct{})
	return e.status, nil
}

func (r *CheckoutRegistry) Dismiss(sessionID string, id string) (CheckoutStatus, error) {
	return r.Complete(sessionID, id, WidgetResponse{Dismissed: true})
}

// Go はチェックアウトの後半をバックグラウンドで走らせる。Close で止まる。
func (r *CheckoutRegistry) Go(fn func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrCheckoutRegistryDown
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
	return nil
}

// 待機中の決済を中断し、全ての処理の終了を待つ
func (r *CheckoutRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
