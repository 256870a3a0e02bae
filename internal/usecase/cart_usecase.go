package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"
)

// CartUsecase はセッションごとのカート操作。変更のたびに全行を保存する。
type CartUsecase struct {
	store repo.CartStorage
	menu  repo.MenuRepository
	fees  model.FeePolicy
	log   logging.Logger
}

func NewCartUsecase(store repo.CartStorage, menu repo.MenuRepository, log logging.Logger) *CartUsecase {
	return &CartUsecase{
		store: store,
		menu:  menu,
		fees:  model.NoFees{},
		log:   log,
	}
}

type CartView struct {
	Items   []model.CartLine  `json:"items"`
	Summary model.CartSummary `json:"summary"`
}

type AddLineInput struct {
	ItemID string
	Size   string
	Action model.CartAction
}

func (u *CartUsecase) view(c *model.Cart) CartView {
	return CartView{
		Items:   c.Lines(),
		Summary: c.SummaryWith(u.fees),
	}
}

// 壊れたデータは空カートとして扱う
func (u *CartUsecase) load(ctx context.Context, sessionID string) (*model.Cart, error) {
	if sessionID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "session required")
	}

	lines, err := u.store.Load(ctx, sessionID)
	if errors.Is(err, repo.ErrCorruptData) {
		u.log.Warnf("cart: discard corrupt data: session=%s err=%v", sessionID, err)
		return model.NewCart(nil), nil
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "cart storage error")
	}
	return model.NewCart(lines), nil
}

func (u *CartUsecase) save(ctx context.Context, sessionID string, c *model.Cart) error {
	if err := u.store.Save(ctx, sessionID, c.Lines()); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "cart storage error")
	}
	return nil
}

func (u *CartUsecase) Get(ctx context.Context, sessionID string) (CartView, error) {
	c, err := u.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return u.view(c), nil
}

// チェックアウト用に行だけ返す
func (u *CartUsecase) Lines(ctx context.Context, sessionID string) ([]model.CartLine, error) {
	c, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Lines(), nil
}

// add/remove（同じ品目+サイズは1行にまとめる）
func (u *CartUsecase) AddLine(ctx context.Context, sessionID string, in AddLineInput) (CartView, error) {
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}
	if in.Action == "" {
		in.Action = model.CartActionAdd
	}
	if in.Action != model.CartActionAdd && in.Action != model.CartActionRemove {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid action")
	}

	c, err := u.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}

	item, err := u.menu.FindByID(ctx, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartView{}, NewHTTPError(http.StatusNotFound, "Item not found")
	}
	if err != nil {
		return CartView{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//売り切れは追加だけ止める
	if in.Action == model.CartActionAdd && !item.IsAvailable {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "Item is currently unavailable")
	}

	if err := c.Apply(item, in.Size, in.Action); err != nil {
		if errors.Is(err, model.ErrUnknownSize) {
			return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid size")
		}
		return CartView{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := u.save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return u.view(c), nil
}

// n<=0 は行を消す
func (u *CartUsecase) SetQuantity(ctx context.Context, sessionID string, lineID string, n int64) (CartView, error) {
	c, err := u.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	if !c.SetQuantity(lineID, n) {
		return CartView{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err := u.save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return u.view(c), nil
}

func (u *CartUsecase) RemoveLine(ctx context.Context, sessionID string, lineID string) (CartView, error) {
	c, err := u.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	if !c.Remove(lineID) {
		return CartView{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err := u.save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return u.view(c), nil
}

// 保存データごと消す
func (u *CartUsecase) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return NewHTTPError(http.StatusUnauthorized, "session required")
	}
	if err := u.store.Delete(ctx, sessionID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "cart storage error")
	}
	return nil
}

func (u *CartUsecase) QuantityOf(ctx context.Context, sessionID string, itemID string, size string) (int64, error) {
	c, err := u.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return c.QuantityOf(itemID, strings.TrimSpace(size)), nil
}
