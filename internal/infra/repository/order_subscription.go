package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

// 全注文を購読する。開始時と変更のたびに並び済みの一覧を渡す。
func (r *OrderGormRepository) SubscribeAll(ctx context.Context, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	return r.subscribe(ctx, r.ListAll, func(repo.OrderChange) bool { return true }, onUpdate, onError)
}

// userIDの注文だけ購読する。複合インデックスが無ければ始めない。
func (r *OrderGormRepository) SubscribeForUser(ctx context.Context, userID string, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error) {
	if userID == "" {
		return nil, errors.New("subscribe: user id is required")
	}

	if !r.db.WithContext(ctx).Migrator().HasIndex(&model.Order{}, model.OrderIdxUserCreated) {
		r.log.Errorf("orders index %s is missing; create it with the migration before serving order history", model.OrderIdxUserCreated)
		return nil, fmt.Errorf("subscribe for user: %w: %s", repo.ErrIndexMissing, model.OrderIdxUserCreated)
	}

	load := func(ctx context.Context) ([]model.Order, error) {
		return r.ListByUserID(ctx, userID)
	}
	match := func(ch repo.OrderChange) bool { return ch.UserID == userID }

	return r.subscribe(ctx, load, match, onUpdate, onError)
}

func (r *OrderGormRepository) subscribe(
	ctx context.Context,
	load func(context.Context) ([]model.Order, error),
	match func(repo.OrderChange) bool,
	onUpdate repo.OrdersListener,
	onError repo.ErrorListener,
) (repo.Unsubscribe, error) {
	if r.feed == nil {
		return nil, errors.New("subscribe: order change feed is not configured")
	}
	if onError == nil {
		onError = func(error) {}
	}

	//先に購読してから初回の一覧を読む（取りこぼし防止）
	stream, err := r.feed.Listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	deliver := func() {
		orders, err := load(subCtx)
		if err != nil {
			if subCtx.Err() != nil {
				return
			}
			onError(err)
			return
		}
		onUpdate(orders)
	}

	go func() {
		defer close(done)
		defer func() {
			if err := stream.Close(); err != nil {
				r.log.Warnf("order feed close: %v", err)
			}
		}()

		deliver()
		for {
			select {
			case <-subCtx.Done():
				return
			case ch, ok := <-stream.Changes():
				if !ok {
					if subCtx.Err() == nil {
						onError(errors.New("order change feed closed"))
					}
					return
				}
				if match(ch) {
					deliver()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
