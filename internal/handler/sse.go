package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/labstack/echo/v4"
)

const sseHeartbeat = 15 * time.Second

type watchFunc func(ctx context.Context, onUpdate repo.OrdersListener, onError repo.ErrorListener) (repo.Unsubscribe, error)

// streamOrders は購読の一覧をSSEで流す。クライアントが切るまで戻らない。
// 遅いクライアントには最新の一覧だけ届ける。
func streamOrders(c echo.Context, watch watchFunc) error {
	ctx := c.Request().Context()

	updates := make(chan []model.Order, 1)
	failures := make(chan error, 1)

	unsub, err := watch(ctx, func(orders []model.Order) {
		select {
		case <-updates:
		default:
		}
		updates <- orders
	}, func(err error) {
		select {
		case failures <- err:
		default:
		}
	})
	if err != nil {
		return writeError(c, err)
	}
	defer unsub()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case orders := <-updates:
			if err := writeEvent(w, "orders", orders); err != nil {
				return nil
			}
		case err := <-failures:
			c.Logger().Errorf("order stream failed: %v", err)
			//利用者には中身を見せない
			_ = writeEvent(w, "error", errorBody("Live updates interrupted. Please refresh."))
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, event string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	w.Flush()
	return nil
}
