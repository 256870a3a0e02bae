package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// 管理画面の絞り込み
type OrderFilter string

const (
	OrderFilterActive    OrderFilter = "active"
	OrderFilterAll       OrderFilter = "all"
	OrderFilterPending   OrderFilter = "pending"
	OrderFilterConfirmed OrderFilter = "confirmed"
	OrderFilterDelivered OrderFilter = "delivered"
	OrderFilterCancelled OrderFilter = "cancelled"
)

// 空なら active
func ParseOrderFilter(s string) (OrderFilter, error) {
	f := OrderFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return OrderFilterActive, nil
	case OrderFilterActive, OrderFilterAll, OrderFilterPending, OrderFilterConfirmed, OrderFilterDelivered, OrderFilterCancelled:
		return f, nil
	}
	return "", fmt.Errorf("invalid filter: %q", s)
}

// StartOfDay は loc での now の日付の0時。
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// active は pending と confirmed、all は当日分、それ以外はステータス一致。
// 並び順は入力のまま。
func FilterOrders(orders []Order, f OrderFilter, now time.Time, loc *time.Location) []Order {
	return lo.Filter(orders, func(o Order, _ int) bool {
		switch f {
		case OrderFilterActive:
			return o.Status.IsActive()
		case OrderFilterAll:
			return SameDay(o.CreatedAt, now, loc)
		default:
			return string(o.Status) == string(f)
		}
	})
}

type OrderStats struct {
	PendingToday   int   `json:"pending_today"`
	Active         int   `json:"active"`
	DeliveredToday int   `json:"delivered_today"`
	RevenueToday   int64 `json:"revenue_today"`
}

// 売上は当日に作られて配達済みになった注文の合計。
func ComputeOrderStats(orders []Order, now time.Time, loc *time.Location) OrderStats {
	var s OrderStats
	for _, o := range orders {
		today := SameDay(o.CreatedAt, now, loc)
		if o.Status.IsActive() {
			s.Active++
		}
		if today && o.Status == OrderStatusPending {
			s.PendingToday++
		}
		if today && o.Status == OrderStatusDelivered {
			s.DeliveredToday++
			s.RevenueToday += o.Total
		}
	}
	return s
}
