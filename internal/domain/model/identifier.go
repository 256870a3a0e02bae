package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewCashPaymentID は代引き注文の決済IDを作る。同一ミリ秒でも重複しない。
func NewCashPaymentID(at time.Time) string {
	return fmt.Sprintf("%s%d-%s", CashPaymentPrefix, at.UnixMilli(), uuid.NewString())
}

// NewOrderRef は "<prefix>-<millis>-<6桁hex>" 形式の注文番号を作る。
func NewOrderRef(prefix string, at time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%d-%s", prefix, at.UnixMilli(), strings.ToUpper(fmt.Sprintf("%x", id[:3])))
}

// OrderRefPrefix は注文番号の接頭辞部分を返す。
func OrderRefPrefix(ref string) string {
	if i := strings.Index(ref, "-"); i > 0 {
		return ref[:i]
	}
	return ref
}
