package model

import (
	"errors"

	"github.com/samber/lo"
)

type CartAction string

const (
	CartActionAdd    CartAction = "add"
	CartActionRemove CartAction = "remove"
)

// サイズ指定が無い行のキーに使う
const RegularSize = "regular"

var ErrInvalidCartAction = errors.New("invalid cart action")

// CartLine はカートの1行。価格は追加時点のスナップショット。
type CartLine struct {
	LineID      string `json:"line_id"`
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Size        string `json:"size,omitempty"`
	Quantity    int64  `json:"quantity"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

func (l CartLine) Subtotal() int64 {
	return l.Price * l.Quantity
}

func LineKey(itemID string, size string) string {
	if size == "" {
		return itemID + "-" + RegularSize
	}
	return itemID + "-" + size
}

// 手数料と税の計算方法。今は両方0。
type FeePolicy interface {
	DeliveryFee(subtotal int64) int64
	Tax(subtotal int64) int64
}

type NoFees struct{}

func (NoFees) DeliveryFee(int64) int64 { return 0 }
func (NoFees) Tax(int64) int64         { return 0 }

type CartSummary struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Tax         int64 `json:"tax"`
	Total       int64 `json:"total"`
	ItemCount   int64 `json:"item_count"`
}

// Cart は行の並びを保ったまま数量計算だけを行う。
type Cart struct {
	lines []CartLine
}

// 保存済みの行から復元。数量0以下の行は捨てる。
func NewCart(lines []CartLine) *Cart {
	valid := lo.Filter(lines, func(l CartLine, _ int) bool {
		return l.Quantity > 0 && l.LineID != ""
	})
	return &Cart{lines: valid}
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) indexOf(lineID string) int {
	_, idx, ok := lo.FindIndexOf(c.lines, func(l CartLine) bool {
		return l.LineID == lineID
	})
	if !ok {
		return -1
	}
	return idx
}

// add は同じ品目+サイズなら数量を足し、無ければ1で作る。
// remove は数量を減らし、0になった行は消す。無い行へのremoveは何もしない。
func (c *Cart) Apply(item MenuItem, size string, action CartAction) error {
	switch action {
	case CartActionAdd:
		price, label, err := item.PriceFor(size)
		if err != nil {
			return err
		}
		key := LineKey(item.ID, label)
		if i := c.indexOf(key); i >= 0 {
			c.lines[i].Quantity++
			return nil
		}
		c.lines = append(c.lines, CartLine{
			LineID:      key,
			ItemID:      item.ID,
			Name:        item.Name,
			Price:       price,
			Size:        label,
			Quantity:    1,
			Image:       item.Image,
			Category:    item.Category,
			Description: item.Description,
		})
		return nil

	case CartActionRemove:
		label := size
		if _, l, err := item.PriceFor(size); err == nil {
			label = l
		}
		c.Decrement(LineKey(item.ID, label))
		return nil
	}
	return ErrInvalidCartAction
}

func (c *Cart) Decrement(lineID string) {
	i := c.indexOf(lineID)
	if i < 0 {
		return
	}
	if c.lines[i].Quantity <= 1 {
		c.removeAt(i)
		return
	}
	c.lines[i].Quantity--
}

// n<=0 は削除と同じ。行が無ければ false。
func (c *Cart) SetQuantity(lineID string, n int64) bool {
	i := c.indexOf(lineID)
	if i < 0 {
		return false
	}
	if n <= 0 {
		c.removeAt(i)
		return true
	}
	c.lines[i].Quantity = n
	return true
}

func (c *Cart) Remove(lineID string) bool {
	i := c.indexOf(lineID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Total() int64 {
	return lo.SumBy(c.lines, func(l CartLine) int64 { return l.Subtotal() })
}

func (c *Cart) Count() int64 {
	return lo.SumBy(c.lines, func(l CartLine) int64 { return l.Quantity })
}

func (c *Cart) QuantityOf(itemID string, size string) int64 {
	if i := c.indexOf(LineKey(itemID, size)); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) Summary() CartSummary {
	return c.SummaryWith(NoFees{})
}

func (c *Cart) SummaryWith(p FeePolicy) CartSummary {
	subtotal := c.Total()
	fee := p.DeliveryFee(subtotal)
	tax := p.Tax(subtotal)
	return CartSummary{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       subtotal + fee + tax,
		ItemCount:   c.Count(),
	}
}
