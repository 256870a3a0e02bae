package model

import (
	"strings"

	"github.com/samber/lo"
)

type OrderItem struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID  string `gorm:"type:varchar(36);not null;index" json:"-"`
	Position int    `gorm:"not null;default:0" json:"-"`
	ItemID   string `gorm:"type:varchar(64);not null" json:"id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Price    int64  `gorm:"not null" json:"price"`
	Quantity int64  `gorm:"not null" json:"quantity"`
	Size     string `gorm:"type:varchar(50)" json:"size,omitempty"`
	Image    string `gorm:"type:text" json:"image,omitempty"`
}

// id と name の無い明細は落とす。価格は負なら0、数量は1未満なら1。
func SanitizeOrderItems(items []OrderItem) []OrderItem {
	return lo.FilterMap(items, func(it OrderItem, _ int) (OrderItem, bool) {
		it.ItemID = strings.TrimSpace(it.ItemID)
		it.Name = strings.TrimSpace(it.Name)
		if it.ItemID == "" || it.Name == "" {
			return OrderItem{}, false
		}
		if it.Price < 0 {
			it.Price = 0
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		it.Size = strings.TrimSpace(it.Size)
		it.Image = strings.TrimSpace(it.Image)
		return it, true
	})
}

// カート行を注文明細のスナップショットにする
func OrderItemsFromCart(lines []CartLine) []OrderItem {
	return lo.Map(lines, func(l CartLine, _ int) OrderItem {
		return OrderItem{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Price:    l.Price,
			Quantity: l.Quantity,
			Size:     l.Size,
			Image:    l.Image,
		}
	})
}
