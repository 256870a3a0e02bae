package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnknownSize     = errors.New("unknown size")
	ErrItemUnavailable = errors.New("item unavailable")
)

type SizeVariant struct {
	Label string `json:"size"`
	Price int64  `json:"price"`
}

// メニュー品目。サイズ違いがあれば Sizes に持つ。
type MenuItem struct {
	ID          string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Category    string        `gorm:"type:varchar(100);not null;index" json:"category"`
	Image       string        `gorm:"type:text" json:"image"`
	Price       int64         `gorm:"not null" json:"price"`
	Sizes       []SizeVariant `gorm:"type:jsonb;serializer:json" json:"sizes,omitempty"`
	IsAvailable bool          `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time     `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time     `gorm:"not null;autoUpdateTime" json:"-"`
}

func (m MenuItem) HasSizes() bool {
	return len(m.Sizes) > 0
}

// サイズ指定に合う価格を返す。サイズ無しなら基本価格。
func (m MenuItem) PriceFor(size string) (int64, string, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return m.Price, "", nil
	}
	for _, v := range m.Sizes {
		if strings.EqualFold(v.Label, size) {
			return v.Price, v.Label, nil
		}
	}
	return 0, "", ErrUnknownSize
}
