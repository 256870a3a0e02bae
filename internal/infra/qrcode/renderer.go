package qrcode

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// 注文詳細ページのURLをQRコードにする
type Renderer struct {
	BaseURL string
	Size    int
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{BaseURL: strings.TrimRight(baseURL, "/"), Size: 256}
}

func (r *Renderer) OrderURL(orderID string) string {
	return fmt.Sprintf("%s/orders/%s", r.BaseURL, orderID)
}

func (r *Renderer) OrderPNG(orderID string) ([]byte, error) {
	png, err := qrcode.Encode(r.OrderURL(orderID), qrcode.Medium, r.Size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	return png, nil
}
