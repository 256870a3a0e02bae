package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
)

var ErrNotConfigured = errors.New("payment service not configured")

// RazorpayClient は注文作成と署名検証を行う。秘密鍵はサーバー側だけが持つ。
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

func NewRazorpayClient(keyID, keySecret, baseURL string) *RazorpayClient {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &RazorpayClient{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Error    *struct {
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// 金額は最小単位（paise）で渡す
func (c *RazorpayClient) CreateOrder(ctx context.Context, req model.GatewayOrderRequest) (model.GatewayOrder, error) {
	if c.KeyID == "" || c.KeySecret == "" {
		return model.GatewayOrder{}, ErrNotConfigured
	}

	body, err := json.Marshal(createOrderBody{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return model.GatewayOrder{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return model.GatewayOrder{}, err
	}
	httpReq.SetBasicAuth(c.KeyID, c.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return model.GatewayOrder{}, fmt.Errorf("razorpay create order: %w", err)
	}
	defer res.Body.Close()

	var out orderResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return model.GatewayOrder{}, fmt.Errorf("razorpay create order: decode: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		msg := "Failed to create order"
		if out.Error != nil && out.Error.Description != "" {
			msg = out.Error.Description
		}
		return model.GatewayOrder{}, errors.New(msg)
	}

	return model.GatewayOrder{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}

// 署名は HMAC-SHA256(order_id|payment_id) の16進。order_id が無ければ payment_id だけ。
func (c *RazorpayClient) Sign(orderID, paymentID string) string {
	payload := paymentID
	if orderID != "" {
		payload = orderID + "|" + paymentID
	}
	mac := hmac.New(sha256.New, []byte(c.KeySecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	if c.KeySecret == "" || paymentID == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(c.Sign(orderID, paymentID)), []byte(signature))
}
