package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("OTP service not configured")

// TwoFactorClient は 2factor.in のSMS APIでOTPを送る。
type TwoFactorClient struct {
	APIKey   string
	BaseURL  string
	Template string
	HTTP     *http.Client
}

func NewTwoFactorClient(apiKey, baseURL, template string) *TwoFactorClient {
	return &TwoFactorClient{
		APIKey:   apiKey,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Template: template,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
	}
}

type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// 送信できたらプロバイダのセッションIDを返す
func (c *TwoFactorClient) SendOTP(ctx context.Context, phone string, code string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/%s/SMS/%s/%s/%s",
		c.BaseURL,
		url.PathEscape(c.APIKey),
		url.PathEscape(phone),
		url.PathEscape(code),
		url.PathEscape(c.Template),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("send otp: %w", err)
	}
	defer res.Body.Close()

	var out twoFactorResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("send otp: decode: %w", err)
	}

	if out.Status != "Success" {
		if out.Details != "" {
			return "", errors.New(out.Details)
		}
		return "", errors.New("Failed to send OTP")
	}
	return out.Details, nil
}
