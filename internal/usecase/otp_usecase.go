package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	repo "foodorder/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 3
)

const (
	MsgOTPSent        = "OTP sent successfully!"
	MsgOTPVerified    = "OTP verified successfully!"
	MsgOTPNotFound    = "OTP not found. Please request a new one."
	MsgOTPExpired     = "OTP expired. Please request a new one."
	MsgOTPTooMany     = "Too many incorrect attempts. Please request a new OTP."
	MsgOTPSendFailed  = "Failed to send OTP"
	MsgOTPVerifyError = "OTP verification failed"
)

// OTPUsecase はSMSのワンタイムコード。ログインの必須手順ではない。
type OTPUsecase struct {
	store     repo.OTPStore
	sms       SMSProvider
	validator AuthValidator
	log       logging.Logger
	now       func() time.Time
	newCode   func() (string, error)
}

func NewOTPUsecase(store repo.OTPStore, sms SMSProvider, validator AuthValidator, log logging.Logger) *OTPUsecase {
	return &OTPUsecase{
		store:     store,
		sms:       sms,
		validator: validator,
		log:       log,
		now:       time.Now,
		newCode:   randomOTP,
	}
}

type OTPSendOutput struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type OTPVerifyOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// 6桁（100000-999999）
func randomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (u *OTPUsecase) Send(ctx context.Context, phone string) (OTPSendOutput, error) {
	phone = strings.TrimSpace(phone)
	if err := u.validator.ValidateOTP(ctx, phone, ""); err != nil {
		return OTPSendOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	code, err := u.newCode()
	if err != nil {
		return OTPSendOutput{}, NewHTTPError(http.StatusInternalServerError, MsgOTPSendFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return OTPSendOutput{}, NewHTTPError(http.StatusInternalServerError, MsgOTPSendFailed)
	}

	providerSID, err := u.sms.SendOTP(ctx, phone, code)
	if err != nil {
		u.log.Errorf("send otp failed: phone=%s err=%v", phone, err)
		return OTPSendOutput{}, NewHTTPError(http.StatusBadGateway, MsgOTPSendFailed)
	}

	//再送時は前の試行回数も消える
	ch := model.OTPChallenge{
		Phone:             phone,
		CodeHash:          string(hash),
		ProviderSessionID: providerSID,
		ExpiresAt:         u.now().Add(otpTTL),
	}
	if err := u.store.Save(ctx, ch, otpTTL); err != nil {
		return OTPSendOutput{}, NewHTTPError(http.StatusInternalServerError, MsgOTPSendFailed)
	}

	return OTPSendOutput{Success: true, SessionID: providerSID, Message: MsgOTPSent}, nil
}

func (u *OTPUsecase) Verify(ctx context.Context, phone string, code string) (OTPVerifyOutput, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if code == "" {
		return OTPVerifyOutput{}, NewHTTPError(http.StatusBadRequest, "OTP must be 6 digits")
	}
	if err := u.validator.ValidateOTP(ctx, phone, code); err != nil {
		return OTPVerifyOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ch, err := u.store.Load(ctx, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return OTPVerifyOutput{}, NewHTTPError(http.StatusBadRequest, MsgOTPNotFound)
	}
	if err != nil {
		return OTPVerifyOutput{}, NewHTTPError(http.StatusInternalServerError, MsgOTPVerifyError)
	}

	now := u.now()
	if now.After(ch.ExpiresAt) {
		u.discard(ctx, phone)
		return OTPVerifyOutput{}, NewHTTPError(http.StatusBadRequest, MsgOTPExpired)
	}
	if ch.Attempts >= otpMaxAttempts {
		u.discard(ctx, phone)
		return OTPVerifyOutput{}, NewHTTPError(http.StatusTooManyRequests, MsgOTPTooMany)
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) == nil {
		u.discard(ctx, phone)
		return OTPVerifyOutput{Success: true, Message: MsgOTPVerified}, nil
	}

	ch.Attempts++
	if err := u.store.Save(ctx, ch, ch.ExpiresAt.Sub(now)); err != nil {
		return OTPVerifyOutput{}, NewHTTPError(http.StatusInternalServerError, MsgOTPVerifyError)
	}
	remaining := otpMaxAttempts - ch.Attempts
	return OTPVerifyOutput{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid OTP. %d attempt(s) remaining.", remaining))
}

func (u *OTPUsecase) discard(ctx context.Context, phone string) {
	if err := u.store.Delete(ctx, phone); err != nil {
		u.log.Warnf("otp delete failed: phone=%s err=%v", phone, err)
	}
}
