package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"foodorder/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")
)

const (
	MsgInvalidPhone    = "Please enter a valid 10-digit mobile number"
	MsgPhoneFormat     = "Invalid mobile number format"
	MsgInvalidName     = "Please enter your full name (min 3 characters)"
	MsgNameTooLong     = "Name too long"
	MsgNameLettersOnly = "Name should contain letters only"
	MsgInvalidPin      = "PIN must be 4-6 digits"
	MsgOTPLength       = "OTP must be 6 digits"
	MsgOTPDigits       = "OTP must contain only numbers"
)

var (
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	pinPattern   = regexp.MustCompile(`^\d{4,6}$`)
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
)

// InputError は利用者にそのまま見せてよい入力エラー
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error {
	return &InputError{Message: msg}
}

type authValidator struct{}

// Usecaseは interface を依存注入
func NewAuthValidator() usecase.AuthValidator {
	return &authValidator{}
}

// 電話番号ログインの入力を検証。nameは新規登録時だけ。
func (v *authValidator) ValidatePhoneLogin(ctx context.Context, phone string, name string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}
	return ValidateName(name)
}

// 管理者ログインの入力を検証
func (v *authValidator) ValidateAdminLogin(ctx context.Context, phone string, pin string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	if !pinPattern.MatchString(pin) {
		return invalid(MsgInvalidPin)
	}
	return nil
}

// OTP送信・確認の入力を検証。送信時はcodeが空。
func (v *authValidator) ValidateOTP(ctx context.Context, phone string, code string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}
	if code == "" {
		return nil
	}
	if len(code) != 6 {
		return invalid(MsgOTPLength)
	}
	if !otpPattern.MatchString(code) {
		return invalid(MsgOTPDigits)
	}
	return nil
}

// 10桁、6-9始まり
func ValidatePhone(phone string) error {
	if len(phone) != 10 {
		return invalid(MsgInvalidPhone)
	}
	if !phonePattern.MatchString(phone) {
		return invalid(MsgPhoneFormat)
	}
	return nil
}

// 3-50文字、英字と空白のみ
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 3 {
		return invalid(MsgInvalidName)
	}
	if n > 50 {
		return invalid(MsgNameTooLong)
	}
	if !namePattern.MatchString(name) {
		return invalid(MsgNameLettersOnly)
	}
	return nil
}
