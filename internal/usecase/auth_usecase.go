package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/logging"
	"foodorder/internal/repository"
)

type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionLoading       SessionState = "loading"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// Session は1端末のログイン状態。ハンドラーへ明示的に渡す。
type Session struct {
	State       SessionState    `json:"state"`
	ID          string          `json:"-"`
	Identity    *model.Identity `json:"user,omitempty"`
	LastLoginAt time.Time       `json:"last_login_at,omitempty"`
}

func NewSession(sessionID string) Session {
	return Session{State: SessionUninitialized, ID: sessionID}
}

func (s Session) Authenticated() bool {
	return s.State == SessionAuthenticated && s.Identity != nil
}

func (s Session) anonymous() Session {
	return Session{State: SessionAnonymous, ID: s.ID}
}

type LoginFailure string

const (
	LoginFailureValidation  LoginFailure = "validation"
	LoginFailureNotFound    LoginFailure = "not_found"
	LoginFailureNotAdmin    LoginFailure = "not_admin"
	LoginFailureInvalidPin  LoginFailure = "invalid_pin"
	LoginFailureNoSession   LoginFailure = "no_session"
	LoginFailureUnavailable LoginFailure = "unavailable"
)

const (
	MsgAccountCreated  = "Account Created"
	MsgWelcomeBack     = "Welcome Back"
	MsgAccessGranted   = "Access Granted"
	MsgAdminNotFound   = "Admin account not found"
	MsgNotAdmin        = "Access denied. Not an admin."
	MsgInvalidAdminPin = "Invalid Admin PIN"
	MsgLoginFailed     = "Login failed"
	MsgNeedsName       = "Please tell us your name to create an account"
	MsgSessionRequired = "session required"
)

// LoginResult は失敗も値で返す。NeedsName は新規登録の2段目に進む合図。
type LoginResult struct {
	Success   bool            `json:"success"`
	NeedsName bool            `json:"needs_name,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Failure   LoginFailure    `json:"-"`
	User      *model.Identity `json:"user,omitempty"`
	Token     string          `json:"token,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Session   Session         `json:"-"`
}

func loginFailed(code LoginFailure, msg string) LoginResult {
	return LoginResult{Success: false, Failure: code, Error: msg}
}

type AuthUsecase struct {
	users     repository.UserRepository
	sessions  repository.SessionStore
	carts     repository.CartStorage
	validator AuthValidator
	tokens    *SessionTokenIssuer
	timeout   time.Duration
	log       logging.Logger
	now       func() time.Time
}

func NewAuthUsecase(
	users repository.UserRepository,
	sessions repository.SessionStore,
	carts repository.CartStorage,
	validator AuthValidator,
	tokens *SessionTokenIssuer,
	timeout time.Duration,
	log logging.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		sessions:  sessions,
		carts:     carts,
		validator: validator,
		tokens:    tokens,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
}

// 初期化: 保存済みセッションを読み、期限切れなら捨てて匿名にする
func (u *AuthUsecase) Restore(ctx context.Context, sessionID string) Session {
	s := NewSession(sessionID)
	if sessionID == "" {
		return s.anonymous()
	}
	s.State = SessionLoading

	rec, err := u.sessions.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			u.log.Warnf("session restore failed: %v", err)
		}
		return s.anonymous()
	}

	if rec.Expired(u.now(), u.timeout) {
		if err := u.sessions.Delete(ctx, sessionID); err != nil {
			u.log.Warnf("expired session delete failed: %v", err)
		}
		return s.anonymous()
	}

	id := rec.Identity
	return Session{
		State:       SessionAuthenticated,
		ID:          sessionID,
		Identity:    &id,
		LastLoginAt: rec.LastLoginAt,
	}
}

// 電話番号ログイン。未登録で名前が無ければ NeedsName を返し何も保存しない。
func (u *AuthUsecase) LoginWithPhone(ctx context.Context, sessionID string, phone string, name string) LoginResult {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)

	if err := u.validator.ValidatePhoneLogin(ctx, phone, name); err != nil {
		return loginFailed(LoginFailureValidation, err.Error())
	}
	if sessionID == "" {
		return loginFailed(LoginFailureNoSession, MsgSessionRequired)
	}

	now := u.now()

	//電話番号1つにユーザー1人
	user, err := u.users.FindByPhone(ctx, phone)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if name == "" {
			return LoginResult{Success: false, NeedsName: true, Message: MsgNeedsName}
		}

		user = &model.User{
			ID:          model.CustomerUserID(phone),
			Phone:       phone,
			Name:        name,
			Role:        model.RoleCustomer,
			LastLoginAt: &now,
		}
		if err := u.users.Create(ctx, user); err != nil {
			u.log.Errorf("create user failed: phone=%s err=%v", phone, err)
			return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
		}
		return u.establish(ctx, sessionID, *user, now, MsgAccountCreated)

	case err != nil:
		u.log.Errorf("find user failed: phone=%s err=%v", phone, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}

	//ロールは保存値のまま
	if err := u.users.TouchLogin(ctx, user.ID, now); err != nil {
		u.log.Errorf("touch login failed: user=%s err=%v", user.ID, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}
	user.LastLoginAt = &now
	return u.establish(ctx, sessionID, *user, now, MsgWelcomeBack)
}

// 管理者ログイン（電話番号+PIN）
func (u *AuthUsecase) LoginAdmin(ctx context.Context, sessionID string, phone string, pin string) LoginResult {
	phone = strings.TrimSpace(phone)
	pin = strings.TrimSpace(pin)

	if err := u.validator.ValidateAdminLogin(ctx, phone, pin); err != nil {
		return loginFailed(LoginFailureValidation, err.Error())
	}
	if sessionID == "" {
		return loginFailed(LoginFailureNoSession, MsgSessionRequired)
	}

	user, err := u.users.FindByPhone(ctx, phone)
	if errors.Is(err, repository.ErrNotFound) {
		return loginFailed(LoginFailureNotFound, MsgAdminNotFound)
	}
	if err != nil {
		u.log.Errorf("find admin failed: phone=%s err=%v", phone, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}

	//顧客として登録済みの番号
	if user.Role != model.RoleAdmin {
		return loginFailed(LoginFailureNotAdmin, MsgNotAdmin)
	}
	if user.AdminPin == "" || subtle.ConstantTimeCompare([]byte(user.AdminPin), []byte(pin)) != 1 {
		return loginFailed(LoginFailureInvalidPin, MsgInvalidAdminPin)
	}

	now := u.now()
	if err := u.users.TouchLogin(ctx, user.ID, now); err != nil {
		u.log.Errorf("touch login failed: user=%s err=%v", user.ID, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}
	user.LastLoginAt = &now
	return u.establish(ctx, sessionID, *user, now, MsgAccessGranted)
}

// セッション保存とトークン発行
func (u *AuthUsecase) establish(ctx context.Context, sessionID string, user model.User, now time.Time, msg string) LoginResult {
	id := model.NewIdentity(user)

	rec := model.SessionRecord{SessionID: sessionID, Identity: id, LastLoginAt: now}
	if err := u.sessions.Save(ctx, rec, u.timeout); err != nil {
		u.log.Errorf("session save failed: user=%s err=%v", id.ID, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}

	token, exp, err := u.tokens.Issue(id, sessionID, now)
	if err != nil {
		u.log.Errorf("token issue failed: user=%s err=%v", id.ID, err)
		return loginFailed(LoginFailureUnavailable, MsgLoginFailed)
	}

	return LoginResult{
		Success:   true,
		Message:   msg,
		User:      &id,
		Token:     token,
		ExpiresAt: &exp,
		Session: Session{
			State:       SessionAuthenticated,
			ID:          sessionID,
			Identity:    &id,
			LastLoginAt: now,
		},
	}
}

// セッションとカートを一緒に消す
func (u *AuthUsecase) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := errors.Join(
		u.sessions.Delete(ctx, sessionID),
		u.carts.Delete(ctx, sessionID),
	)
	if err != nil {
		u.log.Errorf("sign out failed: %v", err)
		return NewHTTPError(http.StatusInternalServerError, "Sign out failed")
	}
	return nil
}

// 起動時に初期管理者を用意する。
// 同じ番号の顧客が居ればそのレコードを管理者に上げる。
func (u *AuthUsecase) EnsureDefaultAdmin(ctx context.Context, phone string, pin string) error {
	if phone == "" || pin == "" {
		return nil
	}
	if err := u.validator.ValidateAdminLogin(ctx, phone, pin); err != nil {
		return err
	}

	user, err := u.users.FindByPhone(ctx, phone)
	switch {
	case err == nil && user.Role == model.RoleAdmin:
		return nil
	case err == nil:
		if err := u.users.PromoteToAdmin(ctx, user.ID, pin, u.now()); err != nil {
			return err
		}
		u.log.Infof("default admin promoted: %s", user.ID)
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}

	err = u.users.Create(ctx, &model.User{
		ID:       model.AdminUserID(phone),
		Phone:    phone,
		Name:     "Admin",
		Role:     model.RoleAdmin,
		AdminPin: pin,
	})
	if errors.Is(err, repository.ErrConflict) {
		//同時起動で先に作られた
		return nil
	}
	if err == nil {
		u.log.Infof("default admin created: %s", model.AdminUserID(phone))
	}
	return err
}
