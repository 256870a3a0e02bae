package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	SessionCookieName = "ps3_sid"
	ctxSessionKey     = "session"
)

// SessionRestorer は保存済みセッションを読み直す。
type SessionRestorer interface {
	Restore(ctx context.Context, sessionID string) usecase.Session
}

type TokenParser interface {
	Parse(raw string) (usecase.SessionClaims, error)
}

type SessionConfig struct {
	Secure bool
	MaxAge time.Duration
}

// LoadSession は Bearer の sid か端末cookieからセッションを復元して context に入れる。
// cookie が無ければ新しい端末IDを払い出す。
func LoadSession(auth SessionRestorer, tokens TokenParser, cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sid string

			//Authorizationヘッダがあれば優先
			if authz := c.Request().Header.Get("Authorization"); authz != "" {
				parts := strings.SplitN(authz, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}
				rawToken := strings.TrimSpace(parts[1])
				if rawToken == "" {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}

				claims, err := tokens.Parse(rawToken)
				if err != nil {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}

				sess := auth.Restore(c.Request().Context(), claims.SessionID)
				//sidを使い回した別人のトークンは通さない
				if sess.Authenticated() && sess.Identity.ID != claims.Subject {
					return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
				}
				c.Set(ctxSessionKey, sess)
				return next(c)
			}

			if ck, err := c.Cookie(SessionCookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(sessionCookie(sid, cfg))
			}

			c.Set(ctxSessionKey, auth.Restore(c.Request().Context(), sid))
			return next(c)
		}
	}
}

func sessionCookie(sid string, cfg SessionConfig) *http.Cookie {
	ck := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.MaxAge > 0 {
		ck.MaxAge = int(cfg.MaxAge.Seconds())
	}
	return ck
}

// CurrentSession は LoadSession が入れたセッション。無ければ未初期化。
func CurrentSession(c echo.Context) usecase.Session {
	sess, ok := c.Get(ctxSessionKey).(usecase.Session)
	if !ok {
		return usecase.Session{State: usecase.SessionUninitialized}
	}
	return sess
}

// ログイン・ログアウト後に同じリクエスト内の状態を差し替える
func SetSession(c echo.Context, sess usecase.Session) {
	c.Set(ctxSessionKey, sess)
}

// ログイン済みだけ通す
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentSession(c).Authenticated() {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Success: false, Error: msg}
}
