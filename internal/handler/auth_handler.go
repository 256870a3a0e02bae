package handler

import (
	"context"
	"net/http"

	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthService interface {
	LoginWithPhone(ctx context.Context, sessionID string, phone string, name string) usecase.LoginResult
	LoginAdmin(ctx context.Context, sessionID string, phone string, pin string) usecase.LoginResult
	SignOut(ctx context.Context, sessionID string) error
}

type OTPService interface {
	Send(ctx context.Context, phone string) (usecase.OTPSendOutput, error)
	Verify(ctx context.Context, phone string, code string) (usecase.OTPVerifyOutput, error)
}

type AuthHandler struct {
	auth    AuthService
	otp     OTPService
	limiter echo.MiddlewareFunc
}

// DIコンストラクタ。limiter はログインとOTPの経路だけに掛かる（nil なら無し）。
func NewAuthHandler(auth AuthService, otp OTPService, limiter echo.MiddlewareFunc) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp, limiter: limiter}
}

// /auth/login のリクエストボディ。name は新規登録の2段目だけ。
type loginRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type adminLoginRequest struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

type otpSendRequest struct {
	Phone string `json:"phone"`
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (h *AuthHandler) RegisterRoutes(g *echo.Group) {
	a := g.Group("/auth")

	limited := []echo.MiddlewareFunc{}
	if h.limiter != nil {
		limited = append(limited, h.limiter)
	}

	a.POST("/login", h.login, limited...)
	a.POST("/admin/login", h.adminLogin, limited...)
	a.POST("/logout", h.logout)
	a.GET("/session", h.current)

	if h.otp != nil {
		a.POST("/otp/send", h.sendOTP, limited...)
		a.POST("/otp/verify", h.verifyOTP, limited...)
	}
}

// 失敗の種類ごとのHTTPステータス
func loginStatus(res usecase.LoginResult) int {
	if res.Success || res.NeedsName {
		return http.StatusOK
	}
	switch res.Failure {
	case usecase.LoginFailureValidation, usecase.LoginFailureNoSession:
		return http.StatusBadRequest
	case usecase.LoginFailureNotFound:
		return http.StatusNotFound
	case usecase.LoginFailureNotAdmin:
		return http.StatusForbidden
	case usecase.LoginFailureInvalidPin:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuthHandler) respondLogin(c echo.Context, res usecase.LoginResult) error {
	if res.Success {
		middleware.SetSession(c, res.Session)
	}
	return c.JSON(loginStatus(res), res)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	res := h.auth.LoginWithPhone(c.Request().Context(), session(c).ID, req.Phone, req.Name)
	return h.respondLogin(c, res)
}

func (h *AuthHandler) adminLogin(c echo.Context) error {
	var req adminLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	res := h.auth.LoginAdmin(c.Request().Context(), session(c).ID, req.Phone, req.Pin)
	return h.respondLogin(c, res)
}

func (h *AuthHandler) logout(c echo.Context) error {
	sess := session(c)
	if err := h.auth.SignOut(c.Request().Context(), sess.ID); err != nil {
		return writeError(c, err)
	}
	middleware.SetSession(c, usecase.Session{State: usecase.SessionAnonymous, ID: sess.ID})
	return c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "logged out"})
}

// 現在のセッション状態
func (h *AuthHandler) current(c echo.Context) error {
	return c.JSON(http.StatusOK, session(c))
}

func (h *AuthHandler) sendOTP(c echo.Context) error {
	var req otpSendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	out, err := h.otp.Send(c.Request().Context(), req.Phone)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) verifyOTP(c echo.Context) error {
	var req otpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	out, err := h.otp.Verify(c.Request().Context(), req.Phone, req.OTP)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
