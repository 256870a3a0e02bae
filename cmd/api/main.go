package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/handler"
	"foodorder/internal/infra/db"
	"foodorder/internal/infra/gateway"
	"foodorder/internal/infra/messaging"
	"foodorder/internal/infra/qrcode"
	"foodorder/internal/infra/redisstore"
	infraRepo "foodorder/internal/infra/repository"
	"foodorder/internal/infra/sms"
	"foodorder/internal/logging"
	"foodorder/internal/middleware"
	"foodorder/internal/server"
	"foodorder/internal/usecase"
	"foodorder/internal/validator"

	"github.com/joho/godotenv"
)

const (
	cartTTL           = 30 * 24 * time.Hour
	checkoutRetention = 15 * time.Minute
	shutdownGrace     = 10 * time.Second
)

type eventPublisher interface {
	usecase.OrderEventPublisher
	Close() error
}

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("foodorder", "info").Fatalf("config: %v", err)
	}
	log := logging.New("foodorder", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb, err := redisstore.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	//Repository生成
	feed := redisstore.NewOrderFeed(rdb, redisstore.DefaultOrderChannel, log)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB, feed, log)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	menuRepo := infraRepo.NewMenuGormRepository(gormDB)
	ledgerRepo := infraRepo.NewPaymentRecordGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB, orderRepo)

	cartStore := redisstore.NewCartStore(rdb, cartTTL)
	sessionStore := redisstore.NewSessionStore(rdb)

	var events eventPublisher = messaging.NopPublisher{}
	if cfg.KafkaBroker != "" {
		events = messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaOrderTopic))
	} else {
		log.Infof("KAFKA_BROKER is not set; order events are not published")
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Warnf("event publisher close: %v", err)
		}
	}()

	//決済ゲートウェイは鍵があるときだけ
	var gw usecase.PaymentGateway
	if cfg.OnlinePaymentsEnabled() {
		gw = gateway.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)
	} else {
		log.Warnf("payment gateway keys are not set; online payment is disabled")
	}

	//Usecase生成
	authValidator := validator.NewAuthValidator()
	tokens := usecase.NewSessionTokenIssuer(cfg.JWTSecret, cfg.SessionTimeout)
	authUC := usecase.NewAuthUsecase(userRepo, sessionStore, cartStore, authValidator, tokens, cfg.SessionTimeout, log)
	if err := authUC.EnsureDefaultAdmin(ctx, cfg.AdminDefaultPhone, cfg.AdminDefaultPin); err != nil {
		log.Fatalf("default admin: %v", err)
	}

	menuUC := usecase.NewMenuUsecase(menuRepo, log)
	cartUC := usecase.NewCartUsecase(cartStore, menuRepo, log)
	gatewayUC := usecase.NewGatewayUsecase(gw, cfg.RazorpayKeyID, cfg.PaymentCurrency, log)

	registry := usecase.NewCheckoutRegistry(checkoutRetention)
	defer registry.Close()

	var paymentServer usecase.PaymentServer
	if gatewayUC.Enabled() {
		paymentServer = gatewayUC
	}
	payments := usecase.NewPaymentProcessor(paymentServer, registry, cfg.RazorpayKeyID, log)
	checkoutUC := usecase.NewCheckoutUsecase(cartUC, payments, txm, ledgerRepo, events, registry, cfg.PaymentCurrency, cfg.OrderRefPrefix, log)

	orderUC := usecase.NewOrderUsecase(orderRepo, qrcode.NewRenderer(cfg.PublicBaseURL), log)
	adminUC := usecase.NewAdminOrderUsecase(orderRepo, txm, auditRepo, events, cfg.Location, log)
	reconcileUC := usecase.NewReconcileUsecase(ledgerRepo, txm, events, log)

	var otp handler.OTPService
	if cfg.OTPAPIKey != "" {
		smsClient := sms.NewTwoFactorClient(cfg.OTPAPIKey, cfg.OTPBaseURL, cfg.OTPTemplate)
		otp = usecase.NewOTPUsecase(redisstore.NewOTPStore(rdb), smsClient, authValidator, log)
	}

	//Handler生成
	limiter := middleware.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst)
	handlers := server.Handlers{
		Auth:       handler.NewAuthHandler(authUC, otp, limiter),
		Menu:       handler.NewMenuHandler(menuUC),
		Cart:       handler.NewCartHandler(cartUC),
		Checkout:   handler.NewCheckoutHandler(checkoutUC),
		Payment:    handler.NewPaymentHandler(gatewayUC),
		Orders:     handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminUC, reconcileUC),
	}

	e := server.New(cfg, log)
	loadSession := middleware.LoadSession(authUC, tokens, middleware.SessionConfig{
		Secure: cfg.IsProd(),
		MaxAge: cartTTL,
	})
	server.RegisterRoutes(e, loadSession, handlers)

	//Server起動
	addr := ":" + cfg.Port
	log.Infof("listening on %s", addr)
	if err := server.Run(ctx, e, addr, shutdownGrace); err != nil {
		log.Errorf("server: %v", err)
	}
	log.Infof("server stopped")
}
