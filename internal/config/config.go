package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string        // JWT署名シークレット
	SessionTimeout time.Duration // ログインの有効期間（120分）

	AdminDefaultPhone string // 初期管理者
	AdminDefaultPin   string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	PaymentCurrency   string

	OTPAPIKey   string
	OTPBaseURL  string
	OTPTemplate string

	KafkaBroker     string // 空ならイベント送信しない
	KafkaOrderTopic string

	GoEnv         string // dev/prod
	FEURL         string // フロントURL（CORSなどで使う）
	PublicBaseURL string // QRに載せるURL
	Location      *time.Location
	LogLevel      string

	OrderRefPrefix string

	AuthRateRPS   float64
	AuthRateBurst int
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiDefault("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	timeoutMin, err := atoiDefault("SESSION_TIMEOUT_MINUTES", 120)
	if err != nil {
		return Config{}, err
	}
	burst, err := atoiDefault("AUTH_RATE_BURST", 5)
	if err != nil {
		return Config{}, err
	}
	rps, err := floatDefault("AUTH_RATE_RPS", 1)
	if err != nil {
		return Config{}, err
	}

	tz := getenv("TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "foodorder"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionTimeout: time.Duration(timeoutMin) * time.Minute,

		AdminDefaultPhone: os.Getenv("ADMIN_DEFAULT_PHONE"),
		AdminDefaultPin:   os.Getenv("ADMIN_DEFAULT_PIN"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:   getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		PaymentCurrency:   getenv("PAYMENT_CURRENCY", "INR"),

		OTPAPIKey:   os.Getenv("OTP_API_KEY"),
		OTPBaseURL:  getenv("OTP_BASE_URL", "https://2factor.in/API/V1"),
		OTPTemplate: getenv("OTP_TEMPLATE", "PS3FastFood"),

		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaOrderTopic: getenv("KAFKA_ORDER_TOPIC", "orders"),

		GoEnv:         getenv("GO_ENV", "dev"),
		FEURL:         getenv("FE_URL", "http://localhost:5173"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:5173"),
		Location:      loc,
		LogLevel:      getenv("LOG_LEVEL", "info"),

		OrderRefPrefix: getenv("ORDER_REF_PREFIX", "PS3"),

		AuthRateRPS:   rps,
		AuthRateBurst: burst,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SessionTimeout <= 0 {
		return Config{}, fmt.Errorf("SESSION_TIMEOUT_MINUTES must be positive")
	}
	if (cfg.RazorpayKeyID == "") != (cfg.RazorpayKeySecret == "") {
		return Config{}, fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}
	if (cfg.AdminDefaultPhone == "") != (cfg.AdminDefaultPin == "") {
		return Config{}, fmt.Errorf("ADMIN_DEFAULT_PHONE and ADMIN_DEFAULT_PIN must be set together")
	}

	return cfg, nil
}

// オンライン決済が使えるか
func (c Config) OnlinePaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// DSN は DATABASE_URL が無ければ POSTGRES_* から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatDefault(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}
