package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	StorageDriver string // postgres / memory

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット（発行は外部）

	GoEnv    string // dev/prod
	LogLevel string
	FEURL    string // フロントURL（CORSで使う）

	RedisURL     string   // 空ならプロセス内ロック
	KafkaBrokers []string // 空ならログ通知
	KafkaTopic   string

	OTLPEndpoint string // 空ならトレースを送らない

	PendingOrderTTL time.Duration // Pendingのまま放置された注文の期限
	ExpirySchedule  string        // cron式
	CheckoutLockTTL time.Duration

	RateLimit float64 // 1秒あたり（IPごと）
	RateBurst int
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StoragePostgres)),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		FEURL:    os.Getenv("FE_URL"),

		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "order.events"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		ExpirySchedule: getenv("EXPIRY_SCHEDULE", "@every 1m"),
	}

	var err error
	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.PendingOrderTTL, err = durationDefault("PENDING_ORDER_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CheckoutLockTTL, err = durationDefault("CHECKOUT_LOCK_TTL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = atoiDefault("RATE_BURST", 40); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = floatDefault("RATE_LIMIT", 20); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			if cfg.PostgresUser == "" {
				return Config{}, fmt.Errorf("POSTGRES_USER is required")
			}
			if cfg.PostgresDB == "" {
				return Config{}, fmt.Errorf("POSTGRES_DB is required")
			}
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be postgres or memory")
	}
	if cfg.PendingOrderTTL <= 0 {
		return Config{}, fmt.Errorf("PENDING_ORDER_TTL must be positive")
	}
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
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

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
