package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Redis    RedisConfig
	S3       S3Config
	Cart     CartConfig
	Checkout CheckoutConfig
	Admin    AdminConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// CartConfig selects the durable cart store and the default tier rates.
type CartConfig struct {
	Store         string // pebble, redis, memory
	PebbleDir     string
	TTL           time.Duration
	Tier2Pct      int
	Tier3PlusPct  int
	SweepSchedule string
}

type CheckoutConfig struct {
	WhatsAppNumber  string
	OrderCodePrefix string
	StoreName       string
}

// AdminConfig seeds the first back-office account on an empty database.
type AdminConfig struct {
	Email    string
	Password string
}

type LogConfig struct {
	Format string // console, json
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "kiply"),
			Password: getEnv("DB_PASSWORD", "kiply"),
			DBName:   getEnv("DB_NAME", "kiplystart"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "change-me"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "kiplystart-products"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Cart: CartConfig{
			Store:         strings.ToLower(getEnv("CART_STORE", "pebble")),
			PebbleDir:     getEnv("CART_PEBBLE_DIR", "./data/carts"),
			TTL:           parseDuration(getEnv("CART_TTL", "720h"), 720*time.Hour),
			Tier2Pct:      parseInt(getEnv("CART_TIER2_PCT", "10"), 10),
			Tier3PlusPct:  parseInt(getEnv("CART_TIER3_PCT", "20"), 20),
			SweepSchedule: getEnv("CART_SWEEP_SCHEDULE", "0 4 * * *"),
		},
		Checkout: CheckoutConfig{
			WhatsAppNumber:  getEnv("WHATSAPP_NUMBER", ""),
			OrderCodePrefix: getEnv("ORDER_CODE_PREFIX", "KS"),
			StoreName:       getEnv("STORE_NAME", "KiplyStart"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.Store {
	case "pebble", "redis", "memory":
	default:
		return fmt.Errorf("unsupported CART_STORE %q", c.Cart.Store)
	}
	if c.Cart.Store == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("CART_STORE=redis requires REDIS_ENABLED=true")
	}
	if c.Cart.Tier2Pct < 0 || c.Cart.Tier2Pct > 100 || c.Cart.Tier3PlusPct < 0 || c.Cart.Tier3PlusPct > 100 {
		return fmt.Errorf("cart tier percentages must be between 0 and 100")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func parseSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
