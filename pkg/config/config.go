package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DBConfig holds database connection settings
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the parts
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds all runtime configuration
type Config struct {
	AppName           string
	Env               string
	Port              string
	LogLevel          string
	CORSOrigins       string
	ProductImagePath  string
	LowStockThreshold int
	DashboardCacheTTL time.Duration
	AdminEmail        string
	AdminPassword     string

	DB    DBConfig
	JWT   JWTConfig
	Redis RedisConfig
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "InvenTrack")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("PRODUCT_IMAGE_PATH", "./storage/products")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("DASHBOARD_CACHE_TTL", "60s")
	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "inventrack")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_LOG_LEVEL", "warn")

	v.SetDefault("JWT_SECRET", "your-super-secret-key-change-in-production")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppName:           v.GetString("APP_NAME"),
		Env:               v.GetString("APP_ENV"),
		Port:              v.GetString("PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		CORSOrigins:       v.GetString("CORS_ALLOWED_ORIGINS"),
		ProductImagePath:  v.GetString("PRODUCT_IMAGE_PATH"),
		LowStockThreshold: v.GetInt("LOW_STOCK_THRESHOLD"),
		DashboardCacheTTL: v.GetDuration("DASHBOARD_CACHE_TTL"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		DB: DBConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			TimeZone:        v.GetString("DB_TIMEZONE"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			LogLevel:        v.GetString("DB_LOG_LEVEL"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			ExpirationHours: v.GetInt("JWT_EXPIRATION_HOURS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}

	if cfg.LowStockThreshold < 0 {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative, got %d", cfg.LowStockThreshold)
	}
	if cfg.JWT.ExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", cfg.JWT.ExpirationHours)
	}
	if cfg.IsProduction() && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	return cfg, nil
}
