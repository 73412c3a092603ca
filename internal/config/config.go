package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDBPassword = "12345678"
	minSecretLength   = 32
)

type DatabaseConfig struct {
	URL             string // DATABASE_URL wins over the discrete fields when set
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the connection string handed to the postgres driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// UsesDefaultCredentials reports whether the local fallback password is in use.
func (d DatabaseConfig) UsesDefaultCredentials() bool {
	return d.URL == "" && d.Password == defaultDBPassword
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type Config struct {
	HTTPPort     string
	Database     DatabaseConfig
	Redis        RedisConfig
	SecretKey    string
	SessionTTL   time.Duration
	TokenTTL     time.Duration
	CookieSecure bool
	CORSOrigins  string
	LogLevel     string
	LogFormat    string
}

// Load reads .env (when present) and the process environment once at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		HTTPPort: getEnv("PORT", "5001"),
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Name:     getEnv("DB_NAME", "petani_app"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", defaultDBPassword),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		SecretKey:   os.Getenv("SECRET_KEY"),
		CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5001"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	cfg.Database.Port = getInt("DB_PORT", 5432, &errs)
	cfg.Database.MaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 10, &errs)
	cfg.Database.MaxIdleConns = getInt("DB_MAX_IDLE_CONNS", 5, &errs)
	cfg.Database.ConnMaxLifetime = getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs)
	cfg.Redis.DB = getInt("REDIS_DB", 0, &errs)
	cfg.SessionTTL = getDuration("SESSION_TTL", 12*time.Hour, &errs)
	cfg.TokenTTL = getDuration("TOKEN_TTL", 24*time.Hour, &errs)
	cfg.CookieSecure = getBool("COOKIE_SECURE", false, &errs)

	if cfg.Database.URL != "" {
		if _, err := url.Parse(cfg.Database.URL); err != nil {
			errs = append(errs, fmt.Errorf("DATABASE_URL: %w", err))
		}
	}
	if cfg.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY tidak diset"))
	} else if len(cfg.SecretKey) < minSecretLength {
		errs = append(errs, fmt.Errorf("SECRET_KEY minimal %d karakter", minSecretLength))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
