package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"restaurant-orders/internal/domain"
)

type Config struct {
	Port     int
	LogLevel string

	DB DatabaseConfig

	// CartItemIDThreshold is the exclusive upper bound for plausible cart item ids.
	CartItemIDThreshold int64
	// ReconcileInterval enables the periodic status corrective pass when positive.
	ReconcileInterval  time.Duration
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// Load reads configuration from the environment, after .env has been applied.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                8080,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CartItemIDThreshold: domain.DefaultItemIDThreshold,
		CORSAllowedOrigins:  []string{"http://localhost:5173"},
		DB: DatabaseConfig{
			Host:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
			Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   getEnv("BLUEPRINT_DB_SCHEMA", "public"),
		},
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := os.Getenv("CART_ITEM_ID_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseInt(v, 10, 64)
		if err != nil || threshold <= 0 {
			return nil, fmt.Errorf("invalid CART_ITEM_ID_THRESHOLD %q", v)
		}
		cfg.CartItemIDThreshold = threshold
	}

	if v := os.Getenv("STATUS_RECONCILE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid STATUS_RECONCILE_INTERVAL %q", v)
		}
		cfg.ReconcileInterval = d
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := splitList(v)
		if len(origins) == 0 {
			return nil, fmt.Errorf("invalid CORS_ALLOWED_ORIGINS %q", v)
		}
		cfg.CORSAllowedOrigins = origins
	}

	if cfg.DB.Database == "" {
		return nil, fmt.Errorf("BLUEPRINT_DB_DATABASE is required")
	}

	return cfg, nil
}

// DatabaseURL is the connection string for the pgx stdlib driver.
func (c *Config) DatabaseURL() string {
	return c.url("postgres")
}

// MigrateURL is the same database addressed through golang-migrate's pgx v5 driver.
func (c *Config) MigrateURL() string {
	return c.url("pgx5")
}

func (c *Config) url(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.DB.Username, c.DB.Password),
		Host:   c.DB.Host + ":" + c.DB.Port,
		Path:   "/" + c.DB.Database,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("search_path", c.DB.Schema)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
