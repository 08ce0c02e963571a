package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	UsersFile   string
	DatabaseURL string
	CatalogFile string

	CartTTL         time.Duration
	SalesTaxRate    decimal.Decimal
	PasswordHashing bool

	ServerPort    string
	SessionSecret string

	Log struct {
		File  string
		Level string
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		UsersFile:     getenv("USERS_FILE", "users.txt"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CatalogFile:   os.Getenv("CATALOG_FILE"),
		ServerPort:    getenv("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
	}
	cfg.Log.File = getenv("LOG_FILE", "shopcart.log")
	cfg.Log.Level = getenv("LOG_LEVEL", "info")

	ttl, err := time.ParseDuration(getenv("CART_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("CART_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("CART_TTL must be positive")
	}
	cfg.CartTTL = ttl

	rate, err := decimal.NewFromString(getenv("SALES_TAX_RATE", "0.10"))
	if err != nil {
		return nil, fmt.Errorf("SALES_TAX_RATE: %w", err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("SALES_TAX_RATE must not be negative")
	}
	cfg.SalesTaxRate = rate

	hashing, err := strconv.ParseBool(getenv("PASSWORD_HASHING", "true"))
	if err != nil {
		return nil, fmt.Errorf("PASSWORD_HASHING: %w", err)
	}
	cfg.PasswordHashing = hashing

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
