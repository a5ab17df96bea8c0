package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	DBSource          string
	Port              string
	Env               string
	Currency          string
	OpeningBalance    decimal.Decimal
	DebounceThreshold int
	FrameStride       int
	QRModulePixels    int
	MaxFrameWidth     int
	AllowedOrigins    []string
	SessionIdle       time.Duration
}

// Load reads defaults, an optional file named by QRPAY_CONFIG, then environment variables.
// DB_SOURCE is optional; without it the payment journal is disabled.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("CURRENCY", "PKR")
	v.SetDefault("OPENING_BALANCE", "5000")
	v.SetDefault("DEBOUNCE_THRESHOLD", 2)
	v.SetDefault("FRAME_STRIDE", 2)
	v.SetDefault("QR_MODULE_PIXELS", 10)
	v.SetDefault("MAX_FRAME_WIDTH", 1280)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")

	if path := os.Getenv("QRPAY_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	opening, err := decimal.NewFromString(v.GetString("OPENING_BALANCE"))
	if err != nil {
		return nil, fmt.Errorf("OPENING_BALANCE: %w", err)
	}

	cfg := &Config{
		DBSource:          v.GetString("DB_SOURCE"),
		Port:              v.GetString("SERVER_PORT"),
		Env:               v.GetString("ENVIRONMENT"),
		Currency:          v.GetString("CURRENCY"),
		OpeningBalance:    opening,
		DebounceThreshold: v.GetInt("DEBOUNCE_THRESHOLD"),
		FrameStride:       v.GetInt("FRAME_STRIDE"),
		QRModulePixels:    v.GetInt("QR_MODULE_PIXELS"),
		MaxFrameWidth:     v.GetInt("MAX_FRAME_WIDTH"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		SessionIdle:       v.GetDuration("SESSION_IDLE_TIMEOUT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the scanner or ledger cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.DebounceThreshold < 1:
		return fmt.Errorf("DEBOUNCE_THRESHOLD must be at least 1, got %d", c.DebounceThreshold)
	case c.FrameStride < 1:
		return fmt.Errorf("FRAME_STRIDE must be at least 1, got %d", c.FrameStride)
	case c.QRModulePixels < 1:
		return fmt.Errorf("QR_MODULE_PIXELS must be at least 1, got %d", c.QRModulePixels)
	case c.MaxFrameWidth < 0:
		return fmt.Errorf("MAX_FRAME_WIDTH must not be negative, got %d", c.MaxFrameWidth)
	case c.SessionIdle <= 0:
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdle)
	case c.OpeningBalance.IsNegative():
		return fmt.Errorf("OPENING_BALANCE must not be negative, got %s", c.OpeningBalance)
	case c.Port == "":
		return fmt.Errorf("SERVER_PORT is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
