package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port                  string
	DBConn                string
	LogLevel              string
	JWTSecret             string
	TreasurerLogin        string
	TreasurerPasswordHash string
	CBRURL                string
	HMACSecret            string

	ReserveYieldEnabled bool
	ReserveYieldSpread  decimal.Decimal

	Thresholds Thresholds

	// CurrencyScale is the number of minor-unit digits money is rounded to on output.
	CurrencyScale int32
	ForecastCron  string

	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	AlertRecipients []string
}

// Thresholds configures the risk and alert rules of a forecast run.
type Thresholds struct {
	MinReserve           decimal.Decimal
	NegativeHardFloor    decimal.Decimal
	LiquidityWarning     decimal.Decimal
	HighDemandMultiple   decimal.Decimal
	PaymentDelayFraction decimal.Decimal
	OverduePenalty       int
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinReserve:           decimal.NewFromInt(10000),
		NegativeHardFloor:    decimal.NewFromInt(-10000),
		LiquidityWarning:     decimal.NewFromInt(70),
		HighDemandMultiple:   decimal.NewFromInt(2),
		PaymentDelayFraction: decimal.RequireFromString("0.2"),
		OverduePenalty:       20,
	}
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		DBConn:                getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=gmah sslmode=disable"),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:             getEnv("JWT_SECRET", "secret"),
		TreasurerLogin:        getEnv("TREASURER_LOGIN", "treasurer"),
		TreasurerPasswordHash: getEnv("TREASURER_PASSWORD_HASH", ""),
		CBRURL:                getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		HMACSecret:            getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		ForecastCron:          getEnv("FORECAST_CRON", "0 2 * * *"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnv("SMTP_PORT", "587"),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		SenderEmail:           getEnv("SENDER_EMAIL", "treasury@gmah.local"),
		AlertRecipients:       splitList(getEnv("ALERT_RECIPIENTS", "")),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	var err error
	if cfg.ReserveYieldEnabled, err = strconv.ParseBool(getEnv("RESERVE_YIELD_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("RESERVE_YIELD_ENABLED: %w", err)
	}
	if cfg.ReserveYieldSpread, err = getDecimal("RESERVE_YIELD_SPREAD", "2"); err != nil {
		return nil, err
	}

	scale, err := strconv.Atoi(getEnv("CURRENCY_SCALE", "2"))
	if err != nil || scale < 0 || scale > 4 {
		return nil, fmt.Errorf("CURRENCY_SCALE must be an integer between 0 and 4")
	}
	cfg.CurrencyScale = int32(scale)

	t := DefaultThresholds()
	if t.MinReserve, err = getDecimal("MIN_RESERVE", t.MinReserve.String()); err != nil {
		return nil, err
	}
	if t.NegativeHardFloor, err = getDecimal("NEGATIVE_HARD_FLOOR", t.NegativeHardFloor.String()); err != nil {
		return nil, err
	}
	if t.LiquidityWarning, err = getDecimal("LIQUIDITY_WARNING_THRESHOLD", t.LiquidityWarning.String()); err != nil {
		return nil, err
	}
	if t.HighDemandMultiple, err = getDecimal("HIGH_DEMAND_MULTIPLE", t.HighDemandMultiple.String()); err != nil {
		return nil, err
	}
	if t.PaymentDelayFraction, err = getDecimal("PAYMENT_DELAY_FRACTION", t.PaymentDelayFraction.String()); err != nil {
		return nil, err
	}
	if t.OverduePenalty, err = strconv.Atoi(getEnv("OVERDUE_PENALTY", strconv.Itoa(t.OverduePenalty))); err != nil {
		return nil, fmt.Errorf("OVERDUE_PENALTY: %w", err)
	}
	if t.OverduePenalty < 0 || t.OverduePenalty > 100 {
		return nil, fmt.Errorf("OVERDUE_PENALTY must be between 0 and 100")
	}
	cfg.Thresholds = t

	return cfg, nil
}

// MailEnabled reports whether alert e-mails can be delivered.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && len(c.AlertRecipients) > 0
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDecimal(key, defaultVal string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultVal))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
