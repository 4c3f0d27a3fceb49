package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CurrencyScale != 2 {
		t.Errorf("CurrencyScale = %d, want 2", cfg.CurrencyScale)
	}
	if !cfg.Thresholds.MinReserve.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("MinReserve = %s", cfg.Thresholds.MinReserve)
	}
	if cfg.MailEnabled() {
		t.Error("mail should be disabled without SMTP_HOST")
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("MIN_RESERVE", "2500.50")
	t.Setenv("OVERDUE_PENALTY", "35")
	t.Setenv("ALERT_RECIPIENTS", "a@gmah.org, b@gmah.org,")
	t.Setenv("SMTP_HOST", "smtp.gmah.org")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if !cfg.Thresholds.MinReserve.Equal(decimal.RequireFromString("2500.50")) {
		t.Errorf("MinReserve = %s", cfg.Thresholds.MinReserve)
	}
	if cfg.Thresholds.OverduePenalty != 35 {
		t.Errorf("OverduePenalty = %d", cfg.Thresholds.OverduePenalty)
	}
	if len(cfg.AlertRecipients) != 2 {
		t.Errorf("AlertRecipients = %v", cfg.AlertRecipients)
	}
	if !cfg.MailEnabled() {
		t.Error("mail should be enabled")
	}
}

func TestNewConfigRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"MIN_RESERVE":           "lots",
		"CURRENCY_SCALE":        "-1",
		"OVERDUE_PENALTY":       "120",
		"RESERVE_YIELD_ENABLED": "maybe",
		"HMAC_SECRET":           "",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := NewConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestNewConfigCurrencyScaleFitsStorage(t *testing.T) {
	t.Setenv("CURRENCY_SCALE", "6")
	if _, err := NewConfig(); err == nil {
		t.Fatal("scale finer than the money columns must be rejected")
	}
}
