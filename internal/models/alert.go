package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType names the condition detected during a forecast run
type AlertType string

const (
	AlertLowCashFlow      AlertType = "LOW_CASH_FLOW"
	AlertNegativeBalance  AlertType = "NEGATIVE_BALANCE"
	AlertHighDemand       AlertType = "HIGH_DEMAND"
	AlertLiquidityWarning AlertType = "LIQUIDITY_WARNING"
	AlertPaymentDelay     AlertType = "PAYMENT_DELAY"
)

// AlertSeverity ranks an alert
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
	SeverityUrgent   AlertSeverity = "URGENT"
)

// Escalated reports whether the severity warrants notifying the treasurers
func (s AlertSeverity) Escalated() bool {
	return s == SeverityCritical || s == SeverityUrgent
}

// ForecastAlert is a condition detected during one forecast run
type ForecastAlert struct {
	ID              string           `json:"id"`
	ForecastID      string           `json:"forecastId"`
	Type            AlertType        `json:"type"`
	Severity        AlertSeverity    `json:"severity"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	TriggeredAt     time.Time        `json:"triggeredAt"`
	ProjectedDate   *time.Time       `json:"projectedDate,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Threshold       *decimal.Decimal `json:"threshold,omitempty"`
	IsActive        bool             `json:"isActive"`
	IsAcknowledged  bool             `json:"isAcknowledged"`
	Recommendations []string         `json:"recommendations,omitempty"`
}
