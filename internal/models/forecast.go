package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Scenario biases uncertain flows
type Scenario string

const (
	ScenarioOptimistic  Scenario = "OPTIMISTIC"
	ScenarioRealistic   Scenario = "REALISTIC"
	ScenarioPessimistic Scenario = "PESSIMISTIC"
)

// Scenarios lists every scenario in a stable order
var Scenarios = []Scenario{ScenarioOptimistic, ScenarioRealistic, ScenarioPessimistic}

// ParseScenario accepts a scenario name in any case; empty means REALISTIC.
func ParseScenario(s string) (Scenario, error) {
	switch sc := Scenario(strings.ToUpper(strings.TrimSpace(s))); sc {
	case "":
		return ScenarioRealistic, nil
	case ScenarioOptimistic, ScenarioRealistic, ScenarioPessimistic:
		return sc, nil
	}
	return "", &ValidationError{Field: "scenario", Reason: "must be OPTIMISTIC, REALISTIC or PESSIMISTIC"}
}

const (
	MinPeriodDays = 1
	MaxPeriodDays = 365
)

// TreasuryForecast is one immutable computed projection
type TreasuryForecast struct {
	ID               string          `json:"id"`
	ForecastDate     time.Time       `json:"forecastDate"`
	PeriodDays       int             `json:"periodDays"`
	Scenario         Scenario        `json:"scenario"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	ProjectedBalance decimal.Decimal `json:"projectedBalance"`
	MinBalance       decimal.Decimal `json:"minBalance"`
	MaxBalance       decimal.Decimal `json:"maxBalance"`
	TotalInflows     decimal.Decimal `json:"totalInflows"`
	TotalOutflows    decimal.Decimal `json:"totalOutflows"`
	NetCashFlow      decimal.Decimal `json:"netCashFlow"`
	LiquidityRisk    float64         `json:"liquidityRisk"`
	VolatilityIndex  float64         `json:"volatilityIndex"`
	ConfidenceLevel  float64         `json:"confidenceLevel"`
	CalculatedAt     time.Time       `json:"calculatedAt"`
	CalculationTime  int64           `json:"calculationTime"`
	DataPoints       int             `json:"dataPoints"`
	Fingerprint      string          `json:"fingerprint"`
	FingerprintValid *bool           `json:"fingerprintValid,omitempty"`
	Metadata         *Metadata       `json:"metadata,omitempty"`
	DailyBalances    []DailyBalance  `json:"dailyBalances"`
	Alerts           []ForecastAlert `json:"alerts"`
	Flows            []TreasuryFlow  `json:"flows"`
}

// CreateForecastRequest is the body of a forecast creation
type CreateForecastRequest struct {
	ForecastDate   string    `json:"forecastDate"`
	PeriodDays     int       `json:"periodDays"`
	Scenario       string    `json:"scenario,omitempty"`
	CurrentBalance string    `json:"currentBalance"`
	Metadata       *Metadata `json:"metadata,omitempty"`
}

// ForecastQuery selects a stored forecast. A nil Days means the default
// period of 30 days.
type ForecastQuery struct {
	Days                  *int
	Scenario              Scenario
	StartDate             *time.Time
	IncludeInactiveAlerts bool
}

// ForecastSummary aggregates stored forecasts and their alerts
type ForecastSummary struct {
	TotalForecasts       int        `json:"totalForecasts"`
	ActiveAlerts         int        `json:"activeAlerts"`
	CriticalAlerts       int        `json:"criticalAlerts"`
	AverageLiquidityRisk float64    `json:"averageLiquidityRisk"`
	LastForecastDate     *time.Time `json:"lastForecastDate,omitempty"`
	NextCriticalDate     *time.Time `json:"nextCriticalDate,omitempty"`
}
