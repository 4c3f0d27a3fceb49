package email

import (
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

func TestAlertMessage(t *testing.T) {
	date := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	f := &models.TreasuryForecast{
		ID:               "f-9",
		ForecastDate:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PeriodDays:       30,
		Scenario:         models.ScenarioPessimistic,
		CurrentBalance:   decimal.NewFromInt(50000),
		ProjectedBalance: decimal.NewFromInt(-25000),
		MinBalance:       decimal.NewFromInt(-25000),
		LiquidityRisk:    91.5,
	}
	alerts := []models.ForecastAlert{
		{Severity: models.SeverityCritical, Title: "Projected negative balance", Message: "drops", ProjectedDate: &date,
			Recommendations: []string{"Postpone disbursements"}},
		{Severity: models.SeverityUrgent, Title: "High liquidity risk", Message: "risky"},
	}

	subject := alertSubject(f, alerts)
	if !strings.HasPrefix(subject, "[URGENT] 2 treasury alert(s)") || !strings.Contains(subject, "pessimistic") {
		t.Errorf("subject = %q", subject)
	}

	body := alertBody(f, alerts, 2)
	for _, want := range []string{"-25000.00", "Date: 2024-05-16", "- Postpone disbursements", "Liquidity risk: 91.50", "Forecast id: f-9"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}
