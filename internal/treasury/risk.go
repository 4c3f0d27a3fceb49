package treasury

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/config"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

// ErrMetricOutOfRange means a score left its documented range, which only
// happens on corrupt input data.
var ErrMetricOutOfRange = errors.New("forecast metric out of range")

const (
	// days of average outflow the minimum balance must cover for zero cushion risk
	coverDays     = 30
	highDemandLen = 7
)

var (
	cushionWeight    = decimal.RequireFromString("0.7")
	confidenceWeight = decimal.RequireFromString("0.3")
	urgentRisk       = 90.0
)

// Metrics are the scalar risk indicators of a run.
type Metrics struct {
	LiquidityRisk   float64
	VolatilityIndex float64
	ConfidenceLevel float64
}

// Evaluator derives metrics and alerts from a projection.
type Evaluator struct {
	t     config.Thresholds
	scale int32
}

// NewEvaluator creates an evaluator. Alert amounts are rounded to scale digits.
func NewEvaluator(t config.Thresholds, scale int32) *Evaluator {
	return &Evaluator{t: t, scale: scale}
}

// Evaluate computes the metrics and raises the alerts for a projection.
func (e *Evaluator) Evaluate(p *Projection, flows []ScheduledFlow) (Metrics, []models.ForecastAlert, error) {
	m, err := e.Metrics(p, flows)
	if err != nil {
		return Metrics{}, nil, err
	}
	return m, e.Alerts(p, flows, m), nil
}

// Metrics computes liquidity risk, volatility and confidence.
//
// Liquidity risk is 0.7 × cushion risk + 0.3 × (100 − mean flow confidence).
// Cushion risk is 100 when the minimum balance is at or below zero and falls
// linearly to 0 as the minimum balance reaches 30 days of average outflow.
func (e *Evaluator) Metrics(p *Projection, flows []ScheduledFlow) (Metrics, error) {
	n := decimal.NewFromInt(int64(len(p.Balances)))

	cushion := decimal.Zero
	avgOut := p.TotalOutflows.Div(n)
	switch {
	case !p.MinBalance.IsPositive():
		cushion = hundred
	case avgOut.IsPositive():
		ratio := p.MinBalance.Div(avgOut).Div(decimal.NewFromInt(coverDays))
		if ratio.LessThan(decimal.NewFromInt(1)) {
			cushion = hundred.Mul(decimal.NewFromInt(1).Sub(ratio))
		}
	}

	penalty := decimal.Zero
	level := hundred
	if len(flows) > 0 {
		count := decimal.NewFromInt(int64(len(flows)))
		var conf, weighted decimal.Decimal
		for _, f := range flows {
			conf = conf.Add(decimal.NewFromInt(int64(f.Confidence)))
			weighted = weighted.Add(decimal.NewFromInt(int64(f.Probability * f.Confidence)).Div(hundred))
		}
		penalty = hundred.Sub(conf.Div(count))
		level = weighted.Div(count)
	}

	risk := cushionWeight.Mul(cushion).Add(confidenceWeight.Mul(penalty))

	m := Metrics{
		LiquidityRisk:   risk.Round(2).InexactFloat64(),
		VolatilityIndex: volatility(p),
		// truncated so that anything short of full certainty stays below 100
		ConfidenceLevel: level.Truncate(2).InexactFloat64(),
	}
	if err := checkRange("liquidityRisk", m.LiquidityRisk); err != nil {
		return Metrics{}, err
	}
	if err := checkRange("confidenceLevel", m.ConfidenceLevel); err != nil {
		return Metrics{}, err
	}
	if m.VolatilityIndex < 0 || math.IsNaN(m.VolatilityIndex) {
		return Metrics{}, fmt.Errorf("volatilityIndex %v: %w", m.VolatilityIndex, ErrMetricOutOfRange)
	}
	return m, nil
}

func checkRange(name string, v float64) error {
	if v < 0 || v > 100 || math.IsNaN(v) {
		return fmt.Errorf("%s %v: %w", name, v, ErrMetricOutOfRange)
	}
	return nil
}

// volatility is the population standard deviation of day-over-day balance
// changes, day 0 measured against the opening balance.
func volatility(p *Projection) float64 {
	n := len(p.Balances)
	deltas := make([]decimal.Decimal, n)
	prev := p.Window.OpeningBalance
	sum := decimal.Zero
	for d, b := range p.Balances {
		deltas[d] = b.Sub(prev)
		sum = sum.Add(deltas[d])
		prev = b
	}
	count := decimal.NewFromInt(int64(n))
	mean := sum.Div(count)
	variance := decimal.Zero
	for _, delta := range deltas {
		diff := delta.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(count)
	return math.Round(math.Sqrt(variance.InexactFloat64())*100) / 100
}

// Alerts applies the threshold rules. The result is ordered by rule.
func (e *Evaluator) Alerts(p *Projection, flows []ScheduledFlow, m Metrics) []models.ForecastAlert {
	var alerts []models.ForecastAlert

	if day, ok := firstBelow(p.Balances, decimal.Zero); ok {
		severity := models.SeverityWarning
		if p.MinBalance.LessThan(e.t.NegativeHardFloor) {
			severity = models.SeverityCritical
		}
		amount := p.Balances[day]
		alerts = append(alerts, e.alert(models.AlertNegativeBalance, severity, p.Window.Date(day), amount, decimal.Zero,
			"Projected negative balance",
			fmt.Sprintf("The fund balance is projected to drop to %s on %s.", amount.StringFixed(e.scale), p.Window.Date(day).Format(time.DateOnly))))
	}

	if day, ok := firstBelow(p.Balances, e.t.MinReserve); ok {
		alerts = append(alerts, e.alert(models.AlertLowCashFlow, models.SeverityWarning, p.Window.Date(day), p.MinBalance, e.t.MinReserve,
			"Balance below minimum reserve",
			fmt.Sprintf("The balance falls under the %s reserve from %s, reaching %s.",
				e.t.MinReserve.StringFixed(e.scale), p.Window.Date(day).Format(time.DateOnly), p.MinBalance.StringFixed(e.scale))))
	}

	risk := decimal.NewFromFloat(m.LiquidityRisk)
	if risk.GreaterThan(e.t.LiquidityWarning) {
		severity := models.SeverityWarning
		if m.LiquidityRisk >= urgentRisk {
			severity = models.SeverityUrgent
		}
		alerts = append(alerts, e.alert(models.AlertLiquidityWarning, severity, p.Window.Date(p.MinDay), risk, e.t.LiquidityWarning,
			"High liquidity risk",
			fmt.Sprintf("Liquidity risk score is %.2f, above the %s threshold.", m.LiquidityRisk, e.t.LiquidityWarning)))
	}

	if day, sum, limit, ok := e.highDemand(p); ok {
		alerts = append(alerts, e.alert(models.AlertHighDemand, models.SeverityInfo, p.Window.Date(day), sum, limit,
			"High outflow demand",
			fmt.Sprintf("Outflows of %s are expected in the week starting %s.", sum.StringFixed(e.scale), p.Window.Date(day).Format(time.DateOnly))))
	}

	overdue := decimal.Zero
	for _, f := range flows {
		if f.Overdue && f.Type == models.FlowInflow {
			overdue = overdue.Add(f.Amount)
		}
	}
	if limit := e.t.PaymentDelayFraction.Mul(p.TotalInflows); overdue.IsPositive() && overdue.GreaterThan(limit) {
		alerts = append(alerts, e.alert(models.AlertPaymentDelay, models.SeverityWarning, p.Window.Start, overdue, limit,
			"Overdue incoming payments",
			fmt.Sprintf("Overdue inflows of %s exceed %s%% of expected inflows.", overdue.StringFixed(e.scale), e.t.PaymentDelayFraction.Mul(hundred))))
	}

	return alerts
}

// highDemand finds the first 7-day window whose outflows exceed the configured
// multiple of the average 7-day outflow.
func (e *Evaluator) highDemand(p *Projection) (int, decimal.Decimal, decimal.Decimal, bool) {
	n := len(p.Outflows)
	if n < highDemandLen || !p.TotalOutflows.IsPositive() {
		return 0, decimal.Zero, decimal.Zero, false
	}
	avgWeek := p.TotalOutflows.Mul(decimal.NewFromInt(highDemandLen)).Div(decimal.NewFromInt(int64(n)))
	limit := e.t.HighDemandMultiple.Mul(avgWeek)

	sum := decimal.Zero
	for d := 0; d < highDemandLen; d++ {
		sum = sum.Add(p.Outflows[d])
	}
	for start := 0; ; start++ {
		if sum.GreaterThan(limit) {
			return start, sum, limit, true
		}
		if start+highDemandLen >= n {
			return 0, decimal.Zero, decimal.Zero, false
		}
		sum = sum.Sub(p.Outflows[start]).Add(p.Outflows[start+highDemandLen])
	}
}

func firstBelow(series []decimal.Decimal, limit decimal.Decimal) (int, bool) {
	for d, b := range series {
		if b.LessThan(limit) {
			return d, true
		}
	}
	return 0, false
}

func (e *Evaluator) alert(typ models.AlertType, sev models.AlertSeverity, date time.Time, amount, threshold decimal.Decimal, title, msg string) models.ForecastAlert {
	amount = amount.Round(e.scale)
	threshold = threshold.Round(e.scale)
	return models.ForecastAlert{
		Type:            typ,
		Severity:        sev,
		Title:           title,
		Message:         msg,
		ProjectedDate:   &date,
		Amount:          &amount,
		Threshold:       &threshold,
		IsActive:        true,
		Recommendations: slices.Clone(recommendations[typ]),
	}
}

var recommendations = map[models.AlertType][]string{
	models.AlertNegativeBalance: {
		"Postpone approved disbursements scheduled before the shortfall date",
		"Ask pledged contributors to bring their payments forward",
	},
	models.AlertLowCashFlow: {
		"Hold new loan approvals until the reserve is restored",
		"Review pending deposit withdrawal requests",
	},
	models.AlertLiquidityWarning: {
		"Verify the confidence of uncertain flows with the committee",
		"Prepare a contingency line with partner funds",
	},
	models.AlertHighDemand: {
		"Stagger disbursements across the following weeks",
	},
	models.AlertPaymentDelay: {
		"Contact borrowers and guarantors of overdue installments",
	},
}
