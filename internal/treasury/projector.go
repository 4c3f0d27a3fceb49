package treasury

import (
	"fmt"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// scenario multipliers for uncertain inflows and outflows
var multipliers = map[models.Scenario][2]decimal.Decimal{
	models.ScenarioOptimistic:  {decimal.RequireFromString("1.10"), decimal.RequireFromString("0.90")},
	models.ScenarioRealistic:   {decimal.NewFromInt(1), decimal.NewFromInt(1)},
	models.ScenarioPessimistic: {decimal.RequireFromString("0.90"), decimal.RequireFromString("1.10")},
}

// Weight is the fraction of a flow's amount counted under a scenario.
// Actual flows always count in full.
func Weight(f models.TreasuryFlow, sc models.Scenario) decimal.Decimal {
	if f.IsActual {
		return decimal.NewFromInt(1)
	}
	m := multipliers[sc]
	mult := m[0]
	if f.Type == models.FlowOutflow {
		mult = m[1]
	}
	return mult.Mul(decimal.NewFromInt(int64(f.Probability))).Div(hundred)
}

// Projection is the unrounded daily walk of one scenario.
type Projection struct {
	Window   Window
	Scenario models.Scenario
	// Balances[d] is the closing balance of day d.
	Balances []decimal.Decimal
	Inflows  []decimal.Decimal
	Outflows []decimal.Decimal

	TotalInflows     decimal.Decimal
	TotalOutflows    decimal.Decimal
	ProjectedBalance decimal.Decimal
	MinBalance       decimal.Decimal
	MaxBalance       decimal.Decimal
	MinDay           int
}

// Project walks the opening balance forward across the window.
func Project(w Window, flows []ScheduledFlow, sc models.Scenario) (*Projection, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if _, ok := multipliers[sc]; !ok {
		return nil, &models.ValidationError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", sc)}
	}

	n := w.Points()
	p := &Projection{
		Window:        w,
		Scenario:      sc,
		Balances:      make([]decimal.Decimal, n),
		Inflows:       make([]decimal.Decimal, n),
		Outflows:      make([]decimal.Decimal, n),
		TotalInflows:  decimal.Zero,
		TotalOutflows: decimal.Zero,
	}
	for d := 0; d < n; d++ {
		p.Inflows[d] = decimal.Zero
		p.Outflows[d] = decimal.Zero
	}

	for _, f := range flows {
		if f.Day < 0 || f.Day >= n {
			return nil, fmt.Errorf("flow %s scheduled on day %d outside window of %d days", f.ID, f.Day, w.PeriodDays)
		}
		v := f.Amount.Mul(Weight(f.TreasuryFlow, sc))
		if f.Type == models.FlowInflow {
			p.Inflows[f.Day] = p.Inflows[f.Day].Add(v)
			p.TotalInflows = p.TotalInflows.Add(v)
		} else {
			p.Outflows[f.Day] = p.Outflows[f.Day].Add(v)
			p.TotalOutflows = p.TotalOutflows.Add(v)
		}
	}

	balance := w.OpeningBalance
	for d := 0; d < n; d++ {
		balance = balance.Add(p.Inflows[d]).Sub(p.Outflows[d])
		p.Balances[d] = balance
		if d == 0 || balance.LessThan(p.MinBalance) {
			p.MinBalance = balance
			p.MinDay = d
		}
		if d == 0 || balance.GreaterThan(p.MaxBalance) {
			p.MaxBalance = balance
		}
	}
	p.ProjectedBalance = p.Balances[n-1]
	return p, nil
}

// Rounded holds the projection's output figures rounded to the currency's minor unit.
type Rounded struct {
	ProjectedBalance decimal.Decimal
	MinBalance       decimal.Decimal
	MaxBalance       decimal.Decimal
	TotalInflows     decimal.Decimal
	TotalOutflows    decimal.Decimal
	NetCashFlow      decimal.Decimal
	Daily            []models.DailyBalance
}

// Round rounds the output figures. Net cash flow is derived from the rounded
// totals so that it always equals inflows minus outflows exactly.
func (p *Projection) Round(scale int32) Rounded {
	r := Rounded{
		ProjectedBalance: p.ProjectedBalance.Round(scale),
		MinBalance:       p.MinBalance.Round(scale),
		MaxBalance:       p.MaxBalance.Round(scale),
		TotalInflows:     p.TotalInflows.Round(scale),
		TotalOutflows:    p.TotalOutflows.Round(scale),
		Daily:            make([]models.DailyBalance, len(p.Balances)),
	}
	r.NetCashFlow = r.TotalInflows.Sub(r.TotalOutflows)
	for d, b := range p.Balances {
		r.Daily[d] = models.DailyBalance{Day: d, Date: p.Window.Date(d), Balance: b.Round(scale)}
	}
	return r
}
