package treasury

import (
	"testing"

	"github.com/Dan9191/gmah-treasury/internal/models"
)

func TestProjectPointCount(t *testing.T) {
	for _, days := range []int{1, 7, 30, 90, 365} {
		w := NewWindow(start, days, dec("100"))
		p, err := Project(w, nil, models.ScenarioRealistic)
		if err != nil {
			t.Fatalf("days=%d: %v", days, err)
		}
		if len(p.Balances) != days+1 {
			t.Errorf("days=%d: %d balance points, want %d", days, len(p.Balances), days+1)
		}
		if r := p.Round(2); len(r.Daily) != days+1 || !r.Daily[days].Date.Equal(w.End()) {
			t.Errorf("days=%d: daily series %d points ending %v", days, len(r.Daily), r.Daily[len(r.Daily)-1].Date)
		}
	}
}

func TestProjectRejectsPeriod(t *testing.T) {
	for _, days := range []int{0, -1, 366} {
		if _, err := Project(NewWindow(start, days, dec("0")), nil, models.ScenarioRealistic); err == nil {
			t.Errorf("days=%d: expected validation error", days)
		}
	}
	if _, err := Project(NewWindow(start, 3, dec("0")), nil, "WISHFUL"); err == nil {
		t.Error("expected unknown scenario error")
	}
}

func TestProjectNegativeBalanceScenario(t *testing.T) {
	w := NewWindow(start, 30, dec("50000"))
	flows := schedule(w,
		flow("in", models.FlowInflow, "10000", 10, 100, 100),
		flow("out", models.FlowOutflow, "65000", 15, 100, 100),
	)
	p, err := Project(w, flows, models.ScenarioRealistic)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	r := p.Round(2)

	checks := map[string][2]string{
		"projected": {r.ProjectedBalance.String(), "-5000"},
		"min":       {r.MinBalance.String(), "-5000"},
		"max":       {r.MaxBalance.String(), "60000"},
		"inflows":   {r.TotalInflows.String(), "10000"},
		"outflows":  {r.TotalOutflows.String(), "65000"},
		"net":       {r.NetCashFlow.String(), "-55000"},
		"day 14":    {p.Balances[14].String(), "60000"},
		"day 15":    {p.Balances[15].String(), "-5000"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %s, want %s", name, c[0], c[1])
		}
	}
	if p.MinDay != 15 {
		t.Errorf("MinDay = %d, want 15", p.MinDay)
	}
}

func TestProjectSeriesInvariants(t *testing.T) {
	w := NewWindow(start, 60, dec("1234.56"))
	flows := schedule(w,
		flow("a", models.FlowInflow, "333.33", 3, 75, 60),
		flow("b", models.FlowOutflow, "999.99", 9, 40, 50),
		actual(flow("c", models.FlowOutflow, "10.01", 9, 100, 100)),
		flow("d", models.FlowInflow, "0.07", 59, 13, 20),
		flow("e", models.FlowOutflow, "5000", 44, 85, 90),
	)
	for _, sc := range models.Scenarios {
		p, err := Project(w, flows, sc)
		if err != nil {
			t.Fatalf("%s: %v", sc, err)
		}
		r := p.Round(2)
		if !r.NetCashFlow.Equal(r.TotalInflows.Sub(r.TotalOutflows)) {
			t.Errorf("%s: net %s != %s - %s", sc, r.NetCashFlow, r.TotalInflows, r.TotalOutflows)
		}
		for d, b := range p.Balances {
			if b.LessThan(p.MinBalance) || b.GreaterThan(p.MaxBalance) {
				t.Errorf("%s: day %d balance %s outside [%s, %s]", sc, d, b, p.MinBalance, p.MaxBalance)
			}
		}
		for _, db := range r.Daily {
			if db.Balance.LessThan(r.MinBalance) || db.Balance.GreaterThan(r.MaxBalance) {
				t.Errorf("%s: rounded day %d outside extremes", sc, db.Day)
			}
		}
	}
}

func TestProjectScenarioBias(t *testing.T) {
	w := NewWindow(start, 20, dec("1000"))
	uncertain := schedule(w,
		flow("in", models.FlowInflow, "500", 2, 100, 100),
		flow("out", models.FlowOutflow, "300", 4, 100, 100),
	)
	realistic, _ := Project(w, uncertain, models.ScenarioRealistic)
	optimistic, _ := Project(w, uncertain, models.ScenarioOptimistic)
	pessimistic, _ := Project(w, uncertain, models.ScenarioPessimistic)

	if realistic.ProjectedBalance.String() != "1200" {
		t.Fatalf("realistic = %s, want 1200", realistic.ProjectedBalance)
	}
	// 1000 + 550 - 270
	if optimistic.ProjectedBalance.String() != "1280" {
		t.Errorf("optimistic = %s, want 1280", optimistic.ProjectedBalance)
	}
	// 1000 + 450 - 330
	if pessimistic.ProjectedBalance.String() != "1120" {
		t.Errorf("pessimistic = %s, want 1120", pessimistic.ProjectedBalance)
	}

	certain := schedule(w,
		actual(flow("in", models.FlowInflow, "500", 2, 100, 100)),
		actual(flow("out", models.FlowOutflow, "300", 4, 100, 100)),
	)
	base, _ := Project(w, certain, models.ScenarioRealistic)
	for _, sc := range []models.Scenario{models.ScenarioOptimistic, models.ScenarioPessimistic} {
		p, _ := Project(w, certain, sc)
		for d := range p.Balances {
			if !p.Balances[d].Equal(base.Balances[d]) {
				t.Fatalf("%s: day %d = %s, want %s for actual flows", sc, d, p.Balances[d], base.Balances[d])
			}
		}
	}
}

func TestProjectWeightsByProbability(t *testing.T) {
	w := NewWindow(start, 5, dec("0"))
	p, _ := Project(w, schedule(w, flow("in", models.FlowInflow, "1000", 1, 35, 100)), models.ScenarioRealistic)
	if p.TotalInflows.String() != "350" {
		t.Fatalf("weighted inflow = %s, want 350", p.TotalInflows)
	}
}

func TestProjectRoundsOnlyOnOutput(t *testing.T) {
	w := NewWindow(start, 3, dec("0"))
	flows := schedule(w,
		flow("a", models.FlowInflow, "0.004", 1, 100, 100),
		flow("b", models.FlowInflow, "0.004", 2, 100, 100),
		flow("c", models.FlowInflow, "0.004", 3, 100, 100),
	)
	p, _ := Project(w, flows, models.ScenarioRealistic)
	if got := p.Round(2).ProjectedBalance.String(); got != "0.01" {
		t.Fatalf("projected = %s, want 0.01", got)
	}
}
