package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) KeyRate(context.Context) (decimal.Decimal, error) { return f.rate, f.err }

func TestReserveYieldFlows(t *testing.T) {
	y := NewReserveYield(fixedRate{rate: dec("16")}, dec("2"))
	w := NewWindow(start, 90, dec("100000"))

	flows, err := y.ReadFlows(context.Background(), w)
	if err != nil {
		t.Fatalf("ReadFlows: %v", err)
	}
	if len(flows) != 3 {
		t.Fatalf("got %d flows, want 3", len(flows))
	}
	for i, f := range flows {
		if !f.ExpectedDate.Equal(w.Date(30 * (i + 1))) {
			t.Errorf("flow %d date = %v", i, f.ExpectedDate)
		}
		if f.Category != models.CategoryInterestEarned || f.Type != models.FlowInflow {
			t.Errorf("flow %d = %s/%s", i, f.Type, f.Category)
		}
		if got := f.Amount.Round(2).String(); got != "1150.68" {
			t.Errorf("flow %d amount = %s, want 1150.68", i, got)
		}
		if err := f.Validate(); err != nil {
			t.Errorf("flow %d invalid: %v", i, err)
		}
	}
}

func TestReserveYieldSkips(t *testing.T) {
	ctx := context.Background()
	y := NewReserveYield(fixedRate{rate: dec("16")}, dec("2"))
	if flows, _ := y.ReadFlows(ctx, NewWindow(start, 20, dec("100000"))); len(flows) != 0 {
		t.Errorf("short window produced %d flows", len(flows))
	}
	if flows, _ := y.ReadFlows(ctx, NewWindow(start, 60, dec("-5"))); len(flows) != 0 {
		t.Errorf("negative reserve produced %d flows", len(flows))
	}
	low := NewReserveYield(fixedRate{rate: dec("1.5")}, dec("2"))
	if flows, _ := low.ReadFlows(ctx, NewWindow(start, 60, dec("100000"))); len(flows) != 0 {
		t.Errorf("rate below spread produced %d flows", len(flows))
	}
}

func TestReserveYieldPropagatesError(t *testing.T) {
	boom := errors.New("soap fault")
	y := NewReserveYield(fixedRate{err: boom}, dec("2"))
	if _, err := y.ReadFlows(context.Background(), NewWindow(start, 60, dec("100"))); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped rate error", err)
	}
}
