package treasury

import (
	"context"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/config"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

var start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func flow(id string, typ models.FlowType, amount string, day, prob, conf int) models.TreasuryFlow {
	cat := models.CategoryContribution
	if typ == models.FlowOutflow {
		cat = models.CategoryLoanDisbursement
	}
	return models.TreasuryFlow{
		ID:           id,
		Type:         typ,
		Category:     cat,
		Amount:       dec(amount),
		ExpectedDate: start.AddDate(0, 0, day),
		Probability:  prob,
		Confidence:   conf,
		Source:       models.SourceManual,
	}
}

func actual(f models.TreasuryFlow) models.TreasuryFlow {
	d := f.ExpectedDate
	f.ActualDate = &d
	f.IsActual = true
	return f
}

func staticReader(flows ...models.TreasuryFlow) FlowReader {
	return FlowReaderFunc(func(context.Context, Window) ([]models.TreasuryFlow, error) {
		return flows, nil
	})
}

func schedule(w Window, flows ...models.TreasuryFlow) []ScheduledFlow {
	out, err := NewAggregator(20, staticReader(flows...)).Aggregate(context.Background(), w)
	if err != nil {
		panic(err)
	}
	return out
}

func testEvaluator() *Evaluator {
	return NewEvaluator(config.DefaultThresholds(), 2)
}
