package treasury

import (
	"context"
	"fmt"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/shopspring/decimal"
)

const (
	yieldPeriodDays  = 30
	yieldProbability = 90
	yieldConfidence  = 80
)

// KeyRateProvider returns the current central bank key rate in percent.
type KeyRateProvider interface {
	KeyRate(ctx context.Context) (decimal.Decimal, error)
}

// ReserveYield synthesizes the interest the idle reserve earns on deposit:
// one INTEREST_EARNED inflow per full 30 days of the window.
type ReserveYield struct {
	rates  KeyRateProvider
	spread decimal.Decimal
}

// NewReserveYield creates a yield source paying the key rate minus spread.
func NewReserveYield(rates KeyRateProvider, spread decimal.Decimal) *ReserveYield {
	return &ReserveYield{rates: rates, spread: spread}
}

func (y *ReserveYield) ReadFlows(ctx context.Context, w Window) ([]models.TreasuryFlow, error) {
	if !w.OpeningBalance.IsPositive() || w.PeriodDays < yieldPeriodDays {
		return nil, nil
	}
	rate, err := y.rates.KeyRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get key rate: %w", err)
	}
	rate = rate.Sub(y.spread)
	if !rate.IsPositive() {
		return nil, nil
	}

	amount := w.OpeningBalance.Mul(rate).Div(hundred).
		Mul(decimal.NewFromInt(yieldPeriodDays)).Div(decimal.NewFromInt(365)).
		Round(models.MoneyScale)

	var flows []models.TreasuryFlow
	for day := yieldPeriodDays; day <= w.PeriodDays; day += yieldPeriodDays {
		flows = append(flows, models.TreasuryFlow{
			ID:           fmt.Sprintf("yield-%s-%d", w.Start.Format("20060102"), day),
			Type:         models.FlowInflow,
			Category:     models.CategoryInterestEarned,
			Amount:       amount,
			Description:  fmt.Sprintf("Reserve deposit interest at %s%%", rate),
			ExpectedDate: w.Date(day),
			Probability:  yieldProbability,
			Confidence:   yieldConfidence,
			Source:       models.SourceReserveYield,
		})
	}
	return flows, nil
}
