package treasury

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dan9191/gmah-treasury/internal/models"
)

const overdueTag = "overdue"

// FlowReader supplies candidate flows for a window. Readers may return flows
// outside the window; the Aggregator filters them.
type FlowReader interface {
	ReadFlows(ctx context.Context, w Window) ([]models.TreasuryFlow, error)
}

// FlowReaderFunc adapts a function to FlowReader.
type FlowReaderFunc func(ctx context.Context, w Window) ([]models.TreasuryFlow, error)

func (f FlowReaderFunc) ReadFlows(ctx context.Context, w Window) ([]models.TreasuryFlow, error) {
	return f(ctx, w)
}

// ScheduledFlow is a flow placed on a day of the window.
type ScheduledFlow struct {
	models.TreasuryFlow
	Day     int
	Overdue bool
}

// Aggregator collects the flows of a window from every configured source.
type Aggregator struct {
	readers        []FlowReader
	overduePenalty int
}

// NewAggregator creates an aggregator. overduePenalty is the number of
// probability points removed from flows that are past due.
func NewAggregator(overduePenalty int, readers ...FlowReader) *Aggregator {
	return &Aggregator{readers: readers, overduePenalty: overduePenalty}
}

// Aggregate returns the window's flows ordered by day. Realized flows before
// the window are dropped; unrealized ones are overdue and land on day 0.
func (a *Aggregator) Aggregate(ctx context.Context, w Window) ([]ScheduledFlow, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var out []ScheduledFlow
	for _, r := range a.readers {
		flows, err := r.ReadFlows(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("failed to read flows: %w", err)
		}
		for _, f := range flows {
			if err := f.Validate(); err != nil {
				return nil, fmt.Errorf("flow %s: %w", f.ID, err)
			}
			day := w.DayOf(f.EffectiveDate())
			if day > w.PeriodDays {
				continue
			}
			sf := ScheduledFlow{TreasuryFlow: f, Day: day}
			if day < 0 {
				if f.IsActual {
					continue
				}
				sf.Day = 0
				sf.Overdue = true
				sf.Probability = max(0, f.Probability-a.overduePenalty)
				sf.Tags = append(append([]string(nil), f.Tags...), overdueTag)
			}
			out = append(out, sf)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		ei, ej := out[i].EffectiveDate(), out[j].EffectiveDate()
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
