package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/Dan9191/gmah-treasury/internal/treasury"
	"github.com/Dan9191/gmah-treasury/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultQueryDays = 30

// CreateForecast validates the request, projects the treasury balance and
// stores the result. Nothing is stored when any step fails.
func (s *Service) CreateForecast(ctx context.Context, req models.CreateForecastRequest) (*models.TreasuryForecast, error) {
	forecastDate, err := parseDate("forecastDate", req.ForecastDate)
	if err != nil {
		return nil, err
	}
	if req.PeriodDays < models.MinPeriodDays || req.PeriodDays > models.MaxPeriodDays {
		return nil, &models.ValidationError{Field: "periodDays", Reason: "must be between 1 and 365"}
	}
	scenario, err := models.ParseScenario(req.Scenario)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CurrentBalance) == "" {
		return nil, &models.ValidationError{Field: "currentBalance", Reason: "is required"}
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(req.CurrentBalance))
	if err != nil {
		return nil, &models.ValidationError{Field: "currentBalance", Reason: "must be a decimal number"}
	}
	if err := models.ValidateMoney("currentBalance", balance); err != nil {
		return nil, err
	}

	started := time.Now()
	w := treasury.NewWindow(forecastDate, req.PeriodDays, balance)

	flows, err := s.agg.Aggregate(ctx, w)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() && len(flows) == 0 {
		return nil, &models.ValidationError{Field: "currentBalance", Reason: "is negative and no flows can restore it"}
	}

	projection, err := treasury.Project(w, flows, scenario)
	if err != nil {
		return nil, err
	}
	metrics, alerts, err := s.evaluator.Evaluate(projection, flows)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate forecast: %w", err)
	}
	elapsed := time.Since(started)

	f := s.assemble(w, scenario, projection, metrics, alerts, flows, req.Metadata)
	f.CalculationTime = elapsed.Milliseconds()
	for _, d := range []decimal.Decimal{f.ProjectedBalance, f.MinBalance, f.MaxBalance, f.TotalInflows, f.TotalOutflows, f.NetCashFlow} {
		if models.ValidateMoney("currentBalance", d) != nil {
			return nil, &models.ValidationError{Field: "currentBalance", Reason: "projected figures exceed the storable range"}
		}
	}

	if err := s.repo.SaveForecast(ctx, f); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"forecast_id":    f.ID,
		"scenario":       f.Scenario,
		"period_days":    f.PeriodDays,
		"data_points":    f.DataPoints,
		"alerts":         len(f.Alerts),
		"calculation_ms": f.CalculationTime,
	}).Info("Forecast created")

	s.notify(ctx, f)
	return f, nil
}

func (s *Service) assemble(w treasury.Window, sc models.Scenario, p *treasury.Projection, m treasury.Metrics,
	alerts []models.ForecastAlert, flows []treasury.ScheduledFlow, meta *models.Metadata) *models.TreasuryForecast {
	r := p.Round(s.config.CurrencyScale)
	now := s.now()

	f := &models.TreasuryForecast{
		ID:               s.newID(),
		ForecastDate:     w.Start,
		PeriodDays:       w.PeriodDays,
		Scenario:         sc,
		CurrentBalance:   w.OpeningBalance,
		ProjectedBalance: r.ProjectedBalance,
		MinBalance:       r.MinBalance,
		MaxBalance:       r.MaxBalance,
		TotalInflows:     r.TotalInflows,
		TotalOutflows:    r.TotalOutflows,
		NetCashFlow:      r.NetCashFlow,
		LiquidityRisk:    m.LiquidityRisk,
		VolatilityIndex:  m.VolatilityIndex,
		ConfidenceLevel:  m.ConfidenceLevel,
		CalculatedAt:     now,
		DataPoints:       len(flows),
		Metadata:         meta,
		DailyBalances:    r.Daily,
		Alerts:           make([]models.ForecastAlert, len(alerts)),
		Flows:            make([]models.TreasuryFlow, len(flows)),
	}
	for i, a := range alerts {
		a.ID = s.newID()
		a.ForecastID = f.ID
		a.TriggeredAt = now
		f.Alerts[i] = a
	}
	for i, sf := range flows {
		snap := sf.TreasuryFlow
		snap.Tags = slices.Clone(snap.Tags)
		f.Flows[i] = snap
	}
	f.Fingerprint = utils.ForecastFingerprint(f, s.config.HMACSecret)
	return f
}

func (s *Service) notify(ctx context.Context, f *models.TreasuryForecast) {
	if s.notifier == nil {
		return
	}
	var escalated []models.ForecastAlert
	for _, a := range f.Alerts {
		if a.Severity.Escalated() {
			escalated = append(escalated, a)
		}
	}
	if len(escalated) == 0 {
		return
	}
	if err := s.notifier.NotifyAlerts(ctx, f, escalated); err != nil {
		s.log.WithError(err).WithField("forecast_id", f.ID).Warn("Failed to notify about critical alerts")
	}
}

// GetForecast returns a stored forecast
func (s *Service) GetForecast(ctx context.Context, id string, includeInactiveAlerts bool) (*models.TreasuryForecast, error) {
	f, err := s.repo.GetForecast(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return s.checked(f, includeInactiveAlerts), nil
}

// checked verifies the fingerprint of a loaded forecast, which covers every
// alert, and only then drops inactive alerts when they were not asked for.
func (s *Service) checked(f *models.TreasuryForecast, includeInactiveAlerts bool) *models.TreasuryForecast {
	valid := utils.VerifyFingerprint(f, s.config.HMACSecret, f.Fingerprint)
	f.FingerprintValid = &valid
	if !valid {
		s.log.WithField("forecast_id", f.ID).Warn("Stored forecast does not match its fingerprint")
	}
	if !includeInactiveAlerts {
		f.Alerts = slices.DeleteFunc(f.Alerts, func(a models.ForecastAlert) bool { return !a.IsActive })
	}
	return f
}

// LatestForecast returns the newest stored forecast matching the query
func (s *Service) LatestForecast(ctx context.Context, q models.ForecastQuery) (*models.TreasuryForecast, error) {
	if q.Days == nil {
		days := defaultQueryDays
		q.Days = &days
	}
	if *q.Days < models.MinPeriodDays || *q.Days > models.MaxPeriodDays {
		return nil, &models.ValidationError{Field: "days", Reason: "must be between 1 and 365"}
	}
	if q.Scenario == "" {
		q.Scenario = models.ScenarioRealistic
	}
	includeInactive := q.IncludeInactiveAlerts
	q.IncludeInactiveAlerts = true
	f, err := s.repo.LatestForecast(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.checked(f, includeInactive), nil
}

// Summary aggregates stored forecasts and alerts
func (s *Service) Summary(ctx context.Context) (*models.ForecastSummary, error) {
	return s.repo.ForecastSummary(ctx, treasury.Day(s.now()))
}

// AcknowledgeAlert marks an alert as seen
func (s *Service) AcknowledgeAlert(ctx context.Context, id string) (*models.ForecastAlert, error) {
	a, err := s.repo.AcknowledgeAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithField("alert_id", id).Info("Alert acknowledged")
	return a, nil
}

// DeactivateAlert retires an alert
func (s *Service) DeactivateAlert(ctx context.Context, id string) (*models.ForecastAlert, error) {
	a, err := s.repo.DeactivateAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithField("alert_id", id).Info("Alert deactivated")
	return a, nil
}

// RunScheduled creates one forecast per scenario from today's treasury
// balance. A failing scenario does not stop the others.
func (s *Service) RunScheduled(ctx context.Context, periodDays int) error {
	balance, err := s.repo.TreasuryBalance(ctx)
	if err != nil {
		return err
	}
	today := treasury.Day(s.now()).Format(time.DateOnly)

	var errs []error
	for _, sc := range models.Scenarios {
		_, err := s.CreateForecast(ctx, models.CreateForecastRequest{
			ForecastDate:   today,
			PeriodDays:     periodDays,
			Scenario:       string(sc),
			CurrentBalance: balance.String(),
			Metadata: &models.Metadata{
				Kind:    models.MetadataForecastRequest,
				Request: &models.ForecastRequestMetadata{RequestedBy: "scheduler", Trigger: "cron"},
			},
		})
		if err != nil {
			s.log.WithError(err).WithField("scenario", sc).Error("Scheduled forecast failed")
			errs = append(errs, fmt.Errorf("%s: %w", sc, err))
		}
	}
	return errors.Join(errs...)
}

// parseDate accepts an ISO-8601 date or date-time, with or without an
// offset. The result is the calendar day as written, at midnight UTC.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &models.ValidationError{Field: field, Reason: "is required"}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, &models.ValidationError{Field: field, Reason: "must be an ISO-8601 date"}
}
