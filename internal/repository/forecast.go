package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const forecastColumns = `id, forecast_date, period_days, scenario, current_balance, projected_balance,
		min_balance, max_balance, total_inflows, total_outflows, net_cash_flow, liquidity_risk,
		volatility_index, confidence_level, calculated_at, calculation_time_ms, data_points, fingerprint, metadata, daily_balances`

const alertColumns = `id, forecast_id, type, severity, title, message, triggered_at, projected_date,
		amount, threshold, is_active, is_acknowledged, recommendations`

// SaveForecast stores a forecast with its alerts and flow snapshots in one
// transaction. Readers see all of it or none of it.
func (r *Repository) SaveForecast(ctx context.Context, f *models.TreasuryForecast) (err error) {
	daily, err := json.Marshal(f.DailyBalances)
	if err != nil {
		return fmt.Errorf("failed to encode daily balances: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO gmah.forecasts (`+forecastColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		f.ID, f.ForecastDate, f.PeriodDays, f.Scenario, f.CurrentBalance, f.ProjectedBalance,
		f.MinBalance, f.MaxBalance, f.TotalInflows, f.TotalOutflows, f.NetCashFlow, f.LiquidityRisk,
		f.VolatilityIndex, f.ConfidenceLevel, f.CalculatedAt, f.CalculationTime, f.DataPoints, f.Fingerprint, f.Metadata, daily)
	if err != nil {
		return fmt.Errorf("failed to insert forecast: %w", err)
	}

	for _, a := range f.Alerts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gmah.forecast_alerts (`+alertColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			a.ID, f.ID, a.Type, a.Severity, a.Title, a.Message, a.TriggeredAt, a.ProjectedDate,
			nullDecimal(a.Amount), nullDecimal(a.Threshold), a.IsActive, a.IsAcknowledged, pq.Array(a.Recommendations))
		if err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	for i := range f.Flows {
		args := append([]any{f.ID, i}, flowArgs(&f.Flows[i])...)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gmah.forecast_flows (forecast_id, position, flow_id, type, category, amount, description,
				expected_date, actual_date, is_actual, probability, confidence, loan_id, payment_id,
				contribution_id, source, tags, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert flow snapshot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit forecast: %w", err)
	}
	return nil
}

// GetForecast retrieves a stored forecast with its alerts and flows
func (r *Repository) GetForecast(ctx context.Context, id string, includeInactiveAlerts bool) (*models.TreasuryForecast, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+forecastColumns+` FROM gmah.forecasts WHERE id = $1`, id)
	return r.loadForecast(ctx, row, includeInactiveAlerts)
}

// LatestForecast retrieves the most recent forecast matching the query
func (r *Repository) LatestForecast(ctx context.Context, q models.ForecastQuery) (*models.TreasuryForecast, error) {
	if q.Days == nil {
		return nil, fmt.Errorf("forecast query without a period")
	}
	var since any
	if q.StartDate != nil {
		since = *q.StartDate
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+forecastColumns+`
		FROM gmah.forecasts
		WHERE period_days = $1 AND scenario = $2 AND ($3::timestamptz IS NULL OR forecast_date >= $3)
		ORDER BY forecast_date DESC, calculated_at DESC
		LIMIT 1`, *q.Days, q.Scenario, since)
	return r.loadForecast(ctx, row, q.IncludeInactiveAlerts)
}

func (r *Repository) loadForecast(ctx context.Context, row *sql.Row, includeInactiveAlerts bool) (*models.TreasuryForecast, error) {
	f := &models.TreasuryForecast{}
	var metadataRaw, dailyRaw []byte
	err := row.Scan(&f.ID, &f.ForecastDate, &f.PeriodDays, &f.Scenario, &f.CurrentBalance, &f.ProjectedBalance,
		&f.MinBalance, &f.MaxBalance, &f.TotalInflows, &f.TotalOutflows, &f.NetCashFlow, &f.LiquidityRisk,
		&f.VolatilityIndex, &f.ConfidenceLevel, &f.CalculatedAt, &f.CalculationTime, &f.DataPoints, &f.Fingerprint, &metadataRaw, &dailyRaw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find forecast: %w", err)
	}
	if f.Metadata, err = scanMetadata(metadataRaw); err != nil {
		return nil, fmt.Errorf("failed to decode forecast metadata: %w", err)
	}
	if err := json.Unmarshal(dailyRaw, &f.DailyBalances); err != nil {
		return nil, fmt.Errorf("failed to decode daily balances: %w", err)
	}

	if f.Alerts, err = r.listAlerts(ctx, f.ID, includeInactiveAlerts); err != nil {
		return nil, err
	}
	if f.Flows, err = r.listFlowSnapshots(ctx, f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Repository) listAlerts(ctx context.Context, forecastID string, includeInactive bool) ([]models.ForecastAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM gmah.forecast_alerts
		WHERE forecast_id = $1 AND (is_active OR $2)
		ORDER BY triggered_at, projected_date, id`, forecastID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.ForecastAlert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (r *Repository) listFlowSnapshots(ctx context.Context, forecastID string) ([]models.TreasuryFlow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT flow_id, type, category, amount, description, expected_date, actual_date, is_actual,
			probability, confidence, loan_id, payment_id, contribution_id, source, tags, metadata
		FROM gmah.forecast_flows
		WHERE forecast_id = $1
		ORDER BY position`, forecastID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow snapshots: %w", err)
	}
	defer rows.Close()

	flows := []models.TreasuryFlow{}
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow snapshot: %w", err)
		}
		flows = append(flows, *f)
	}
	return flows, rows.Err()
}

func scanAlert(s scanner) (*models.ForecastAlert, error) {
	a := &models.ForecastAlert{}
	var (
		projected         sql.NullTime
		amount, threshold decimal.NullDecimal
	)
	err := s.Scan(&a.ID, &a.ForecastID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.TriggeredAt, &projected,
		&amount, &threshold, &a.IsActive, &a.IsAcknowledged, pq.Array(&a.Recommendations))
	if err != nil {
		return nil, err
	}
	if projected.Valid {
		a.ProjectedDate = &projected.Time
	}
	if amount.Valid {
		a.Amount = &amount.Decimal
	}
	if threshold.Valid {
		a.Threshold = &threshold.Decimal
	}
	return a, nil
}

// ForecastSummary aggregates stored forecasts and alerts. The next critical
// date is the earliest projected date of an active critical alert on or after now.
func (r *Repository) ForecastSummary(ctx context.Context, now time.Time) (*models.ForecastSummary, error) {
	s := &models.ForecastSummary{}
	var last, next sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(liquidity_risk), 0), MAX(forecast_date)
		FROM gmah.forecasts`).Scan(&s.TotalForecasts, &s.AverageLiquidityRisk, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize forecasts: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE is_active AND severity IN ('CRITICAL', 'URGENT')),
		       MIN(projected_date) FILTER (WHERE is_active AND severity IN ('CRITICAL', 'URGENT') AND projected_date >= $1)
		FROM gmah.forecast_alerts`, now).Scan(&s.ActiveAlerts, &s.CriticalAlerts, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize alerts: %w", err)
	}

	if last.Valid {
		s.LastForecastDate = &last.Time
	}
	if next.Valid {
		s.NextCriticalDate = &next.Time
	}
	return s, nil
}

// AcknowledgeAlert marks an alert as seen by a treasurer
func (r *Repository) AcknowledgeAlert(ctx context.Context, id string) (*models.ForecastAlert, error) {
	return r.updateAlert(ctx, `UPDATE gmah.forecast_alerts SET is_acknowledged = TRUE WHERE id = $1 RETURNING `+alertColumns, id)
}

// DeactivateAlert retires an alert
func (r *Repository) DeactivateAlert(ctx context.Context, id string) (*models.ForecastAlert, error) {
	return r.updateAlert(ctx, `UPDATE gmah.forecast_alerts SET is_active = FALSE WHERE id = $1 RETURNING `+alertColumns, id)
}

func (r *Repository) updateAlert(ctx context.Context, query, id string) (*models.ForecastAlert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return a, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
