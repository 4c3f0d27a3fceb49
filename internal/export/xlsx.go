// Package export renders stored forecasts for download.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/xuri/excelize/v2"
)

// ContentType of the workbook written by WriteForecast
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetSummary = "Summary"
	SheetDaily   = "Daily"
	SheetAlerts  = "Alerts"
	SheetFlows   = "Flows"
)

const dateLayout = "02.01.2006"

// FileName is the attachment name of a forecast workbook
func FileName(f *models.TreasuryForecast) string {
	return fmt.Sprintf("forecast_%s_%s_%d.xlsx", f.ForecastDate.Format("20060102"), f.Scenario, f.PeriodDays)
}

// WriteForecast writes f as an XLSX workbook with one sheet per section.
func WriteForecast(w io.Writer, f *models.TreasuryForecast) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for _, name := range []string{SheetDaily, SheetAlerts, SheetFlows} {
		if _, err := x.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Forecast", f.ID},
		{"Forecast date", f.ForecastDate.Format(dateLayout)},
		{"Period, days", f.PeriodDays},
		{"Scenario", string(f.Scenario)},
		{"Current balance", f.CurrentBalance.InexactFloat64()},
		{"Projected balance", f.ProjectedBalance.InexactFloat64()},
		{"Min balance", f.MinBalance.InexactFloat64()},
		{"Max balance", f.MaxBalance.InexactFloat64()},
		{"Total inflows", f.TotalInflows.InexactFloat64()},
		{"Total outflows", f.TotalOutflows.InexactFloat64()},
		{"Net cash flow", f.NetCashFlow.InexactFloat64()},
		{"Liquidity risk", f.LiquidityRisk},
		{"Volatility index", f.VolatilityIndex},
		{"Confidence level", f.ConfidenceLevel},
		{"Data points", f.DataPoints},
		{"Calculated at", f.CalculatedAt.Format(time.RFC3339)},
		{"Fingerprint", f.Fingerprint},
	}
	if err := writeRows(x, SheetSummary, summary); err != nil {
		return err
	}

	daily := [][]any{{"Day", "Date", "Balance"}}
	for _, d := range f.DailyBalances {
		daily = append(daily, []any{d.Day, d.Date.Format(dateLayout), d.Balance.InexactFloat64()})
	}
	if err := writeRows(x, SheetDaily, daily); err != nil {
		return err
	}

	alerts := [][]any{{"Type", "Severity", "Title", "Date", "Amount", "Threshold", "Active", "Acknowledged", "Message"}}
	for _, a := range f.Alerts {
		row := []any{string(a.Type), string(a.Severity), a.Title, "", "", "", yesNo(a.IsActive), yesNo(a.IsAcknowledged), a.Message}
		if a.ProjectedDate != nil {
			row[3] = a.ProjectedDate.Format(dateLayout)
		}
		if a.Amount != nil {
			row[4] = a.Amount.InexactFloat64()
		}
		if a.Threshold != nil {
			row[5] = a.Threshold.InexactFloat64()
		}
		alerts = append(alerts, row)
	}
	if err := writeRows(x, SheetAlerts, alerts); err != nil {
		return err
	}

	flows := [][]any{{"ID", "Type", "Category", "Amount", "Expected date", "Actual", "Probability", "Confidence", "Source", "Description"}}
	for _, fl := range f.Flows {
		flows = append(flows, []any{
			fl.ID, string(fl.Type), string(fl.Category), fl.Amount.InexactFloat64(),
			fl.ExpectedDate.Format(dateLayout), yesNo(fl.IsActual), fl.Probability, fl.Confidence, fl.Source, fl.Description,
		})
	}
	if err := writeRows(x, SheetFlows, flows); err != nil {
		return err
	}

	x.SetActiveSheet(0)
	if err := x.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(x *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to fill %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
