package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/Dan9191/gmah-treasury/internal/treasury"
	"github.com/shopspring/decimal"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func sampleForecast() *models.TreasuryForecast {
	amount := decimal.NewFromInt(-5000)
	threshold := decimal.Zero
	projected := day.AddDate(0, 0, 15)
	return &models.TreasuryForecast{
		ID:               "f-1",
		ForecastDate:     day,
		PeriodDays:       30,
		Scenario:         models.ScenarioRealistic,
		CurrentBalance:   decimal.NewFromInt(50000),
		ProjectedBalance: amount,
		MinBalance:       amount,
		MaxBalance:       decimal.NewFromInt(60000),
		TotalInflows:     decimal.NewFromInt(10000),
		TotalOutflows:    decimal.NewFromInt(65000),
		NetCashFlow:      decimal.NewFromInt(-55000),
		CalculatedAt:     day,
		DailyBalances:    []models.DailyBalance{{Day: 0, Date: day, Balance: decimal.NewFromInt(50000)}},
		Alerts: []models.ForecastAlert{{
			ID: "a-1", Type: models.AlertNegativeBalance, Severity: models.SeverityWarning,
			Title: "Projected negative balance", TriggeredAt: day, ProjectedDate: &projected,
			Amount: &amount, Threshold: &threshold, IsActive: true,
		}},
		Flows: []models.TreasuryFlow{{
			ID: "repayment-1", Type: models.FlowInflow, Category: models.CategoryLoanRepayment,
			Amount: decimal.NewFromInt(10000), ExpectedDate: day.AddDate(0, 0, 10),
			Probability: 100, Confidence: 100, Source: models.SourceRepayment,
		}},
	}
}

func TestSaveForecastCommitsEverything(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gmah.forecasts ").
		WithArgs("f-1", day, 30, models.ScenarioRealistic, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gmah.forecast_alerts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gmah.forecast_flows").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveForecast(context.Background(), sampleForecast()); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveForecastRollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)
	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gmah.forecasts ").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gmah.forecast_alerts").WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.SaveForecast(context.Background(), sampleForecast())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

var flowCols = []string{"id", "type", "category", "amount", "description", "expected_date", "actual_date", "is_actual",
	"probability", "confidence", "loan_id", "payment_id", "contribution_id", "source", "tags", "metadata"}

func TestListTreasuryFlowsScansRows(t *testing.T) {
	repo, mock := newMock(t)
	realized := day.AddDate(0, 0, 2)
	rows := sqlmock.NewRows(flowCols).
		AddRow("m-1", "OUTFLOW", "OPERATIONAL_EXPENSE", "1200.50", "Rent", day, nil, false, 100, 90, nil, nil, nil, "manual", "{office}", nil).
		AddRow("m-2", "INFLOW", "FEE_INCOME", "35", "Fees", day, realized, true, 100, 100, int64(7), nil, nil, "manual", nil,
			[]byte(`{"kind":"loan","loanId":7,"borrowerName":"Dana"}`))
	mock.ExpectQuery("FROM gmah.treasury_flows").WithArgs(day, day.AddDate(0, 0, 31)).WillReturnRows(rows)

	flows, err := repo.ListTreasuryFlows(context.Background(), day, day.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("ListTreasuryFlows: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("got %d flows", len(flows))
	}
	if flows[0].Amount.String() != "1200.5" || len(flows[0].Tags) != 1 || flows[0].Tags[0] != "office" {
		t.Errorf("flow 0 = %+v", flows[0])
	}
	f := flows[1]
	if !f.IsActual || f.ActualDate == nil || !f.ActualDate.Equal(realized) {
		t.Errorf("flow 1 actual date = %v", f.ActualDate)
	}
	if f.LoanID == nil || *f.LoanID != 7 {
		t.Errorf("flow 1 loan id = %v", f.LoanID)
	}
	if f.Metadata == nil || f.Metadata.Loan == nil || f.Metadata.Loan.BorrowerName != "Dana" {
		t.Errorf("flow 1 metadata = %+v", f.Metadata)
	}
}

func TestRealizeFlowTwiceIsRejected(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("UPDATE gmah.treasury_flows").WithArgs("m-2", day).WillReturnRows(sqlmock.NewRows(flowCols))
	mock.ExpectQuery("FROM gmah.treasury_flows WHERE id").WithArgs("m-2").WillReturnRows(
		sqlmock.NewRows(flowCols).AddRow("m-2", "INFLOW", "FEE_INCOME", "35", "Fees", day, day, true, 100, 100, nil, nil, nil, "manual", nil, nil))

	if _, err := repo.RealizeFlow(context.Background(), "m-2", day); !errors.Is(err, ErrFlowRealized) {
		t.Fatalf("err = %v, want ErrFlowRealized", err)
	}
}

func TestRealizeUnknownFlow(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("UPDATE gmah.treasury_flows").WillReturnRows(sqlmock.NewRows(flowCols))
	mock.ExpectQuery("FROM gmah.treasury_flows WHERE id").WillReturnRows(sqlmock.NewRows(flowCols))

	if _, err := repo.RealizeFlow(context.Background(), "nope", day); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestForecastSummary(t *testing.T) {
	repo, mock := newMock(t)
	next := day.AddDate(0, 0, 9)
	mock.ExpectQuery("FROM gmah.forecasts").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg", "max"}).AddRow(4, 42.5, day))
	mock.ExpectQuery("FROM gmah.forecast_alerts").WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"active", "critical", "next"}).AddRow(6, 2, next))

	s, err := repo.ForecastSummary(context.Background(), day)
	if err != nil {
		t.Fatalf("ForecastSummary: %v", err)
	}
	if s.TotalForecasts != 4 || s.ActiveAlerts != 6 || s.CriticalAlerts != 2 || s.AverageLiquidityRisk != 42.5 {
		t.Errorf("summary = %+v", s)
	}
	if s.LastForecastDate == nil || !s.NextCriticalDate.Equal(next) {
		t.Errorf("dates = %v / %v", s.LastForecastDate, s.NextCriticalDate)
	}
}

func TestAcknowledgeMissingAlert(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("UPDATE gmah.forecast_alerts SET is_acknowledged").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := repo.AcknowledgeAlert(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFlowReadersFeedAggregator(t *testing.T) {
	repo, mock := newMock(t)
	w := treasury.NewWindow(day, 30, decimal.NewFromInt(1000))
	end := w.End()

	mock.ExpectQuery("FROM gmah.treasury_flows").WillReturnRows(sqlmock.NewRows(flowCols))
	mock.ExpectQuery("FROM gmah.loan_payment_schedules").WithArgs(end).WillReturnRows(
		sqlmock.NewRows([]string{"id", "loan_id", "installment_no", "borrower_name", "payment_date", "amount", "paid", "guarantors"}).
			AddRow(11, 3, 2, "Dana", day.AddDate(0, 0, -5), "400", false, 2))
	mock.ExpectQuery("FROM gmah.loans").WithArgs(end).WillReturnRows(
		sqlmock.NewRows([]string{"id", "borrower_name", "amount", "disbursement_date", "status"}).
			AddRow(4, "Avi", "9000", day.AddDate(0, 0, 3), "APPROVED"))
	mock.ExpectQuery("FROM gmah.contribution_pledges").WithArgs(end).WillReturnRows(
		sqlmock.NewRows([]string{"id", "member_id", "amount", "due_date", "campaign", "recurring"}).
			AddRow(8, 21, "250", day.AddDate(0, 0, 12), "Pesach", true))
	mock.ExpectQuery("FROM gmah.withdrawal_requests").WithArgs(end).WillReturnRows(
		sqlmock.NewRows([]string{"id", "depositor_id", "amount", "requested_date", "reason"}).
			AddRow(5, 30, "1200", day.AddDate(0, 0, 20), "wedding"))

	flows, err := treasury.NewAggregator(20, repo.FlowReaders()...).Aggregate(context.Background(), w)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := []struct {
		id   string
		day  int
		prob int
	}{
		{"repayment-11", 0, 75},
		{"disbursement-4", 3, 100},
		{"pledge-8", 12, 85},
		{"withdrawal-5", 20, 95},
	}
	if len(flows) != len(want) {
		t.Fatalf("got %d flows: %+v", len(flows), flows)
	}
	for i, wf := range want {
		if flows[i].ID != wf.id || flows[i].Day != wf.day || flows[i].Probability != wf.prob {
			t.Errorf("flow %d = %s day %d prob %d, want %+v", i, flows[i].ID, flows[i].Day, flows[i].Probability, wf)
		}
	}
	if !flows[0].Overdue {
		t.Error("past-due installment should be overdue")
	}
}

func TestRepaymentProbabilityCapped(t *testing.T) {
	f := RepaymentFlow(models.PaymentSchedule{ID: 1, LoanID: 2, GuarantorCount: 9, Amount: decimal.NewFromInt(10), PaymentDate: day})
	if f.Probability != 100 {
		t.Fatalf("probability = %d, want 100", f.Probability)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
