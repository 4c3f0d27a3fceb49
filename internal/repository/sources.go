package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/Dan9191/gmah-treasury/internal/treasury"
)

// Probability and confidence assigned to flows derived from loan and member records.
const (
	repaymentProbability    = 85
	repaymentPerGuarantor   = 5
	repaymentConfidence     = 80
	disbursementProbability = 100
	disbursementConfidence  = 90
	pledgeProbability       = 70
	recurringPledgeBonus    = 15
	pledgeConfidence        = 60
	withdrawalProbability   = 95
	withdrawalConfidence    = 90
)

// FlowReaders returns every flow source backed by this repository, in the
// order the aggregator should consult them.
func (r *Repository) FlowReaders() []treasury.FlowReader {
	return []treasury.FlowReader{
		treasury.FlowReaderFunc(func(ctx context.Context, w treasury.Window) ([]models.TreasuryFlow, error) {
			return r.ListTreasuryFlows(ctx, w.Start, w.End())
		}),
		treasury.FlowReaderFunc(func(ctx context.Context, w treasury.Window) ([]models.TreasuryFlow, error) {
			schedules, err := r.ListUnpaidSchedules(ctx, w.End())
			if err != nil {
				return nil, err
			}
			flows := make([]models.TreasuryFlow, len(schedules))
			for i, s := range schedules {
				flows[i] = RepaymentFlow(s)
			}
			return flows, nil
		}),
		treasury.FlowReaderFunc(func(ctx context.Context, w treasury.Window) ([]models.TreasuryFlow, error) {
			loans, err := r.ListPendingDisbursements(ctx, w.End())
			if err != nil {
				return nil, err
			}
			flows := make([]models.TreasuryFlow, len(loans))
			for i, l := range loans {
				flows[i] = DisbursementFlow(l)
			}
			return flows, nil
		}),
		treasury.FlowReaderFunc(func(ctx context.Context, w treasury.Window) ([]models.TreasuryFlow, error) {
			pledges, err := r.ListOpenPledges(ctx, w.End())
			if err != nil {
				return nil, err
			}
			flows := make([]models.TreasuryFlow, len(pledges))
			for i, p := range pledges {
				flows[i] = PledgeFlow(p)
			}
			return flows, nil
		}),
		treasury.FlowReaderFunc(func(ctx context.Context, w treasury.Window) ([]models.TreasuryFlow, error) {
			requests, err := r.ListPendingWithdrawals(ctx, w.End())
			if err != nil {
				return nil, err
			}
			flows := make([]models.TreasuryFlow, len(requests))
			for i, req := range requests {
				flows[i] = WithdrawalFlow(req)
			}
			return flows, nil
		}),
	}
}

// ListUnpaidSchedules returns unpaid installments due on or before until
func (r *Repository) ListUnpaidSchedules(ctx context.Context, until time.Time) ([]models.PaymentSchedule, error) {
	query := `
		SELECT s.id, s.loan_id, s.installment_no, l.borrower_name, s.payment_date, s.amount, s.paid,
		       (SELECT COUNT(*) FROM gmah.loan_guarantors g WHERE g.loan_id = s.loan_id)
		FROM gmah.loan_payment_schedules s
		JOIN gmah.loans l ON l.id = s.loan_id
		WHERE NOT s.paid AND s.payment_date <= $1
		ORDER BY s.payment_date, s.id`
	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment schedules: %w", err)
	}
	defer rows.Close()

	var out []models.PaymentSchedule
	for rows.Next() {
		var s models.PaymentSchedule
		if err := rows.Scan(&s.ID, &s.LoanID, &s.InstallmentNo, &s.BorrowerName, &s.PaymentDate, &s.Amount, &s.Paid, &s.GuarantorCount); err != nil {
			return nil, fmt.Errorf("failed to scan payment schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListPendingDisbursements returns approved loans not yet paid out
func (r *Repository) ListPendingDisbursements(ctx context.Context, until time.Time) ([]models.Loan, error) {
	query := `
		SELECT id, borrower_name, amount, disbursement_date, status
		FROM gmah.loans
		WHERE status = 'APPROVED' AND disbursement_date <= $1
		ORDER BY disbursement_date, id`
	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending disbursements: %w", err)
	}
	defer rows.Close()

	var out []models.Loan
	for rows.Next() {
		var l models.Loan
		if err := rows.Scan(&l.ID, &l.BorrowerName, &l.Amount, &l.DisbursementDate, &l.Status); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListOpenPledges returns contribution pledges not yet fulfilled
func (r *Repository) ListOpenPledges(ctx context.Context, until time.Time) ([]models.ContributionPledge, error) {
	query := `
		SELECT id, member_id, amount, due_date, campaign, recurring
		FROM gmah.contribution_pledges
		WHERE NOT fulfilled AND due_date <= $1
		ORDER BY due_date, id`
	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list pledges: %w", err)
	}
	defer rows.Close()

	var out []models.ContributionPledge
	for rows.Next() {
		var p models.ContributionPledge
		if err := rows.Scan(&p.ID, &p.MemberID, &p.Amount, &p.DueDate, &p.Campaign, &p.Recurring); err != nil {
			return nil, fmt.Errorf("failed to scan pledge: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPendingWithdrawals returns deposit withdrawal requests awaiting payout
func (r *Repository) ListPendingWithdrawals(ctx context.Context, until time.Time) ([]models.WithdrawalRequest, error) {
	query := `
		SELECT id, depositor_id, amount, requested_date, reason
		FROM gmah.withdrawal_requests
		WHERE status = 'PENDING' AND requested_date <= $1
		ORDER BY requested_date, id`
	rows, err := r.db.QueryContext(ctx, query, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := rows.Scan(&w.ID, &w.DepositorID, &w.Amount, &w.RequestedDate, &w.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RepaymentFlow converts an unpaid installment into an expected inflow.
// Each guarantor makes repayment more likely.
func RepaymentFlow(s models.PaymentSchedule) models.TreasuryFlow {
	loanID, paymentID := s.LoanID, s.ID
	return models.TreasuryFlow{
		ID:           fmt.Sprintf("repayment-%d", s.ID),
		Type:         models.FlowInflow,
		Category:     models.CategoryLoanRepayment,
		Amount:       s.Amount,
		Description:  fmt.Sprintf("Installment %d of loan %d", s.InstallmentNo, s.LoanID),
		ExpectedDate: s.PaymentDate,
		Probability:  min(100, repaymentProbability+repaymentPerGuarantor*s.GuarantorCount),
		Confidence:   repaymentConfidence,
		LoanID:       &loanID,
		PaymentID:    &paymentID,
		Source:       models.SourceRepayment,
		Metadata: &models.Metadata{Kind: models.MetadataLoan, Loan: &models.LoanMetadata{
			LoanID: s.LoanID, BorrowerName: s.BorrowerName, InstallmentNo: s.InstallmentNo,
		}},
	}
}

// DisbursementFlow converts an approved loan into an expected outflow
func DisbursementFlow(l models.Loan) models.TreasuryFlow {
	loanID := l.ID
	return models.TreasuryFlow{
		ID:           fmt.Sprintf("disbursement-%d", l.ID),
		Type:         models.FlowOutflow,
		Category:     models.CategoryLoanDisbursement,
		Amount:       l.Amount,
		Description:  fmt.Sprintf("Disbursement of loan %d", l.ID),
		ExpectedDate: l.DisbursementDate,
		Probability:  disbursementProbability,
		Confidence:   disbursementConfidence,
		LoanID:       &loanID,
		Source:       models.SourceDisbursement,
		Metadata: &models.Metadata{Kind: models.MetadataLoan, Loan: &models.LoanMetadata{
			LoanID: l.ID, BorrowerName: l.BorrowerName,
		}},
	}
}

// PledgeFlow converts an open pledge into an expected inflow. Recurring
// contributors are more reliable than one-off pledges.
func PledgeFlow(p models.ContributionPledge) models.TreasuryFlow {
	contribID := p.ID
	prob := pledgeProbability
	if p.Recurring {
		prob += recurringPledgeBonus
	}
	return models.TreasuryFlow{
		ID:             fmt.Sprintf("pledge-%d", p.ID),
		Type:           models.FlowInflow,
		Category:       models.CategoryContribution,
		Amount:         p.Amount,
		Description:    fmt.Sprintf("Pledge of member %d", p.MemberID),
		ExpectedDate:   p.DueDate,
		Probability:    prob,
		Confidence:     pledgeConfidence,
		ContributionID: &contribID,
		Source:         models.SourcePledge,
		Metadata: &models.Metadata{Kind: models.MetadataContribution, Contribution: &models.ContributionMetadata{
			MemberID: p.MemberID, Campaign: p.Campaign,
		}},
	}
}

// WithdrawalFlow converts a pending withdrawal request into an expected outflow
func WithdrawalFlow(w models.WithdrawalRequest) models.TreasuryFlow {
	return models.TreasuryFlow{
		ID:           fmt.Sprintf("withdrawal-%d", w.ID),
		Type:         models.FlowOutflow,
		Category:     models.CategoryDepositWithdrawal,
		Amount:       w.Amount,
		Description:  fmt.Sprintf("Deposit withdrawal for depositor %d", w.DepositorID),
		ExpectedDate: w.RequestedDate,
		Probability:  withdrawalProbability,
		Confidence:   withdrawalConfidence,
		Source:       models.SourceWithdrawal,
		Metadata: &models.Metadata{Kind: models.MetadataWithdrawal, Withdrawal: &models.WithdrawalMetadata{
			DepositorID: w.DepositorID, RequestID: w.ID, Reason: w.Reason,
		}},
	}
}
