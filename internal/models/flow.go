package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowType is the direction of a cash movement
type FlowType string

const (
	FlowInflow  FlowType = "INFLOW"
	FlowOutflow FlowType = "OUTFLOW"
)

// FlowCategory classifies a cash movement
type FlowCategory string

const (
	CategoryLoanDisbursement   FlowCategory = "LOAN_DISBURSEMENT"
	CategoryLoanRepayment      FlowCategory = "LOAN_REPAYMENT"
	CategoryContribution       FlowCategory = "CONTRIBUTION"
	CategoryDepositWithdrawal  FlowCategory = "DEPOSIT_WITHDRAWAL"
	CategoryOperationalExpense FlowCategory = "OPERATIONAL_EXPENSE"
	CategoryInterestEarned     FlowCategory = "INTEREST_EARNED"
	CategoryFeeIncome          FlowCategory = "FEE_INCOME"
	CategoryOther              FlowCategory = "OTHER"
)

// Flow sources
const (
	SourceManual       = "manual"
	SourceRepayment    = "repayment_schedule"
	SourceDisbursement = "loan_disbursement"
	SourcePledge       = "contribution_pledge"
	SourceWithdrawal   = "withdrawal_request"
	SourceReserveYield = "reserve_yield"
)

// TreasuryFlow is a single expected or actual cash movement
type TreasuryFlow struct {
	ID             string          `json:"id"`
	Type           FlowType        `json:"type"`
	Category       FlowCategory    `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	ExpectedDate   time.Time       `json:"expectedDate"`
	ActualDate     *time.Time      `json:"actualDate,omitempty"`
	IsActual       bool            `json:"isActual"`
	Probability    int             `json:"probability"`
	Confidence     int             `json:"confidence"`
	LoanID         *int64          `json:"loanId,omitempty"`
	PaymentID      *int64          `json:"paymentId,omitempty"`
	ContributionID *int64          `json:"contributionId,omitempty"`
	Source         string          `json:"source"`
	Tags           []string        `json:"tags,omitempty"`
	Metadata       *Metadata       `json:"metadata,omitempty"`
}

// EffectiveDate is the actual date of a realized flow, otherwise its expected date.
func (f TreasuryFlow) EffectiveDate() time.Time {
	if f.IsActual && f.ActualDate != nil {
		return *f.ActualDate
	}
	return f.ExpectedDate
}

// Validate checks the flow invariants
func (f TreasuryFlow) Validate() error {
	switch f.Type {
	case FlowInflow, FlowOutflow:
	default:
		return &ValidationError{Field: "type", Reason: "must be INFLOW or OUTFLOW"}
	}
	if !f.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(f.Category)}
	}
	if f.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if err := ValidateMoney("amount", f.Amount); err != nil {
		return err
	}
	if f.ExpectedDate.IsZero() {
		return &ValidationError{Field: "expectedDate", Reason: "is required"}
	}
	if f.IsActual && f.ActualDate == nil {
		return &ValidationError{Field: "actualDate", Reason: "is required for an actual flow"}
	}
	if f.Probability < 0 || f.Probability > 100 {
		return &ValidationError{Field: "probability", Reason: "must be between 0 and 100"}
	}
	if f.Confidence < 0 || f.Confidence > 100 {
		return &ValidationError{Field: "confidence", Reason: "must be between 0 and 100"}
	}
	return nil
}

// Valid reports whether c is a known category
func (c FlowCategory) Valid() bool {
	switch c {
	case CategoryLoanDisbursement, CategoryLoanRepayment, CategoryContribution,
		CategoryDepositWithdrawal, CategoryOperationalExpense, CategoryInterestEarned,
		CategoryFeeIncome, CategoryOther:
		return true
	}
	return false
}

// CreateFlowRequest is the body of a manual flow registration
type CreateFlowRequest struct {
	Type         FlowType        `json:"type"`
	Category     FlowCategory    `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	ExpectedDate time.Time       `json:"expectedDate"`
	Probability  *int            `json:"probability,omitempty"`
	Confidence   *int            `json:"confidence,omitempty"`
	LoanID       *int64          `json:"loanId,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Metadata     *Metadata       `json:"metadata,omitempty"`
}

// RealizeFlowRequest marks a flow as actual
type RealizeFlowRequest struct {
	ActualDate time.Time `json:"actualDate"`
}
