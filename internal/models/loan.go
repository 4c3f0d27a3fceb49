package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan represents an approved interest-free loan awaiting disbursement
type Loan struct {
	ID               int64           `json:"id"`
	BorrowerName     string          `json:"borrower_name"`
	Amount           decimal.Decimal `json:"amount"`
	DisbursementDate time.Time       `json:"disbursement_date"`
	Status           string          `json:"status"`
}

// ContributionPledge is a member's promised contribution to the fund
type ContributionPledge struct {
	ID        int64           `json:"id"`
	MemberID  int64           `json:"member_id"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"due_date"`
	Campaign  string          `json:"campaign"`
	Recurring bool            `json:"recurring"`
}

// WithdrawalRequest is a depositor asking for their deposit back
type WithdrawalRequest struct {
	ID            int64           `json:"id"`
	DepositorID   int64           `json:"depositor_id"`
	Amount        decimal.Decimal `json:"amount"`
	RequestedDate time.Time       `json:"requested_date"`
	Reason        string          `json:"reason"`
}
