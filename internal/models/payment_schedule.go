package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSchedule represents a scheduled repayment installment of a loan
type PaymentSchedule struct {
	ID            int64           `json:"id"`
	LoanID        int64           `json:"loan_id"`
	InstallmentNo int             `json:"installment_no"`
	BorrowerName  string          `json:"borrower_name"`
	PaymentDate   time.Time       `json:"payment_date"`
	Amount        decimal.Decimal `json:"amount"`
	Paid          bool            `json:"paid"`
	// GuarantorCount raises confidence in the repayment.
	GuarantorCount int `json:"guarantor_count"`
}
