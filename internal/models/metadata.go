package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MetadataKind tags the shape carried by a Metadata value
type MetadataKind string

const (
	MetadataLoan            MetadataKind = "loan"
	MetadataContribution    MetadataKind = "contribution"
	MetadataWithdrawal      MetadataKind = "withdrawal"
	MetadataForecastRequest MetadataKind = "forecast_request"
	MetadataRaw             MetadataKind = "raw"
)

// LoanMetadata describes a flow produced by a loan schedule
type LoanMetadata struct {
	LoanID        int64  `json:"loanId"`
	BorrowerName  string `json:"borrowerName,omitempty"`
	InstallmentNo int    `json:"installmentNo,omitempty"`
}

// ContributionMetadata describes a pledged contribution
type ContributionMetadata struct {
	MemberID int64  `json:"memberId"`
	Campaign string `json:"campaign,omitempty"`
}

// WithdrawalMetadata describes a deposit withdrawal request
type WithdrawalMetadata struct {
	DepositorID int64  `json:"depositorId"`
	RequestID   int64  `json:"requestId"`
	Reason      string `json:"reason,omitempty"`
}

// ForecastRequestMetadata is attached by whoever requested a forecast
type ForecastRequestMetadata struct {
	RequestedBy string `json:"requestedBy,omitempty"`
	Note        string `json:"note,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
}

// Metadata is a tagged union. Exactly one of the pointers matches Kind;
// Raw holds provenance objects with no known shape, including any object
// sent without a kind.
type Metadata struct {
	Kind         MetadataKind
	Loan         *LoanMetadata
	Contribution *ContributionMetadata
	Withdrawal   *WithdrawalMetadata
	Request      *ForecastRequestMetadata
	Raw          map[string]any
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var (
		body    any
		missing bool
	)
	switch m.Kind {
	case MetadataLoan:
		body, missing = m.Loan, m.Loan == nil
	case MetadataContribution:
		body, missing = m.Contribution, m.Contribution == nil
	case MetadataWithdrawal:
		body, missing = m.Withdrawal, m.Withdrawal == nil
	case MetadataForecastRequest:
		body, missing = m.Request, m.Request == nil
	case MetadataRaw:
		body = m.Raw
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", m.Kind)
	}
	if missing {
		return nil, fmt.Errorf("metadata of kind %q has no payload", m.Kind)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	kind, _ := json.Marshal(m.Kind)
	fields["kind"] = kind
	return json.Marshal(fields)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind *MetadataKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return &ValidationError{Field: "metadata", Reason: "must be a JSON object"}
	}
	if head.Kind == nil {
		raw := MetadataRaw
		head.Kind = &raw
	}

	out := Metadata{Kind: *head.Kind}
	var err error
	switch out.Kind {
	case MetadataLoan:
		out.Loan = &LoanMetadata{}
		err = json.Unmarshal(data, out.Loan)
	case MetadataContribution:
		out.Contribution = &ContributionMetadata{}
		err = json.Unmarshal(data, out.Contribution)
	case MetadataWithdrawal:
		out.Withdrawal = &WithdrawalMetadata{}
		err = json.Unmarshal(data, out.Withdrawal)
	case MetadataForecastRequest:
		out.Request = &ForecastRequestMetadata{}
		err = json.Unmarshal(data, out.Request)
	case MetadataRaw:
		if err = json.Unmarshal(data, &out.Raw); err == nil {
			delete(out.Raw, "kind")
		}
	default:
		return &ValidationError{Field: "metadata.kind", Reason: fmt.Sprintf("unknown kind %q", out.Kind)}
	}
	if err != nil {
		return &ValidationError{Field: "metadata", Reason: err.Error()}
	}
	*m = out
	return nil
}

// Value stores metadata as JSONB
func (m *Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan reads metadata from a JSONB column
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into Metadata", src)
}
