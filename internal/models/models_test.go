package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMetadataJSONRoundTrip(t *testing.T) {
	in := Metadata{Kind: MetadataLoan, Loan: &LoanMetadata{LoanID: 42, BorrowerName: "Levi", InstallmentNo: 3}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if fields["kind"] != "loan" {
		t.Fatalf("kind = %v, want loan", fields["kind"])
	}

	var out Metadata
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Loan == nil || out.Loan.LoanID != 42 || out.Loan.InstallmentNo != 3 {
		t.Fatalf("decoded loan metadata = %+v", out.Loan)
	}
}

func TestMetadataRawFallback(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"source":"import-wizard","batch":7,"tags":["a"]}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Kind != MetadataRaw {
		t.Fatalf("kind = %q, want raw", m.Kind)
	}
	if m.Raw["source"] != "import-wizard" || m.Raw["batch"] != float64(7) {
		t.Fatalf("raw = %v", m.Raw)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Metadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal stored form: %v", err)
	}
	if back.Kind != MetadataRaw || back.Raw["batch"] != float64(7) || back.Raw["kind"] != nil {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestMetadataMarshalWithoutPayload(t *testing.T) {
	for _, kind := range []MetadataKind{MetadataLoan, MetadataContribution, MetadataWithdrawal, MetadataForecastRequest} {
		if _, err := json.Marshal(Metadata{Kind: kind}); err == nil {
			t.Errorf("%s: expected error for missing payload", kind)
		}
	}

	data, err := json.Marshal(Metadata{Kind: MetadataRaw})
	if err != nil {
		t.Fatalf("empty raw metadata: %v", err)
	}
	if string(data) != `{"kind":"raw"}` {
		t.Errorf("empty raw metadata = %s", data)
	}
}

func TestMetadataNotAnObject(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`["loan"]`), &m)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "metadata" {
		t.Fatalf("err = %v, want metadata validation error", err)
	}
}

func TestMetadataUnknownKind(t *testing.T) {
	var m Metadata
	err := json.Unmarshal([]byte(`{"kind":"spaceship"}`), &m)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "metadata.kind" {
		t.Fatalf("err = %v, want metadata.kind validation error", err)
	}
}

func TestFlowValidate(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := TreasuryFlow{
		Type:         FlowInflow,
		Category:     CategoryContribution,
		Amount:       decimal.NewFromInt(100),
		ExpectedDate: day,
		Probability:  80,
		Confidence:   70,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid flow rejected: %v", err)
	}

	tests := []struct {
		name  string
		field string
		mod   func(f *TreasuryFlow)
	}{
		{"negative amount", "amount", func(f *TreasuryFlow) { f.Amount = decimal.NewFromInt(-1) }},
		{"actual without date", "actualDate", func(f *TreasuryFlow) { f.IsActual = true }},
		{"probability too high", "probability", func(f *TreasuryFlow) { f.Probability = 101 }},
		{"confidence negative", "confidence", func(f *TreasuryFlow) { f.Confidence = -5 }},
		{"bad category", "category", func(f *TreasuryFlow) { f.Category = "LOTTERY" }},
		{"bad type", "type", func(f *TreasuryFlow) { f.Type = "SIDEWAYS" }},
		{"amount too precise", "amount", func(f *TreasuryFlow) { f.Amount = decimal.RequireFromString("10.00001") }},
		{"amount too large", "amount", func(f *TreasuryFlow) { f.Amount = decimal.New(1, 14) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mod(&f)
			var verr *ValidationError
			if err := f.Validate(); !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("err = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestValidateMoney(t *testing.T) {
	for _, ok := range []string{"0", "-0.0001", "12.3400", "99999999999999.9999", "-99999999999999"} {
		if err := ValidateMoney("x", decimal.RequireFromString(ok)); err != nil {
			t.Errorf("%s rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"0.00001", "100000000000000", "-100000000000000.5"} {
		var verr *ValidationError
		if err := ValidateMoney("x", decimal.RequireFromString(bad)); !errors.As(err, &verr) || verr.Field != "x" {
			t.Errorf("%s: err = %v, want field x", bad, err)
		}
	}
}

func TestParseScenario(t *testing.T) {
	if sc, err := ParseScenario(""); err != nil || sc != ScenarioRealistic {
		t.Fatalf("empty scenario = %v, %v", sc, err)
	}
	if sc, err := ParseScenario("pessimistic"); err != nil || sc != ScenarioPessimistic {
		t.Fatalf("lowercase scenario = %v, %v", sc, err)
	}
	if _, err := ParseScenario("apocalyptic"); err == nil {
		t.Fatal("expected error")
	}
}
