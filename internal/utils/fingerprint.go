package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/models"
)

// ForecastFingerprint signs the computed content of a forecast: its inputs,
// balances, totals and alerts. Identifiers and timestamps are left out, so
// two runs over the same data produce the same fingerprint.
func ForecastFingerprint(f *models.TreasuryForecast, secret string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%s|%s|", f.ForecastDate.UTC().Format(time.DateOnly), f.PeriodDays, f.Scenario, f.CurrentBalance)
	fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|", f.ProjectedBalance, f.MinBalance, f.MaxBalance, f.TotalInflows, f.TotalOutflows, f.NetCashFlow)
	fmt.Fprintf(&b, "%.2f|%.2f|%.2f|%d", f.LiquidityRisk, f.VolatilityIndex, f.ConfidenceLevel, f.DataPoints)

	// storage does not keep alert order
	alerts := make([]string, len(f.Alerts))
	for i, a := range f.Alerts {
		s := string(a.Type) + ":" + string(a.Severity)
		if a.ProjectedDate != nil {
			s += ":" + a.ProjectedDate.UTC().Format(time.DateOnly)
		}
		if a.Amount != nil {
			s += ":" + a.Amount.String()
		}
		if a.Threshold != nil {
			s += ":" + a.Threshold.String()
		}
		alerts[i] = s
	}
	slices.Sort(alerts)
	for _, a := range alerts {
		b.WriteString("|" + a)
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyFingerprint reports whether fingerprint matches the forecast content
func VerifyFingerprint(f *models.TreasuryForecast, secret, fingerprint string) bool {
	return hmac.Equal([]byte(ForecastFingerprint(f, secret)), []byte(fingerprint))
}
