package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/config"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// NotifyAlerts mails the escalated alerts of a forecast to the treasurers
func (s *Sender) NotifyAlerts(ctx context.Context, f *models.TreasuryForecast, alerts []models.ForecastAlert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = s.cfg.AlertRecipients
	e.Subject = alertSubject(f, alerts)
	e.Text = []byte(alertBody(f, alerts, s.cfg.CurrencyScale))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send alert email for forecast %s: %v", f.ID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", strings.Join(e.To, ", "), e.Subject)
	return nil
}

func alertSubject(f *models.TreasuryForecast, alerts []models.ForecastAlert) string {
	return fmt.Sprintf("[%s] %d treasury alert(s) for the %s forecast of %s",
		highestSeverity(alerts), len(alerts), strings.ToLower(string(f.Scenario)), f.ForecastDate.Format(time.DateOnly))
}

func alertBody(f *models.TreasuryForecast, alerts []models.ForecastAlert, scale int32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear treasurers,\n\n")
	fmt.Fprintf(&b, "The %d-day %s forecast starting %s raised the following alerts.\n",
		f.PeriodDays, strings.ToLower(string(f.Scenario)), f.ForecastDate.Format(time.DateOnly))
	fmt.Fprintf(&b, "Current balance: %s\nProjected balance: %s\nLowest balance: %s\nLiquidity risk: %.2f\n\n",
		f.CurrentBalance.StringFixed(scale), f.ProjectedBalance.StringFixed(scale), f.MinBalance.StringFixed(scale), f.LiquidityRisk)

	for _, a := range alerts {
		fmt.Fprintf(&b, "* [%s] %s\n  %s\n", a.Severity, a.Title, a.Message)
		if a.ProjectedDate != nil {
			fmt.Fprintf(&b, "  Date: %s\n", a.ProjectedDate.Format(time.DateOnly))
		}
		for _, r := range a.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	b.WriteString("\nForecast id: " + f.ID)
	b.WriteString("\n\nBest regards,\nGMAH Treasury Service")
	return b.String()
}

func highestSeverity(alerts []models.ForecastAlert) models.AlertSeverity {
	rank := map[models.AlertSeverity]int{
		models.SeverityInfo: 0, models.SeverityWarning: 1, models.SeverityCritical: 2, models.SeverityUrgent: 3,
	}
	best := models.SeverityInfo
	for _, a := range alerts {
		if rank[a.Severity] > rank[best] {
			best = a.Severity
		}
	}
	return best
}
