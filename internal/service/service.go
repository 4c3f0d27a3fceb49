package service

import (
	"context"
	"time"

	"github.com/Dan9191/gmah-treasury/internal/config"
	"github.com/Dan9191/gmah-treasury/internal/models"
	"github.com/Dan9191/gmah-treasury/internal/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ForecastWriter persists a computed forecast atomically
type ForecastWriter interface {
	SaveForecast(ctx context.Context, f *models.TreasuryForecast) error
}

// Store is the persistence the service needs
type Store interface {
	ForecastWriter
	GetForecast(ctx context.Context, id string, includeInactiveAlerts bool) (*models.TreasuryForecast, error)
	LatestForecast(ctx context.Context, q models.ForecastQuery) (*models.TreasuryForecast, error)
	ForecastSummary(ctx context.Context, now time.Time) (*models.ForecastSummary, error)
	AcknowledgeAlert(ctx context.Context, id string) (*models.ForecastAlert, error)
	DeactivateAlert(ctx context.Context, id string) (*models.ForecastAlert, error)
	CreateFlow(ctx context.Context, f *models.TreasuryFlow) error
	RealizeFlow(ctx context.Context, id string, actualDate time.Time) (*models.TreasuryFlow, error)
	TreasuryBalance(ctx context.Context) (decimal.Decimal, error)
}

// AlertNotifier delivers escalated alerts to the treasurers
type AlertNotifier interface {
	NotifyAlerts(ctx context.Context, f *models.TreasuryForecast, alerts []models.ForecastAlert) error
}

// Service handles business logic
type Service struct {
	repo      Store
	agg       *treasury.Aggregator
	evaluator *treasury.Evaluator
	notifier  AlertNotifier
	log       *logrus.Logger
	config    *config.Config

	now   func() time.Time
	newID func() string
}

// NewService initializes a new service. notifier may be nil.
func NewService(repo Store, readers []treasury.FlowReader, notifier AlertNotifier, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:      repo,
		agg:       treasury.NewAggregator(cfg.Thresholds.OverduePenalty, readers...),
		evaluator: treasury.NewEvaluator(cfg.Thresholds, cfg.CurrencyScale),
		notifier:  notifier,
		log:       log,
		config:    cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}
