package service

import (
	"context"
	"slices"

	"github.com/Dan9191/gmah-treasury/internal/models"
)

// RecordFlow registers a manual treasury flow. Without explicit values the
// flow is taken as certain.
func (s *Service) RecordFlow(ctx context.Context, req models.CreateFlowRequest) (*models.TreasuryFlow, error) {
	f := &models.TreasuryFlow{
		ID:           s.newID(),
		Type:         req.Type,
		Category:     req.Category,
		Amount:       req.Amount,
		Description:  req.Description,
		ExpectedDate: req.ExpectedDate,
		Probability:  100,
		Confidence:   100,
		LoanID:       req.LoanID,
		Source:       models.SourceManual,
		Tags:         slices.Clone(req.Tags),
		Metadata:     req.Metadata,
	}
	if req.Probability != nil {
		f.Probability = *req.Probability
	}
	if req.Confidence != nil {
		f.Confidence = *req.Confidence
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateFlow(ctx, f); err != nil {
		return nil, err
	}
	s.log.WithField("flow_id", f.ID).Infof("Flow recorded: %s %s %s", f.Type, f.Category, f.Amount)
	return f, nil
}

// RealizeFlow marks a flow as actual on the given date
func (s *Service) RealizeFlow(ctx context.Context, id string, req models.RealizeFlowRequest) (*models.TreasuryFlow, error) {
	if req.ActualDate.IsZero() {
		return nil, &models.ValidationError{Field: "actualDate", Reason: "is required"}
	}
	f, err := s.repo.RealizeFlow(ctx, id, req.ActualDate)
	if err != nil {
		return nil, err
	}
	s.log.WithField("flow_id", id).Info("Flow realized")
	return f, nil
}
