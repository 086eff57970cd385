package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicorp/n0-error-tracker/internal/access"
	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// AddComment requires write access to the report.
func (s *ReportService) AddComment(ctx context.Context, actor *models.User, reportID uint, text string) (*models.ReportComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", ErrValidation)
	}
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", reportID, err)
	}
	if !access.For(actor, report).Has(access.Write) {
		return nil, fmt.Errorf("report %d: %w", reportID, ErrAccessDenied)
	}

	now := s.now().UTC()
	c := &models.ReportComment{
		ReportID:  reportID,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Comment:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ReportService) ListComments(ctx context.Context, actor *models.User, reportID uint) ([]models.ReportComment, error) {
	if _, err := s.getReadable(ctx, actor, reportID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, reportID)
}
