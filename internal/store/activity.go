package store

import (
	"context"
	"fmt"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// InsertHistory appends an audit row. History rows are never updated.
func (s *Store) InsertHistory(ctx context.Context, h *models.StatusHistory) error {
	if err := s.conn(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, reportID uint) ([]models.StatusHistory, error) {
	var rows []models.StatusHistory
	err := s.conn(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return rows, nil
}

func (s *Store) InsertComment(ctx context.Context, c *models.ReportComment) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *Store) ListComments(ctx context.Context, reportID uint) ([]models.ReportComment, error) {
	var rows []models.ReportComment
	err := s.conn(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return rows, nil
}
