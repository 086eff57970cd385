package store

import (
	"context"
	"fmt"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

func (s *Store) InsertWebhookEvent(ctx context.Context, e *models.WebhookEvent) error {
	if err := s.conn(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// AnnotateWebhookEvent records the mapping outcome on a stored event.
func (s *Store) AnnotateWebhookEvent(ctx context.Context, e *models.WebhookEvent) error {
	err := s.conn(ctx).Model(e).Updates(map[string]interface{}{
		"report_id":    e.ReportID,
		"mapping_note": e.MappingNote,
	}).Error
	if err != nil {
		return fmt.Errorf("annotate webhook event: %w", err)
	}
	return nil
}

func (s *Store) ListWebhookEvents(ctx context.Context, source string, limit int) ([]models.WebhookEvent, error) {
	q := s.conn(ctx).Order("created_at DESC")
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.WebhookEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return rows, nil
}
