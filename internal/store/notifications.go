package store

import (
	"context"
	"fmt"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	if err := s.conn(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// NotificationExists checks the dedup key regardless of read state.
func (s *Store) NotificationExists(ctx context.Context, reportID, userID uint, typ models.NotificationType) (bool, error) {
	n, err := s.CountNotifications(ctx, reportID, userID, typ)
	return n > 0, err
}

func (s *Store) CountNotifications(ctx context.Context, reportID, userID uint, typ models.NotificationType) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("report_id = ? AND user_id = ? AND type = ?", reportID, userID, typ).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *Store) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.conn(ctx).First(&n, id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// ListNotifications returns a user's notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := s.conn(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

// MarkNotificationRead flags one of userID's notifications as read. Marking
// an already-read row succeeds; a row owned by someone else is ErrNotFound.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	var n models.Notification
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return translate(err)
	}
	if n.IsRead {
		return nil
	}
	err := s.conn(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uint) (int64, error) {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
