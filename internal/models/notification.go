package models

import "time"

// Notification is an in-app delivery record. Sweep-originated alerts are
// deduplicated on (ReportID, UserID, Type).
type Notification struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_dedup,priority:2;index" json:"userId"`
	ReportID  *uint            `gorm:"index:idx_notifications_dedup,priority:1" json:"reportId"`
	Type      NotificationType `gorm:"type:varchar(32);not null;index:idx_notifications_dedup,priority:3" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"not null;default:false" json:"isRead"`
	ActionURL string           `gorm:"size:500" json:"actionUrl,omitempty"`
	CreatedAt time.Time        `gorm:"not null;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
