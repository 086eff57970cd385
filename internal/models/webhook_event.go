package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent records every payload accepted on the webhook ingress.
type WebhookEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source      string         `gorm:"size:64;not null;index" json:"source"`
	Payload     datatypes.JSON `json:"payload"`
	SentAt      *time.Time     `json:"sentAt,omitempty"`
	ReportID    *uint          `json:"reportId,omitempty"`
	MappingNote string         `gorm:"size:500" json:"mappingNote,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"createdAt"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
