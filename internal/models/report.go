package models

import "time"

// ErrorReport is a logged error/incident tied to a client account.
type ErrorReport struct {
	ID                    uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID              string       `gorm:"size:255;not null;index" json:"clientId"`
	Key                   string       `gorm:"size:255;not null;uniqueIndex" json:"key"`
	Modules               string       `gorm:"type:text" json:"modules,omitempty"`
	Origin                Origin       `gorm:"type:varchar(20);not null;default:'Onboarding'" json:"origin"`
	Reason                Reason       `gorm:"type:varchar(20);not null;default:'EmAnalise'" json:"reason"`
	AssignedAgent         string       `gorm:"size:255;index" json:"assignedAgent,omitempty"`
	AssignedAgentID       *uint        `gorm:"index" json:"assignedAgentId,omitempty"`
	Records               string       `gorm:"type:text" json:"records,omitempty"`
	Status                ReportStatus `gorm:"type:varchar(20);not null;default:'NoPrazo';index" json:"status"`
	TicketURL             string       `gorm:"size:500" json:"ticketUrl,omitempty"`
	RecommendedAction     string       `gorm:"size:255" json:"recommendedAction,omitempty"`
	ResolutionDescription string       `gorm:"type:text" json:"resolutionDescription,omitempty"`
	ResolutionDate        *time.Time   `json:"resolutionDate"`
	Priority              Priority     `gorm:"type:varchar(20);not null;default:'Medium';index" json:"priority"`
	CreatedAt             time.Time    `gorm:"not null;index" json:"createdAt"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updatedAt"`
	CreatedBy             uint         `gorm:"not null;default:0" json:"createdBy"`
}

func (ErrorReport) TableName() string {
	return "error_reports"
}

// StatusHistory is an append-only audit row, one per status change.
type StatusHistory struct {
	ID             uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID       uint          `gorm:"not null;index" json:"reportId"`
	PreviousStatus *ReportStatus `gorm:"type:varchar(20)" json:"previousStatus"`
	NewStatus      ReportStatus  `gorm:"type:varchar(20);not null" json:"newStatus"`
	ChangedBy      uint          `gorm:"not null" json:"changedBy"`
	ChangedByName  string        `gorm:"size:255" json:"changedByName"`
	Reason         string        `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;index" json:"createdAt"`
}

func (StatusHistory) TableName() string {
	return "status_history"
}

type ReportComment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReportID  uint      `gorm:"not null;index" json:"reportId"`
	UserID    uint      `gorm:"not null" json:"userId"`
	UserName  string    `gorm:"size:255" json:"userName"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (ReportComment) TableName() string {
	return "report_comments"
}
