package dto

import (
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

type CreateReportRequest struct {
	ClientID          string `json:"clientId"`
	Key               string `json:"key"`
	Modules           string `json:"modules"`
	Origin            string `json:"origin"`
	Reason            string `json:"reason"`
	AssignedAgent     string `json:"assignedAgent"`
	AssignedAgentID   *uint  `json:"assignedAgentId"`
	Records           string `json:"records"`
	TicketURL         string `json:"ticketUrl"`
	RecommendedAction string `json:"recommendedAction"`
	Priority          string `json:"priority"`
}

// UpdateReportRequest is a field patch: nil means "leave unchanged".
// AssignedAgentID 0 clears the id-based assignment.
type UpdateReportRequest struct {
	ClientID              *string `json:"clientId"`
	Modules               *string `json:"modules"`
	Origin                *string `json:"origin"`
	Reason                *string `json:"reason"`
	AssignedAgent         *string `json:"assignedAgent"`
	AssignedAgentID       *uint   `json:"assignedAgentId"`
	Records               *string `json:"records"`
	Status                *string `json:"status"`
	StatusReason          string  `json:"statusReason"`
	TicketURL             *string `json:"ticketUrl"`
	RecommendedAction     *string `json:"recommendedAction"`
	ResolutionDescription *string `json:"resolutionDescription"`
	Priority              *string `json:"priority"`
}

type ListReportsQuery struct {
	Search        string `query:"search"`
	Status        string `query:"status"`
	Reason        string `query:"reason"`
	Origin        string `query:"origin"`
	AssignedAgent string `query:"assignedAgent"`
	Priority      string `query:"priority"`
	StartDate     string `query:"startDate"`
	EndDate       string `query:"endDate"`
	Limit         int    `query:"limit"`
	Offset        int    `query:"offset"`
}

type CreateReportResponse struct {
	Report         *models.ErrorReport `json:"report"`
	DuplicateCount int64               `json:"duplicateCount"`
}

type ReportDetail struct {
	Report       *models.ErrorReport    `json:"report"`
	History      []models.StatusHistory `json:"statusHistory"`
	Comments     []models.ReportComment `json:"comments"`
	Capabilities string                 `json:"capabilities"`
}

type ReportExport struct {
	Filename   string                 `json:"filename"`
	ExportedAt time.Time              `json:"exportedAt"`
	Report     *models.ErrorReport    `json:"report"`
	History    []models.StatusHistory `json:"statusHistory"`
	Comments   []models.ReportComment `json:"comments"`
}

type CountEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type StatsResponse struct {
	Total      int64        `json:"total"`
	ByStatus   []CountEntry `json:"byStatus"`
	ByAgent    []CountEntry `json:"byAgent"`
	ByReason   []CountEntry `json:"byReason"`
	ByPriority []CountEntry `json:"byPriority"`
}

type AverageResolutionResponse struct {
	Hours int `json:"hours"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type BulkStatusRequest struct {
	IDs    []uint `json:"ids"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}
