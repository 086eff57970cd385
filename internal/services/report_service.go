package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/access"
	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type ReportService struct {
	store      *store.Store
	engine     *TransitionEngine
	dispatcher *NotificationDispatcher
	now        func() time.Time
}

func NewReportService(s *store.Store, engine *TransitionEngine, d *NotificationDispatcher, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{store: s, engine: engine, dispatcher: d, now: now}
}

// Create inserts a new report in NoPrazo. Only admins may create.
func (s *ReportService) Create(ctx context.Context, actor *models.User, req *dto.CreateReportRequest) (*dto.CreateReportResponse, error) {
	if !access.CanCreate(actor) {
		return nil, ErrAccessDenied
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Key = strings.TrimSpace(req.Key)
	if req.ClientID == "" || req.Key == "" {
		return nil, fmt.Errorf("%w: clientId and key are required", ErrValidation)
	}

	origin, reason, priority, err := parseClassification(req.Origin, req.Reason, req.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report := &models.ErrorReport{
		ClientID:          req.ClientID,
		Key:               req.Key,
		Modules:           req.Modules,
		Origin:            origin,
		Reason:            reason,
		Records:           req.Records,
		Status:            models.StatusNoPrazo,
		TicketURL:         req.TicketURL,
		RecommendedAction: req.RecommendedAction,
		Priority:          priority,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         actor.ID,
	}

	var dupes int64
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		assignee, err := s.resolveAssignee(ctx, req.AssignedAgentID, req.AssignedAgent)
		if err != nil {
			return err
		}
		report.AssignedAgentID = assignee.id
		report.AssignedAgent = assignee.name

		if err := s.store.InsertReport(ctx, report); err != nil {
			return err
		}
		if err := s.notifyAssignee(ctx, actor, report, assignee.id); err != nil {
			return err
		}
		dupes, err = s.store.CountReports(ctx, store.ReportFilter{ClientID: report.ClientID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto.CreateReportResponse{Report: report, DuplicateCount: dupes}, nil
}

func (s *ReportService) getReadable(ctx context.Context, actor *models.User, id uint) (*models.ErrorReport, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", id, err)
	}
	if !access.For(actor, report).Has(access.Read) {
		return nil, fmt.Errorf("report %d: %w", id, ErrAccessDenied)
	}
	return report, nil
}

// Get returns the report with its history and comments.
func (s *ReportService) Get(ctx context.Context, actor *models.User, id uint) (*dto.ReportDetail, error) {
	report, err := s.getReadable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAgentNames(ctx, []*models.ErrorReport{report}); err != nil {
		return nil, err
	}
	return &dto.ReportDetail{
		Report:       report,
		History:      history,
		Comments:     comments,
		Capabilities: access.For(actor, report).String(),
	}, nil
}

// Export assembles the read-only aggregate consumed by the PDF and Excel
// generators.
func (s *ReportService) Export(ctx context.Context, actor *models.User, id uint) (*dto.ReportExport, error) {
	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &dto.ReportExport{
		Filename:   exportFilename(detail.Report),
		ExportedAt: s.now().UTC(),
		Report:     detail.Report,
		History:    detail.History,
		Comments:   detail.Comments,
	}, nil
}

func exportFilename(r *models.ErrorReport) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch r {
			case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
				return '_'
			}
			return r
		}, s)
	}
	return fmt.Sprintf("report-%s-%s", clean(r.ClientID), clean(r.Key))
}

func (s *ReportService) scopeFor(actor *models.User) *store.AgentScope {
	if !access.RestrictListing(actor) {
		return nil
	}
	return &store.AgentScope{UserID: actor.ID, Name: actor.Name}
}

func (s *ReportService) List(ctx context.Context, actor *models.User, q *dto.ListReportsQuery) ([]models.ErrorReport, error) {
	if actor == nil {
		return nil, ErrAccessDenied
	}
	filter, err := s.buildFilter(actor, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.ErrorReport, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	if err := s.resolveAgentNames(ctx, ptrs); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReportService) buildFilter(actor *models.User, q *dto.ListReportsQuery) (store.ReportFilter, error) {
	f := store.ReportFilter{
		Scope:         s.scopeFor(actor),
		Search:        q.Search,
		AssignedAgent: strings.TrimSpace(q.AssignedAgent),
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var err error
	if q.Status != "" {
		if f.Status, err = models.ParseReportStatus(q.Status); err != nil {
			return f, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if q.Reason != "" {
		if f.Reason, err = models.ParseReason(q.Reason); err != nil {
			return f, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if q.Origin != "" {
		if f.Origin, err = models.ParseOrigin(q.Origin); err != nil {
			return f, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if q.Priority != "" {
		if f.Priority, err = models.ParsePriority(q.Priority); err != nil {
			return f, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if q.StartDate != "" {
		t, _, err := parseDate(q.StartDate)
		if err != nil {
			return f, err
		}
		f.CreatedFrom = &t
	}
	if q.EndDate != "" {
		t, dateOnly, err := parseDate(q.EndDate)
		if err != nil {
			return f, err
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.CreatedUntil = &t
	}
	return f, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: invalid date %q", ErrValidation, v)
}

// Update applies a field patch. A status change goes through the transition
// engine in the same transaction as the other fields.
func (s *ReportService) Update(ctx context.Context, actor *models.User, id uint, req *dto.UpdateReportRequest) (*models.ErrorReport, error) {
	fields, err := patchFields(req)
	if err != nil {
		return nil, err
	}

	var updated *models.ErrorReport
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.store.GetReport(ctx, id)
		if err != nil {
			return fmt.Errorf("report %d: %w", id, err)
		}
		if !access.For(actor, current).Has(access.Write) {
			return fmt.Errorf("report %d: %w", id, ErrAccessDenied)
		}

		newStatus := current.Status
		if req.Status != nil {
			if newStatus, err = models.ParseReportStatus(*req.Status); err != nil {
				return fmt.Errorf("%w: %v", ErrValidation, err)
			}
		}

		var newAssignee *uint
		assignmentTouched := req.AssignedAgentID != nil || req.AssignedAgent != nil
		if assignmentTouched {
			name := current.AssignedAgent
			if req.AssignedAgent != nil {
				name = *req.AssignedAgent
			} else if req.AssignedAgentID != nil && *req.AssignedAgentID == 0 {
				name = ""
			}
			assignee, err := s.resolveAssignee(ctx, req.AssignedAgentID, name)
			if err != nil {
				return err
			}
			fields["assigned_agent_id"] = assignee.id
			fields["assigned_agent"] = assignee.name
			if assignee.id != nil && (current.AssignedAgentID == nil || *current.AssignedAgentID != *assignee.id) {
				newAssignee = assignee.id
			}
		}

		updated, err = s.engine.Apply(ctx, TransitionRequest{
			ReportID:  id,
			NewStatus: newStatus,
			Actor:     actor,
			Reason:    req.StatusReason,
			Fields:    fields,
		})
		if err != nil {
			return err
		}
		return s.notifyAssignee(ctx, actor, updated, newAssignee)
	})
	if err != nil {
		return nil, err
	}
	if err := s.resolveAgentNames(ctx, []*models.ErrorReport{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

func patchFields(req *dto.UpdateReportRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if req.ClientID != nil {
		v := strings.TrimSpace(*req.ClientID)
		if v == "" {
			return nil, fmt.Errorf("%w: clientId cannot be empty", ErrValidation)
		}
		fields["client_id"] = v
	}
	if req.Origin != nil {
		v, err := models.ParseOrigin(*req.Origin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		fields["origin"] = v
	}
	if req.Reason != nil {
		v, err := models.ParseReason(*req.Reason)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		fields["reason"] = v
	}
	if req.Priority != nil {
		v, err := models.ParsePriority(*req.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		fields["priority"] = v
	}
	for col, v := range map[string]*string{
		"modules":                req.Modules,
		"records":                req.Records,
		"ticket_url":             req.TicketURL,
		"recommended_action":     req.RecommendedAction,
		"resolution_description": req.ResolutionDescription,
	} {
		if v != nil {
			fields[col] = *v
		}
	}
	return fields, nil
}

// Delete removes a report and its children. Admin only.
func (s *ReportService) Delete(ctx context.Context, actor *models.User, id uint) error {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return fmt.Errorf("report %d: %w", id, err)
	}
	if !access.For(actor, report).Has(access.Delete) {
		return fmt.Errorf("report %d: %w", id, ErrAccessDenied)
	}
	return s.store.DeleteReport(ctx, id)
}

func (s *ReportService) CountByClient(ctx context.Context, actor *models.User, clientID string) (int64, error) {
	if actor == nil {
		return 0, ErrAccessDenied
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return 0, fmt.Errorf("%w: clientId is required", ErrValidation)
	}
	return s.store.CountReports(ctx, store.ReportFilter{Scope: s.scopeFor(actor), ClientID: clientID})
}

func (s *ReportService) Stats(ctx context.Context, actor *models.User) (*dto.StatsResponse, error) {
	if actor == nil {
		return nil, ErrAccessDenied
	}
	f := store.ReportFilter{Scope: s.scopeFor(actor)}
	total, err := s.store.CountReports(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.StatsResponse{Total: total}
	for col, dst := range map[string]*[]dto.CountEntry{
		"status":         &out.ByStatus,
		"assigned_agent": &out.ByAgent,
		"reason":         &out.ByReason,
		"priority":       &out.ByPriority,
	} {
		groups, err := s.store.CountBy(ctx, f, col)
		if err != nil {
			return nil, err
		}
		entries := make([]dto.CountEntry, 0, len(groups))
		for _, g := range groups {
			entries = append(entries, dto.CountEntry{Key: g.Key, Count: g.Count})
		}
		*dst = entries
	}
	return out, nil
}

// AverageResolutionHours is the rounded mean of resolutionDate - createdAt
// over resolved reports, or 0 when none are resolved.
func (s *ReportService) AverageResolutionHours(ctx context.Context, actor *models.User) (int, error) {
	if actor == nil {
		return 0, ErrAccessDenied
	}
	spans, err := s.store.ResolvedSpans(ctx, store.ReportFilter{Scope: s.scopeFor(actor)})
	if err != nil {
		return 0, err
	}
	if len(spans) == 0 {
		return 0, nil
	}
	var total time.Duration
	for _, sp := range spans {
		total += sp[1].Sub(sp[0])
	}
	return int(math.Round(total.Hours() / float64(len(spans)))), nil
}

// BulkUpdateStatus applies one transition per id; each succeeds or fails on
// its own.
func (s *ReportService) BulkUpdateStatus(ctx context.Context, actor *models.User, req *dto.BulkStatusRequest) (*dto.BatchResult, error) {
	if !access.CanBulk(actor) {
		return nil, ErrAccessDenied
	}
	if _, err := models.ParseReportStatus(req.Status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	result := &dto.BatchResult{Errors: []string{}}
	for _, id := range req.IDs {
		status := req.Status
		_, err := s.Update(ctx, actor, id, &dto.UpdateReportRequest{Status: &status, StatusReason: req.Reason})
		if err != nil {
			result.Fail(fmt.Sprintf("Report %d: %s", id, errorText(err)))
			continue
		}
		result.Success++
	}
	return result, nil
}

func (s *ReportService) BulkDelete(ctx context.Context, actor *models.User, ids []uint) (*dto.BatchResult, error) {
	if !access.CanBulk(actor) {
		return nil, ErrAccessDenied
	}
	result := &dto.BatchResult{Errors: []string{}}
	for _, id := range ids {
		if err := s.Delete(ctx, actor, id); err != nil {
			result.Fail(fmt.Sprintf("Report %d: %s", id, errorText(err)))
			continue
		}
		result.Success++
	}
	return result, nil
}

func errorText(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrAccessDenied):
		return "access denied"
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrStatusConflict):
		return err.Error()
	}
	return "internal error"
}

func parseClassification(origin, reason, priority string) (models.Origin, models.Reason, models.Priority, error) {
	o, r, p := models.OriginOnboarding, models.ReasonEmAnalise, models.PriorityMedium
	var err error
	if origin != "" {
		if o, err = models.ParseOrigin(origin); err != nil {
			return o, r, p, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if reason != "" {
		if r, err = models.ParseReason(reason); err != nil {
			return o, r, p, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if priority != "" {
		if p, err = models.ParsePriority(priority); err != nil {
			return o, r, p, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return o, r, p, nil
}
