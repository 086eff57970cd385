package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/sources"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

// payloadMapper turns a source's payload into a report draft. It is best
// effort: unknown or malformed fields fall back to defaults.
type payloadMapper func(data map[string]interface{}, now time.Time) (*models.ErrorReport, []string)

var payloadMappers = map[string]payloadMapper{
	"n8n":     mapN8nPayload,
	"hubspot": mapHubSpotPayload,
}

type WebhookService struct {
	store    *store.Store
	registry *sources.Registry
	now      func() time.Time
}

func NewWebhookService(s *store.Store, registry *sources.Registry, now func() time.Time) *WebhookService {
	if now == nil {
		now = time.Now
	}
	return &WebhookService{store: s, registry: registry, now: now}
}

func (s *WebhookService) Registry() *sources.Registry {
	return s.registry
}

// Receive stores the delivery and, for sources allowed to create reports,
// maps it into a new report. Mapping problems are recorded on the event and
// never fail the delivery.
func (s *WebhookService) Receive(ctx context.Context, req *dto.WebhookRequest) (*models.WebhookEvent, error) {
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		return nil, fmt.Errorf("%w: source is required", ErrValidation)
	}

	now := s.now().UTC()
	event := &models.WebhookEvent{
		ID:        uuid.New(),
		Source:    source,
		Payload:   datatypes.JSON(req.RawData()),
		CreatedAt: now,
	}
	if req.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			t = t.UTC()
			event.SentAt = &t
		}
	}
	if err := s.store.InsertWebhookEvent(ctx, event); err != nil {
		metrics.WebhooksReceivedTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	metrics.WebhooksReceivedTotal.WithLabelValues(source, "accepted").Inc()
	slog.Info("webhook received", "source", source, "event_id", event.ID.String())

	if s.registry.HasFeature(source, sources.FeatureCreateReports) {
		s.createReport(ctx, event, req.Data)
	}
	return event, nil
}

func (s *WebhookService) createReport(ctx context.Context, event *models.WebhookEvent, data map[string]interface{}) {
	mapperName := event.Source
	if src := s.registry.Get(event.Source); src != nil {
		mapperName = src.Mapper
	}
	mapper, ok := payloadMappers[mapperName]
	if !ok {
		event.MappingNote = fmt.Sprintf("no mapper for %q", mapperName)
		s.annotate(ctx, event)
		return
	}

	report, notes := mapper(data, event.CreatedAt)
	report.CreatedBy = models.SystemActorID
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		a, err := resolveAssigneeByName(ctx, s.store, report.AssignedAgent)
		if err != nil {
			return err
		}
		report.AssignedAgentID, report.AssignedAgent = a.id, a.name
		return s.store.InsertReport(ctx, report)
	})
	switch {
	case errors.Is(err, ErrDuplicateKey):
		notes = append(notes, fmt.Sprintf("duplicate key %q", report.Key))
	case err != nil:
		notes = append(notes, "report could not be saved")
		slog.Error("webhook report mapping failed", "source", event.Source, "event_id", event.ID.String(), "error", err)
	default:
		id := report.ID
		event.ReportID = &id
		slog.Info("webhook report created", "source", event.Source, "report_id", id)
	}
	event.MappingNote = strings.Join(notes, "; ")
	s.annotate(ctx, event)
}

func (s *WebhookService) annotate(ctx context.Context, event *models.WebhookEvent) {
	event.MappingNote = truncate(event.MappingNote, 500)
	if err := s.store.AnnotateWebhookEvent(ctx, event); err != nil {
		slog.Error("annotate webhook event failed", "event_id", event.ID.String(), "error", err)
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func str(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func draft(now time.Time) *models.ErrorReport {
	return &models.ErrorReport{
		Status:    models.StatusNoPrazo,
		Priority:  models.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mapN8nPayload(data map[string]interface{}, now time.Time) (*models.ErrorReport, []string) {
	var notes []string
	r := draft(now)
	r.ClientID = firstNonEmpty(str(data, "clientId"), "N8n")
	r.Key = firstNonEmpty(str(data, "key"), fmt.Sprintf("N8N-%d", now.UnixMilli()))
	r.Modules = str(data, "modules")
	r.AssignedAgent = str(data, "assignedAgent")
	r.Records = str(data, "records")
	r.TicketURL = str(data, "ticketUrl")
	r.RecommendedAction = str(data, "recommendedAction")

	r.Origin = models.OriginOther
	if v := str(data, "origin"); v != "" {
		if o, err := models.ParseOrigin(v); err == nil {
			r.Origin = o
		} else {
			notes = append(notes, fmt.Sprintf("origin %q ignored", v))
		}
	}
	r.Reason = models.ReasonOutro
	if v := str(data, "reason"); v != "" {
		if rs, err := models.ParseReason(v); err == nil {
			r.Reason = rs
		} else {
			notes = append(notes, fmt.Sprintf("reason %q ignored", v))
		}
	}
	if v := str(data, "status"); v != "" {
		if st, err := models.ParseReportStatus(v); err == nil {
			r.Status = st
		} else {
			notes = append(notes, fmt.Sprintf("status %q ignored", v))
		}
	}
	if v := str(data, "priority"); v != "" {
		if p, err := models.ParsePriority(v); err == nil {
			r.Priority = p
		} else {
			notes = append(notes, fmt.Sprintf("priority %q ignored", v))
		}
	}
	if r.Status == models.StatusResolvido {
		resolved := now
		r.ResolutionDate = &resolved
	}
	return r, notes
}

func mapHubSpotPayload(data map[string]interface{}, now time.Time) (*models.ErrorReport, []string) {
	r := draft(now)
	r.ClientID = firstNonEmpty(str(data, "company_name"), str(data, "contact_id"), "HubSpot")
	r.Key = fmt.Sprintf("HS-%d", now.UnixMilli())
	r.Modules = str(data, "issue_type")
	r.Records = str(data, "issue_description")
	r.Origin = models.OriginOnboarding
	r.Reason = models.ReasonClientBase
	return r, nil
}
