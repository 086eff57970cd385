package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/access"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

// allowedTransitions lists the outgoing edges of every status. Resolvido is
// terminal.
var allowedTransitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusNoPrazo:    {models.StatusSLAVencida, models.StatusCritico, models.StatusResolvido},
	models.StatusSLAVencida: {models.StatusCritico, models.StatusResolvido},
	models.StatusCritico:    {models.StatusResolvido},
	models.StatusResolvido:  {},
}

func CanTransition(from, to models.ReportStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionRequest asks the engine to move a report to NewStatus, writing
// Fields in the same update. A NewStatus equal to the current one only
// writes Fields.
type TransitionRequest struct {
	ReportID  uint
	NewStatus models.ReportStatus
	Actor     *models.User
	Reason    string
	Fields    map[string]interface{}
}

// TransitionEngine is the only writer of ErrorReport.Status after insert.
type TransitionEngine struct {
	store      *store.Store
	dispatcher *NotificationDispatcher
	now        func() time.Time
}

func NewTransitionEngine(s *store.Store, d *NotificationDispatcher, now func() time.Time) *TransitionEngine {
	if now == nil {
		now = time.Now
	}
	return &TransitionEngine{store: s, dispatcher: d, now: now}
}

// Apply runs inside the transaction carried by ctx, or opens one. The report
// row, its history row and the confirmation notification commit together.
func (e *TransitionEngine) Apply(ctx context.Context, req TransitionRequest) (*models.ErrorReport, error) {
	if !req.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrValidation, req.NewStatus)
	}
	if req.Actor == nil {
		return nil, ErrAccessDenied
	}

	var updated *models.ErrorReport
	err := e.store.WithTx(ctx, func(ctx context.Context) error {
		report, err := e.store.GetReport(ctx, req.ReportID)
		if err != nil {
			return fmt.Errorf("report %d: %w", req.ReportID, err)
		}
		if !access.For(req.Actor, report).Has(access.Write) {
			return fmt.Errorf("report %d: %w", req.ReportID, ErrAccessDenied)
		}

		now := e.now().UTC()
		fields := make(map[string]interface{}, len(req.Fields)+3)
		for k, v := range req.Fields {
			fields[k] = v
		}
		delete(fields, "status")
		delete(fields, "resolution_date")
		fields["updated_at"] = now

		previous := report.Status
		changed := previous != req.NewStatus
		var guard *models.ReportStatus
		if changed {
			if !CanTransition(previous, req.NewStatus) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, req.NewStatus)
			}
			fields["status"] = req.NewStatus
			if req.NewStatus == models.StatusResolvido && report.ResolutionDate == nil {
				fields["resolution_date"] = now
			}
			guard = &previous
		}

		n, err := e.store.UpdateReport(ctx, report.ID, fields, guard)
		if err != nil {
			return err
		}
		if changed && n == 0 {
			return fmt.Errorf("report %d: %w", report.ID, ErrStatusConflict)
		}

		if changed {
			prev := previous
			if err := e.store.InsertHistory(ctx, &models.StatusHistory{
				ReportID:       report.ID,
				PreviousStatus: &prev,
				NewStatus:      req.NewStatus,
				ChangedBy:      req.Actor.ID,
				ChangedByName:  req.Actor.Name,
				Reason:         req.Reason,
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			if req.Actor.ID != models.SystemActorID {
				id := report.ID
				if _, err := e.dispatcher.Notify(ctx, NotificationInput{
					UserID:    req.Actor.ID,
					ReportID:  &id,
					Type:      models.NotificationStatusChanged,
					Title:     fmt.Sprintf("Report %s status changed to %s", report.ClientID, req.NewStatus),
					Message:   fmt.Sprintf("The status of report %s has been updated.", report.ClientID),
					ActionURL: reportURL(id),
				}); err != nil {
					return err
				}
			}
		}

		updated, err = e.store.GetReport(ctx, report.ID)
		if err != nil {
			return err
		}
		if changed && req.Actor.ID != models.SystemActorID &&
			updated.AssignedAgentID != nil && *updated.AssignedAgentID != req.Actor.ID {
			assignee, err := e.store.GetUser(ctx, *updated.AssignedAgentID)
			if err != nil {
				return err
			}
			e.dispatcher.EmailStatusUpdate(ctx, assignee, updated, req.Actor.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func reportURL(id uint) string {
	return fmt.Sprintf("/reports/%d", id)
}
