package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/access"
	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

type ImportService struct {
	store *store.Store
	now   func() time.Time
}

func NewImportService(s *store.Store, now func() time.Time) *ImportService {
	if now == nil {
		now = time.Now
	}
	return &ImportService{store: s, now: now}
}

// ImportReports inserts each row independently. A bad row is recorded in
// Errors and never stops the batch.
func (s *ImportService) ImportReports(ctx context.Context, actor *models.User, rows []dto.ImportRow) (*dto.BatchResult, error) {
	if !access.CanImport(actor) {
		return nil, ErrAccessDenied
	}

	result := &dto.BatchResult{Errors: []string{}}
	for i, row := range rows {
		n := i + 1
		report, err := s.buildReport(row, actor.ID)
		if err != nil {
			result.Fail(fmt.Sprintf("Row %d: %s", n, importErrorText(err)))
			continue
		}
		err = s.store.WithTx(ctx, func(ctx context.Context) error {
			a, err := resolveAssigneeByName(ctx, s.store, row.AssignedAgent)
			if err != nil {
				return err
			}
			report.AssignedAgentID, report.AssignedAgent = a.id, a.name
			return s.store.InsertReport(ctx, report)
		})
		if err != nil {
			if !errors.Is(err, ErrDuplicateKey) {
				slog.Error("import row failed", "row", n, "key", row.Key, "error", err)
			}
			result.Fail(fmt.Sprintf("Row %d: %s", n, importErrorText(err)))
			continue
		}
		result.Success++
	}

	slog.Info("import finished", "user_id", actor.ID, "success", result.Success, "failed", result.Failed)
	return result, nil
}

func (s *ImportService) buildReport(row dto.ImportRow, createdBy uint) (*models.ErrorReport, error) {
	clientID := strings.TrimSpace(row.ClientID)
	key := strings.TrimSpace(row.Key)
	if clientID == "" || key == "" {
		return nil, fmt.Errorf("%w: clientId and key are required", ErrValidation)
	}
	origin, reason, priority, err := parseClassification(row.Origin, row.Reason, row.Priority)
	if err != nil {
		return nil, err
	}
	status := models.StatusNoPrazo
	if row.Status != "" {
		if status, err = models.ParseReportStatus(row.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	now := s.now().UTC()
	r := &models.ErrorReport{
		ClientID:          clientID,
		Key:               key,
		Modules:           row.Modules,
		Origin:            origin,
		Reason:            reason,
		Records:           row.Records,
		Status:            status,
		TicketURL:         row.TicketURL,
		RecommendedAction: row.RecommendedAction,
		Priority:          priority,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         createdBy,
	}
	if status == models.StatusResolvido {
		r.ResolutionDate = &now
	}
	return r, nil
}

func importErrorText(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate key"
	}
	return "could not be saved"
}
