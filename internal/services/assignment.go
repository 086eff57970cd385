package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

type assignee struct {
	id   *uint
	name string
}

// resolveAssignee links an assignment to a user row. An explicit non-zero id
// must exist; otherwise a name that matches exactly one user is linked, and
// any other name is kept as a free-text legacy assignment.
func (s *ReportService) resolveAssignee(ctx context.Context, id *uint, name string) (assignee, error) {
	if id != nil && *id != 0 {
		u, err := s.store.GetUser(ctx, *id)
		if errors.Is(err, store.ErrNotFound) {
			return assignee{}, fmt.Errorf("%w: unknown agent id %d", ErrValidation, *id)
		}
		if err != nil {
			return assignee{}, err
		}
		uid := u.ID
		return assignee{id: &uid, name: u.Name}, nil
	}
	return resolveAssigneeByName(ctx, s.store, name)
}

func resolveAssigneeByName(ctx context.Context, st *store.Store, name string) (assignee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return assignee{}, nil
	}
	users, err := st.FindUsersByName(ctx, name)
	if err != nil {
		return assignee{}, err
	}
	if len(users) == 1 {
		uid := users[0].ID
		return assignee{id: &uid, name: name}, nil
	}
	return assignee{name: name}, nil
}

func (s *ReportService) notifyAssignee(ctx context.Context, actor *models.User, report *models.ErrorReport, userID *uint) error {
	if userID == nil || *userID == actor.ID {
		return nil
	}
	id := report.ID
	_, err := s.dispatcher.Notify(ctx, NotificationInput{
		UserID:    *userID,
		ReportID:  &id,
		Type:      models.NotificationAssignedToYou,
		Title:     fmt.Sprintf("Report atribuído: %s", report.ClientID),
		Message:   fmt.Sprintf("O report %s foi atribuído a você por %s.", report.Key, actor.Name),
		ActionURL: reportURL(id),
	})
	return err
}

// resolveAgentNames replaces the stored assignee name with the user's
// current name wherever the assignment is linked by id.
func (s *ReportService) resolveAgentNames(ctx context.Context, reports []*models.ErrorReport) error {
	var ids []uint
	for _, r := range reports {
		if r.AssignedAgentID != nil {
			ids = append(ids, *r.AssignedAgentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	names, err := s.store.UserNames(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.AssignedAgentID == nil {
			continue
		}
		if name, ok := names[*r.AssignedAgentID]; ok && name != "" {
			r.AssignedAgent = name
		}
	}
	return nil
}
