package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

// Identity is what a verified bearer token tells us about the caller.
type Identity struct {
	OpenID string
	Name   string
	Email  string
}

type UserService struct {
	store        *store.Store
	adminOpenIDs map[string]bool
	adminEmails  map[string]bool
	now          func() time.Time
}

func NewUserService(s *store.Store, adminOpenIDs, adminEmails []string) *UserService {
	us := &UserService{
		store:        s,
		adminOpenIDs: make(map[string]bool, len(adminOpenIDs)),
		adminEmails:  make(map[string]bool, len(adminEmails)),
		now:          time.Now,
	}
	for _, id := range adminOpenIDs {
		us.adminOpenIDs[id] = true
	}
	for _, e := range adminEmails {
		us.adminEmails[strings.ToLower(e)] = true
	}
	return us
}

func (s *UserService) isConfiguredAdmin(id Identity) bool {
	return s.adminOpenIDs[id.OpenID] || (id.Email != "" && s.adminEmails[strings.ToLower(id.Email)])
}

// ResolveActor provisions or refreshes the user behind a verified identity.
// Configured admins are promoted; everyone else keeps their stored role.
func (s *UserService) ResolveActor(ctx context.Context, id Identity) (*models.User, error) {
	if strings.TrimSpace(id.OpenID) == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrAccessDenied)
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = id.Email
	}
	promote := s.isConfiguredAdmin(id)
	role := models.RoleUser
	if promote {
		role = models.RoleAdmin
	}
	return s.store.UpsertUser(ctx, &models.User{
		OpenID:       id.OpenID,
		Name:         name,
		Email:        id.Email,
		Role:         role,
		LastSignedIn: s.now().UTC(),
	}, promote)
}

func (s *UserService) ListAgents(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) Admins(ctx context.Context) ([]models.User, error) {
	return s.store.ListAdmins(ctx)
}
