package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// UpsertUser inserts u or refreshes name, email and last sign-in on the row
// with the same open id. Role is only written on insert unless promote is
// set. The stored row is returned.
func (s *Store) UpsertUser(ctx context.Context, u *models.User, promote bool) (*models.User, error) {
	if u.LastSignedIn.IsZero() {
		u.LastSignedIn = time.Now().UTC()
	}
	cols := []string{"name", "email", "last_signed_in", "updated_at"}
	if promote {
		cols = append(cols, "role")
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "open_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(u).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	var stored models.User
	if err := s.conn(ctx).Where("open_id = ?", u.OpenID).First(&stored).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	if err := s.conn(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	if err := s.conn(ctx).Where("role = ?", models.RoleAdmin).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return rows, nil
}

// UserNames maps ids to display names for read-time assignment resolution.
func (s *Store) UserNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.User
	if err := s.conn(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}
	for _, u := range rows {
		out[u.ID] = u.Name
	}
	return out, nil
}

func (s *Store) FindUsersByName(ctx context.Context, name string) ([]models.User, error) {
	var rows []models.User
	if err := s.conn(ctx).Where("name = ?", name).Limit(2).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find users by name: %w", err)
	}
	return rows, nil
}
