package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// AgentScope restricts report queries to one agent's assignments. A report
// belongs to the agent when its assigned_agent_id matches, or, for legacy
// rows without an id, when the assigned_agent name matches.
type AgentScope struct {
	UserID uint
	Name   string
}

type ReportFilter struct {
	Scope         *AgentScope
	Search        string
	Status        models.ReportStatus
	Reason        models.Reason
	Origin        models.Origin
	Priority      models.Priority
	AssignedAgent string
	ClientID      string
	CreatedFrom   *time.Time // inclusive
	CreatedAfter  *time.Time // exclusive
	CreatedUntil  *time.Time // inclusive
	Limit         int
	Offset        int
}

func (f ReportFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Scope != nil {
		q = q.Where("(assigned_agent_id = ? OR (assigned_agent_id IS NULL AND assigned_agent = ?))",
			f.Scope.UserID, f.Scope.Name)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where(`client_id LIKE ? ESCAPE '\'`, "%"+escapeLike(s)+"%")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Reason != "" {
		q = q.Where("reason = ?", f.Reason)
	}
	if f.Origin != "" {
		q = q.Where("origin = ?", f.Origin)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.AssignedAgent != "" {
		q = q.Where("assigned_agent = ?", f.AssignedAgent)
	}
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", f.CreatedFrom.UTC())
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at > ?", f.CreatedAfter.UTC())
	}
	if f.CreatedUntil != nil {
		q = q.Where("created_at <= ?", f.CreatedUntil.UTC())
	}
	return q
}

func escapeLike(s string) string {
	return strings.NewReplacer(`%`, `\%`, `_`, `\_`).Replace(s)
}

// InsertReport fails with ErrDuplicateKey when r.Key is already taken.
func (s *Store) InsertReport(ctx context.Context, r *models.ErrorReport) error {
	db := s.conn(ctx)
	var n int64
	if err := db.Model(&models.ErrorReport{}).Where(map[string]interface{}{"key": r.Key}).Count(&n).Error; err != nil {
		return fmt.Errorf("check report key: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("report key %q: %w", r.Key, ErrDuplicateKey)
	}
	if err := translate(db.Create(r).Error); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id uint) (*models.ErrorReport, error) {
	var r models.ErrorReport
	if err := s.conn(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ListReports returns matches newest first. Limit 0 means no limit.
func (s *Store) ListReports(ctx context.Context, f ReportFilter) ([]models.ErrorReport, error) {
	q := f.apply(s.conn(ctx).Model(&models.ErrorReport{})).Order("created_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var rows []models.ErrorReport
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return rows, nil
}

func (s *Store) CountReports(ctx context.Context, f ReportFilter) (int64, error) {
	var n int64
	if err := f.apply(s.conn(ctx).Model(&models.ErrorReport{})).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// UpdateReport writes the given columns. When expectStatus is non-nil the
// write only applies if the stored status still equals it; a lost race
// returns affected=0 with no error.
func (s *Store) UpdateReport(ctx context.Context, id uint, fields map[string]interface{}, expectStatus *models.ReportStatus) (int64, error) {
	q := s.conn(ctx).Model(&models.ErrorReport{}).Where("id = ?", id)
	if expectStatus != nil {
		q = q.Where("status = ?", *expectStatus)
	}
	res := q.Updates(fields)
	if err := translate(res.Error); err != nil {
		return 0, fmt.Errorf("update report %d: %w", id, err)
	}
	return res.RowsAffected, nil
}

// DeleteReport removes the report and every child row in one transaction.
func (s *Store) DeleteReport(ctx context.Context, id uint) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := db.Where("report_id = ?", id).Delete(&models.StatusHistory{}).Error; err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		if err := db.Where("report_id = ?", id).Delete(&models.ReportComment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := db.Where("report_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		res := db.Delete(&models.ErrorReport{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete report: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type GroupCount struct {
	Key   string `gorm:"column:label" json:"key"`
	Count int64  `gorm:"column:total" json:"count"`
}

// CountBy groups the filtered reports by one of the classification columns.
func (s *Store) CountBy(ctx context.Context, f ReportFilter, column string) ([]GroupCount, error) {
	switch column {
	case "status", "reason", "origin", "priority", "assigned_agent":
	default:
		return nil, fmt.Errorf("count by %q: unsupported column", column)
	}
	var out []GroupCount
	err := f.apply(s.conn(ctx).Model(&models.ErrorReport{})).
		Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Order("total DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	return out, nil
}

// ResolvedSpans returns (createdAt, resolutionDate) for resolved reports.
func (s *Store) ResolvedSpans(ctx context.Context, f ReportFilter) ([][2]time.Time, error) {
	f.Status = models.StatusResolvido
	var rows []models.ErrorReport
	err := f.apply(s.conn(ctx).Model(&models.ErrorReport{})).
		Select("id", "created_at", "resolution_date").
		Where("resolution_date IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolved spans: %w", err)
	}
	spans := make([][2]time.Time, 0, len(rows))
	for _, r := range rows {
		spans = append(spans, [2]time.Time{r.CreatedAt, *r.ResolutionDate})
	}
	return spans, nil
}
