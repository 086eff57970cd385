package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
	"github.com/clinicorp/n0-error-tracker/internal/store"
	"github.com/clinicorp/n0-error-tracker/internal/testutil"
)

type fixture struct {
	db         *gorm.DB
	store      *store.Store
	clock      *testutil.Clock
	mail       *testutil.FakeMailer
	dispatcher *services.NotificationDispatcher
	engine     *services.TransitionEngine
	reports    *services.ReportService
	imports    *services.ImportService
	admin      *models.User
	agent      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	st := store.New(db)
	clock := testutil.NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	mail := &testutil.FakeMailer{}
	d := services.NewNotificationDispatcher(st, mail, "tracker@example.com", "https://tracker.example.com", 96*time.Hour, clock.Now)
	t.Cleanup(d.Wait)
	engine := services.NewTransitionEngine(st, d, clock.Now)

	return &fixture{
		db:         db,
		store:      st,
		clock:      clock,
		mail:       mail,
		dispatcher: d,
		engine:     engine,
		reports:    services.NewReportService(st, engine, d, clock.Now),
		imports:    services.NewImportService(st, clock.Now),
		admin:      testutil.SeedUser(t, db, "admin-1", "Root", models.RoleAdmin),
		agent:      testutil.SeedUser(t, db, "agent-1", "Ana", models.RoleUser),
	}
}

func (f *fixture) create(t *testing.T, key, client, agent string) *models.ErrorReport {
	t.Helper()
	res, err := f.reports.Create(context.Background(), f.admin, &dto.CreateReportRequest{
		ClientID:      client,
		Key:           key,
		AssignedAgent: agent,
	})
	require.NoError(t, err)
	return res.Report
}

func (f *fixture) setStatus(t *testing.T, actor *models.User, id uint, status models.ReportStatus) (*models.ErrorReport, error) {
	t.Helper()
	s := string(status)
	return f.reports.Update(context.Background(), actor, id, &dto.UpdateReportRequest{Status: &s})
}

func (f *fixture) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
