package services_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

func TestCreateRejectsNonAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.Create(context.Background(), f.agent, &dto.CreateReportRequest{ClientID: "clinic-1", Key: "K-1"})
	require.ErrorIs(t, err, services.ErrAccessDenied)
	assert.Zero(t, f.countRows(t, &models.ErrorReport{}, ""))
}

func TestCreateValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reports.Create(ctx, f.admin, &dto.CreateReportRequest{ClientID: "  ", Key: "K-1"})
	require.ErrorIs(t, err, services.ErrValidation)
	_, err = f.reports.Create(ctx, f.admin, &dto.CreateReportRequest{ClientID: "c", Key: "K-2", Origin: "Somewhere"})
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Zero(t, f.countRows(t, &models.ErrorReport{}, ""))
}

func TestCreateDefaultsAndDuplicateCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.reports.Create(ctx, f.admin, &dto.CreateReportRequest{ClientID: "clinic-1", Key: "K-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoPrazo, first.Report.Status)
	assert.Equal(t, models.OriginOnboarding, first.Report.Origin)
	assert.Equal(t, models.ReasonEmAnalise, first.Report.Reason)
	assert.Equal(t, models.PriorityMedium, first.Report.Priority)
	assert.Equal(t, f.admin.ID, first.Report.CreatedBy)
	assert.Nil(t, first.Report.ResolutionDate)
	assert.EqualValues(t, 1, first.DuplicateCount)

	second, err := f.reports.Create(ctx, f.admin, &dto.CreateReportRequest{ClientID: "clinic-1", Key: "K-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.DuplicateCount)
}

func TestCreateDuplicateKeyKeepsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "K-1", "clinic-1", "")

	_, err := f.reports.Create(ctx, f.admin, &dto.CreateReportRequest{ClientID: "clinic-2", Key: "K-1"})
	require.ErrorIs(t, err, services.ErrDuplicateKey)

	detail, err := f.reports.Get(ctx, f.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "clinic-1", detail.Report.ClientID)
	assert.EqualValues(t, 1, f.countRows(t, &models.ErrorReport{}, ""))
}

func TestStatusHistoryMatchesTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "K-1", "clinic-1", "")

	f.clock.Advance(time.Hour)
	_, err := f.setStatus(t, f.admin, r.ID, models.StatusCritico)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.setStatus(t, f.admin, r.ID, models.StatusCritico)
	require.NoError(t, err, "same-status update is a plain field update")

	f.clock.Advance(time.Hour)
	resolved, err := f.setStatus(t, f.admin, r.ID, models.StatusResolvido)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolutionDate)
	resolvedAt := *resolved.ResolutionDate

	detail, err := f.reports.Get(ctx, f.admin, r.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 2)

	latest, earliest := detail.History[0], detail.History[1]
	require.NotNil(t, earliest.PreviousStatus)
	assert.Equal(t, models.StatusNoPrazo, *earliest.PreviousStatus)
	assert.Equal(t, models.StatusCritico, earliest.NewStatus)
	require.NotNil(t, latest.PreviousStatus)
	assert.Equal(t, models.StatusCritico, *latest.PreviousStatus)
	assert.Equal(t, models.StatusResolvido, latest.NewStatus)
	assert.Equal(t, "Root", latest.ChangedByName)
	assert.Equal(t, f.admin.ID, latest.ChangedBy)

	f.clock.Advance(time.Hour)
	again, err := f.reports.Update(ctx, f.admin, r.ID, &dto.UpdateReportRequest{ResolutionDescription: strPtr("fixed upstream")})
	require.NoError(t, err)
	require.NotNil(t, again.ResolutionDate)
	assert.True(t, again.ResolutionDate.Equal(resolvedAt), "resolution date must not move")
	assert.Equal(t, "fixed upstream", again.ResolutionDescription)
	assert.True(t, again.UpdatedAt.Equal(f.clock.Now()))
	assert.EqualValues(t, 2, f.countRows(t, &models.StatusHistory{}, "report_id = ?", r.ID))
}

func TestResolvedIsTerminal(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "")
	_, err := f.setStatus(t, f.admin, r.ID, models.StatusResolvido)
	require.NoError(t, err)

	_, err = f.setStatus(t, f.admin, r.ID, models.StatusNoPrazo)
	require.ErrorIs(t, err, services.ErrInvalidTransition)
	assert.EqualValues(t, 1, f.countRows(t, &models.StatusHistory{}, "report_id = ?", r.ID))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "")
	_, err := f.reports.Update(context.Background(), f.admin, r.ID, &dto.UpdateReportRequest{Status: strPtr("Reaberto")})
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestStatusChangeNotifiesActorOnly(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "Ana")

	_, err := f.setStatus(t, f.agent, r.ID, models.StatusCritico)
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.countRows(t, &models.Notification{}, "type = ? AND user_id = ?", models.NotificationStatusChanged, f.agent.ID))
	assert.Zero(t, f.countRows(t, &models.Notification{}, "type = ? AND user_id = ?", models.NotificationStatusChanged, f.admin.ID))

	list, err := f.dispatcher.List(context.Background(), f.agent.ID, false, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "Report clinic-1 status changed to Critico", list[0].Title)
	assert.Equal(t, "/reports/"+itoa(r.ID), list[0].ActionURL)
}

func TestAgentSeesOnlyOwnReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.create(t, "K-1", "clinic-1", "Ana")
	other := f.create(t, "K-2", "clinic-1", "Bruno")
	f.create(t, "K-3", "clinic-2", "")

	queries := []dto.ListReportsQuery{
		{},
		{Search: "clinic"},
		{AssignedAgent: "Bruno"},
		{Status: "NoPrazo"},
		{StartDate: "2026-01-01", EndDate: "2026-12-31"},
	}
	for _, q := range queries {
		q := q
		rows, err := f.reports.List(ctx, f.agent, &q)
		require.NoError(t, err)
		for _, r := range rows {
			assert.Equal(t, "Ana", r.AssignedAgent, "query %+v leaked report %s", q, r.Key)
		}
	}

	all, err := f.reports.List(ctx, f.admin, &dto.ListReportsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.reports.Get(ctx, f.agent, other.ID)
	require.ErrorIs(t, err, services.ErrAccessDenied)
	_, err = f.reports.Get(ctx, f.agent, 9999)
	require.ErrorIs(t, err, services.ErrNotFound)

	detail, err := f.reports.Get(ctx, f.agent, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "read,write", detail.Capabilities)
}

func TestAgentCannotUpdateOrDeleteOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.create(t, "K-2", "clinic-1", "Bruno")
	mine := f.create(t, "K-1", "clinic-1", "Ana")

	_, err := f.setStatus(t, f.agent, other.ID, models.StatusResolvido)
	require.ErrorIs(t, err, services.ErrAccessDenied)
	require.ErrorIs(t, f.reports.Delete(ctx, f.agent, mine.ID), services.ErrAccessDenied)

	require.NoError(t, f.reports.Delete(ctx, f.admin, mine.ID))
	require.ErrorIs(t, f.reports.Delete(ctx, f.admin, mine.ID), services.ErrNotFound)
}

func TestAssignmentFollowsUserNotName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "K-1", "clinic-1", "")

	updated, err := f.reports.Update(ctx, f.admin, r.ID, &dto.UpdateReportRequest{AssignedAgentID: &f.agent.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAgentID)
	assert.Equal(t, "Ana", updated.AssignedAgent)
	assert.EqualValues(t, 1, f.countRows(t, &models.Notification{}, "type = ? AND user_id = ?", models.NotificationAssignedToYou, f.agent.ID))

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.agent.ID).Update("name", "Ana Souza").Error)
	renamed := *f.agent
	renamed.Name = "Ana Souza"

	detail, err := f.reports.Get(ctx, &renamed, r.ID)
	require.NoError(t, err, "rename must not orphan the assignment")
	assert.Equal(t, "Ana Souza", detail.Report.AssignedAgent)

	_, err = f.reports.Update(ctx, f.admin, r.ID, &dto.UpdateReportRequest{AssignedAgentID: uintPtr(4242)})
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "K-1", "clinic-1", "Ana")
	other := f.create(t, "K-2", "clinic-1", "Bruno")

	c, err := f.reports.AddComment(ctx, f.agent, r.ID, "  called the clinic  ")
	require.NoError(t, err)
	assert.Equal(t, "called the clinic", c.Comment)
	assert.Equal(t, "Ana", c.UserName)

	_, err = f.reports.AddComment(ctx, f.agent, r.ID, " ")
	require.ErrorIs(t, err, services.ErrValidation)
	_, err = f.reports.AddComment(ctx, f.agent, other.ID, "hi")
	require.ErrorIs(t, err, services.ErrAccessDenied)

	comments, err := f.reports.ListComments(ctx, f.agent, r.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestStatsAndAverageResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "K-1", "clinic-1", "Ana")
	b := f.create(t, "K-2", "clinic-2", "Ana")
	f.create(t, "K-3", "clinic-3", "Bruno")

	f.clock.Advance(10 * time.Hour)
	_, err := f.setStatus(t, f.admin, a.ID, models.StatusResolvido)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Hour)
	_, err = f.setStatus(t, f.admin, b.ID, models.StatusResolvido)
	require.NoError(t, err)

	hours, err := f.reports.AverageResolutionHours(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 15, hours)

	stats, err := f.reports.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	byStatus := map[string]int64{}
	for _, e := range stats.ByStatus {
		byStatus[e.Key] = e.Count
	}
	assert.Equal(t, map[string]int64{"Resolvido": 2, "NoPrazo": 1}, byStatus)

	agentStats, err := f.reports.Stats(ctx, f.agent)
	require.NoError(t, err)
	assert.EqualValues(t, 2, agentStats.Total)
}

func TestBulkUpdateStatusIsPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "K-1", "clinic-1", "")
	b := f.create(t, "K-2", "clinic-1", "")
	_, err := f.setStatus(t, f.admin, b.ID, models.StatusResolvido)
	require.NoError(t, err)

	res, err := f.reports.BulkUpdateStatus(ctx, f.admin, &dto.BulkStatusRequest{IDs: []uint{a.ID, b.ID, 777}, Status: "Critico"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)

	_, err = f.reports.BulkUpdateStatus(ctx, f.agent, &dto.BulkStatusRequest{IDs: []uint{a.ID}, Status: "Critico"})
	require.ErrorIs(t, err, services.ErrAccessDenied)

	del, err := f.reports.BulkDelete(ctx, f.admin, []uint{a.ID, 777})
	require.NoError(t, err)
	assert.Equal(t, 1, del.Success)
	assert.Equal(t, 1, del.Failed)
}

func TestExportFilename(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "HS/01", "Clinica Sol", "")

	exp, err := f.reports.Export(context.Background(), f.admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "report-Clinica_Sol-HS_01", exp.Filename)
	assert.Equal(t, r.ID, exp.Report.ID)
}

func uintPtr(v uint) *uint { return &v }

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
