package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
	"github.com/clinicorp/n0-error-tracker/internal/store"
	"github.com/clinicorp/n0-error-tracker/internal/testutil"
)

func TestMarkAsReadIsIdempotentAndOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "K-1", "clinic-1", "Ana")

	list, err := f.dispatcher.List(ctx, f.agent.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	require.ErrorIs(t, f.dispatcher.MarkAsRead(ctx, f.admin.ID, id), services.ErrNotFound)

	require.NoError(t, f.dispatcher.MarkAsRead(ctx, f.agent.ID, id))
	require.NoError(t, f.dispatcher.MarkAsRead(ctx, f.agent.ID, id))

	unread, err := f.dispatcher.UnreadCount(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	_, err = f.setStatus(t, f.agent, r.ID, models.StatusCritico)
	require.NoError(t, err)
	n, err := f.dispatcher.MarkAllAsRead(ctx, f.agent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEnsureDeduplicatesRegardlessOfReadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "K-1", "clinic-1", "")
	id := r.ID

	in := services.NotificationInput{
		UserID:   f.admin.ID,
		ReportID: &id,
		Type:     models.NotificationCriticalReport,
		Title:    "t",
		Message:  "m",
	}
	created, err := f.dispatcher.Ensure(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = f.dispatcher.MarkAllAsRead(ctx, f.admin.ID)
	require.NoError(t, err)

	created, err = f.dispatcher.Ensure(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.EqualValues(t, 1, f.countRows(t, &models.Notification{}, "type = ?", models.NotificationCriticalReport))
}

func TestNotifySendsEmailForCriticalReports(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "")
	id := r.ID

	_, err := f.dispatcher.Notify(context.Background(), services.NotificationInput{
		UserID:    f.admin.ID,
		ReportID:  &id,
		Type:      models.NotificationCriticalReport,
		Recipient: f.admin,
		Report:    r,
	})
	require.NoError(t, err)
	f.dispatcher.Wait()

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{f.admin.Email}, sent[0].To)
	assert.Equal(t, "tracker@example.com", sent[0].From)
	assert.True(t, strings.HasPrefix(sent[0].Subject, "[CRÍTICO]"))
	assert.Contains(t, sent[0].HTML, "https://tracker.example.com/reports/")
}

func TestSLAWarningEmailCarriesHoursRemaining(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "")
	id := r.ID
	f.clock.Advance(80 * time.Hour)

	_, err := f.dispatcher.Notify(context.Background(), services.NotificationInput{
		UserID:    f.admin.ID,
		ReportID:  &id,
		Type:      models.NotificationSLAWarning,
		Recipient: f.admin,
		Report:    r,
	})
	require.NoError(t, err)
	f.dispatcher.Wait()

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "vence em 16h")
}

func TestEmailFailureDoesNotFailNotify(t *testing.T) {
	db := testutil.OpenDB(t)
	st := store.New(db)
	mail := &testutil.FakeMailer{Err: errors.New("relay down")}
	d := services.NewNotificationDispatcher(st, mail, "from@example.com", "", 96*time.Hour, nil)
	t.Cleanup(d.Wait)
	admin := testutil.SeedUser(t, db, "admin-1", "Root", models.RoleAdmin)

	report := &models.ErrorReport{ID: 1, ClientID: "c", Key: "k", Status: models.StatusCritico}
	n, err := d.Notify(context.Background(), services.NotificationInput{
		UserID:    admin.ID,
		Type:      models.NotificationCriticalReport,
		Recipient: admin,
		Report:    report,
	})
	require.NoError(t, err)
	assert.NotZero(t, n.ID)

	assert.False(t, d.SendEmail(context.Background(), admin.Email, "s", "<p>x</p>"))
}

func TestSendTestEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dispatcher.SendTestEmail(ctx, f.agent, "")
	require.ErrorIs(t, err, services.ErrAccessDenied)

	ok, err := f.dispatcher.SendTestEmail(ctx, f.admin, "")
	require.NoError(t, err)
	assert.True(t, ok)
	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{f.admin.Email}, sent[0].To)
}

func TestStatusChangeEmailsAssignee(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "Ana")

	_, err := f.setStatus(t, f.admin, r.ID, models.StatusCritico)
	require.NoError(t, err)
	_, err = f.setStatus(t, f.agent, r.ID, models.StatusResolvido)
	require.NoError(t, err)
	f.dispatcher.Wait()

	sent := f.mail.Sent()
	require.Len(t, sent, 1, "the assignee's own change sends nothing")
	assert.Equal(t, []string{f.agent.Email}, sent[0].To)
	assert.Contains(t, sent[0].Subject, "Critico")
}

func TestNotifyEmailDroppedWhenTransactionRollsBack(t *testing.T) {
	f := newFixture(t)
	r := f.create(t, "K-1", "clinic-1", "")
	id := r.ID

	err := f.store.WithTx(context.Background(), func(ctx context.Context) error {
		_, err := f.dispatcher.Notify(ctx, services.NotificationInput{
			UserID:    f.admin.ID,
			ReportID:  &id,
			Type:      models.NotificationCriticalReport,
			Recipient: f.admin,
			Report:    r,
		})
		require.NoError(t, err)
		return errors.New("second admin insert failed")
	})
	require.Error(t, err)
	f.dispatcher.Wait()

	assert.Empty(t, f.mail.Sent())
	assert.Zero(t, f.countRows(t, &models.Notification{}, "report_id = ?", id))
}
