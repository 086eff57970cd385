package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/clinicorp/n0-error-tracker/internal/mailer"
	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

// NotificationInput describes one in-app notification. Recipient and Report
// are optional; when both are present and the type is emailable an email is
// attempted after the row is written.
type NotificationInput struct {
	UserID    uint
	ReportID  *uint
	Type      models.NotificationType
	Title     string
	Message   string
	ActionURL string
	Recipient *models.User
	Report    *models.ErrorReport
}

type NotificationDispatcher struct {
	store     *store.Store
	mailer    mailer.Mailer
	from      string
	appURL    string
	expiryAge time.Duration
	now       func() time.Time
	sendTO    time.Duration
	wg        sync.WaitGroup
}

func NewNotificationDispatcher(s *store.Store, m mailer.Mailer, from, appURL string, expiryAge time.Duration, now func() time.Time) *NotificationDispatcher {
	if m == nil {
		m = mailer.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationDispatcher{
		store:     s,
		mailer:    m,
		from:      from,
		appURL:    appURL,
		expiryAge: expiryAge,
		now:       now,
		sendTO:    30 * time.Second,
	}
}

// Notify always writes the notification row. Email delivery, when it
// applies, runs in the background and never affects the result.
func (d *NotificationDispatcher) Notify(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: notification type %q", ErrValidation, in.Type)
	}
	n := &models.Notification{
		UserID:    in.UserID,
		ReportID:  in.ReportID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		ActionURL: in.ActionURL,
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.InsertNotification(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(string(in.Type)).Inc()

	d.maybeEmail(ctx, in)
	return n, nil
}

// Ensure creates the notification only when no row exists yet for its
// (report, user, type) key, read or unread.
func (d *NotificationDispatcher) Ensure(ctx context.Context, in NotificationInput) (bool, error) {
	if in.ReportID == nil {
		return false, fmt.Errorf("%w: dedup requires a report", ErrValidation)
	}
	exists, err := d.store.NotificationExists(ctx, *in.ReportID, in.UserID, in.Type)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := d.Notify(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

func (d *NotificationDispatcher) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return d.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

func (d *NotificationDispatcher) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	return d.store.MarkNotificationRead(ctx, notificationID, userID)
}

func (d *NotificationDispatcher) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	return d.store.MarkAllNotificationsRead(ctx, userID)
}

func (d *NotificationDispatcher) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return d.store.CountUnread(ctx, userID)
}

// Wait blocks until background email sends have finished.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

func (d *NotificationDispatcher) maybeEmail(ctx context.Context, in NotificationInput) {
	if in.Recipient == nil || in.Recipient.Email == "" || in.Report == nil {
		return
	}
	msg := mailer.ReportMessage{
		ReportID: in.Report.ID,
		ClientID: in.Report.ClientID,
		Reason:   string(in.Report.Reason),
		Status:   string(in.Report.Status),
		AppURL:   d.appURL,
	}

	var render func(mailer.ReportMessage) (string, string, error)
	switch {
	case in.Type == models.NotificationCriticalReport:
		render = mailer.CriticalReport
	case in.Type == models.NotificationSLAWarning && in.Report.Status == models.StatusSLAVencida:
		render = mailer.SLAExpired
	case in.Type == models.NotificationSLAWarning:
		msg.HoursRemaining = d.hoursRemaining(in.Report.CreatedAt)
		render = mailer.SLAWarning
	default:
		return
	}

	subject, html, err := render(msg)
	if err != nil {
		slog.Error("render email failed", "report_id", in.Report.ID, "type", string(in.Type), "error", err)
		return
	}
	to := in.Recipient.Email
	d.store.AfterCommit(ctx, func() { d.SendAsync(to, subject, html) })
}

// EmailStatusUpdate tells the assignee that someone else moved their report.
// Inside a transaction the email waits for the commit.
func (d *NotificationDispatcher) EmailStatusUpdate(ctx context.Context, to *models.User, r *models.ErrorReport, updatedBy string) {
	if to == nil || to.Email == "" {
		return
	}
	subject, html, err := mailer.StatusUpdate(mailer.ReportMessage{
		ReportID:  r.ID,
		ClientID:  r.ClientID,
		Status:    string(r.Status),
		UpdatedBy: updatedBy,
		AppURL:    d.appURL,
	})
	if err != nil {
		slog.Error("render email failed", "report_id", r.ID, "type", "status_update", "error", err)
		return
	}
	addr := to.Email
	d.store.AfterCommit(ctx, func() { d.SendAsync(addr, subject, html) })
}

func (d *NotificationDispatcher) hoursRemaining(createdAt time.Time) int {
	left := createdAt.Add(d.expiryAge).Sub(d.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours()))
}

// SendAsync delivers an email in the background.
func (d *NotificationDispatcher) SendAsync(to, subject, html string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTO)
		defer cancel()
		d.SendEmail(ctx, to, subject, html)
	}()
}

// SendEmail never returns an error: failures are logged, counted and
// reported as false.
func (d *NotificationDispatcher) SendEmail(ctx context.Context, to, subject, html string) bool {
	provider := d.mailer.Provider()
	start := time.Now()
	err := d.mailer.Send(ctx, mailer.NewEmail(d.from, []string{to}, mailer.WithSubject(subject), mailer.WithHTML(html)))
	metrics.EmailSendDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		metrics.EmailsSentTotal.WithLabelValues(provider, "skipped").Inc()
		slog.Warn("email not sent: provider not configured", "provider", provider, "subject", subject)
		return false
	case err != nil:
		metrics.EmailsSentTotal.WithLabelValues(provider, "failed").Inc()
		slog.Error("email delivery failed", "provider", provider, "subject", subject, "error", err)
		return false
	}
	metrics.EmailsSentTotal.WithLabelValues(provider, "sent").Inc()
	slog.Info("email sent", "provider", provider, "subject", subject)
	return true
}
