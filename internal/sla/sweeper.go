// Package sla runs the periodic SLA sweep: critical-report alerts,
// nearing-expiry warnings and expiry transitions.
package sla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
	"github.com/clinicorp/n0-error-tracker/internal/store"
)

const (
	CheckCritical = "critical"
	CheckNearing  = "nearing"
	CheckExpired  = "expired"
)

type Config struct {
	// WarningAge is the age at which a NoPrazo report enters the
	// nearing-expiry window.
	WarningAge time.Duration
	// ExpiryAge is the age at which a NoPrazo report breaches its SLA.
	ExpiryAge time.Duration
}

func (c Config) withDefaults() Config {
	if c.WarningAge <= 0 {
		c.WarningAge = 72 * time.Hour
	}
	if c.ExpiryAge <= 0 {
		c.ExpiryAge = 96 * time.Hour
	}
	return c
}

// CycleResult summarizes one sweep cycle.
type CycleResult struct {
	CriticalNotified int
	NearingNotified  int
	Expired          int
	ExpiredNotified  int
	Failures         map[string]error
}

type Sweeper struct {
	store      *store.Store
	engine     *services.TransitionEngine
	dispatcher *services.NotificationDispatcher
	cfg        Config
	now        func() time.Time
}

func NewSweeper(s *store.Store, engine *services.TransitionEngine, d *services.NotificationDispatcher, cfg Config, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: s, engine: engine, dispatcher: d, cfg: cfg.withDefaults(), now: now}
}

// RunCycle runs the three checks in order. A failure or panic in one check
// is logged and does not stop the others.
func (s *Sweeper) RunCycle(ctx context.Context) CycleResult {
	res := CycleResult{Failures: map[string]error{}}
	now := s.now().UTC()

	s.guard(CheckCritical, &res, func() error { return s.checkCritical(ctx, &res) })
	s.guard(CheckNearing, &res, func() error { return s.checkNearing(ctx, now, &res) })
	s.guard(CheckExpired, &res, func() error { return s.checkExpired(ctx, now, &res) })
	return res
}

func (s *Sweeper) guard(check string, res *CycleResult, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}
	res.Failures[check] = err
	metrics.SweepCheckFailuresTotal.WithLabelValues(check).Inc()
	slog.Error("sla sweep check failed", "action", "sla_sweep", "check", check, "error", err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("sla_check", check)
		sentry.CaptureException(err)
	})
}

func (s *Sweeper) checkCritical(ctx context.Context, res *CycleResult) error {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil || len(admins) == 0 {
		return err
	}
	reports, err := s.store.ListReports(ctx, store.ReportFilter{Priority: models.PriorityCritical})
	if err != nil {
		return err
	}
	var errs []error
	for i := range reports {
		r := &reports[i]
		n, err := s.ensureForAdmins(ctx, admins, r, models.NotificationCriticalReport,
			fmt.Sprintf("Report Crítico: %s", r.ClientID),
			fmt.Sprintf("O report %s foi marcado como crítico e requer atenção imediata.", r.Key))
		res.CriticalNotified += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkNearing warns about NoPrazo reports aged in (ExpiryAge, WarningAge].
func (s *Sweeper) checkNearing(ctx context.Context, now time.Time, res *CycleResult) error {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil || len(admins) == 0 {
		return err
	}
	after := now.Add(-s.cfg.ExpiryAge)
	until := now.Add(-s.cfg.WarningAge)
	reports, err := s.store.ListReports(ctx, store.ReportFilter{
		Status:       models.StatusNoPrazo,
		CreatedAfter: &after,
		CreatedUntil: &until,
	})
	if err != nil {
		return err
	}
	var errs []error
	for i := range reports {
		r := &reports[i]
		n, err := s.ensureForAdmins(ctx, admins, r, models.NotificationSLAWarning,
			fmt.Sprintf("SLA Próximo do Vencimento: %s", r.ClientID),
			fmt.Sprintf("O report %s tem SLA vencendo em menos de %s.", r.Key, remainingLabel(s.cfg.ExpiryAge-s.cfg.WarningAge)))
		res.NearingNotified += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func remainingLabel(d time.Duration) string {
	return fmt.Sprintf("%d horas", int(d.Hours()))
}

func (s *Sweeper) ensureForAdmins(ctx context.Context, admins []models.User, r *models.ErrorReport, typ models.NotificationType, title, message string) (int, error) {
	created := 0
	id := r.ID
	for i := range admins {
		ok, err := s.dispatcher.Ensure(ctx, services.NotificationInput{
			UserID:    admins[i].ID,
			ReportID:  &id,
			Type:      typ,
			Title:     title,
			Message:   message,
			ActionURL: fmt.Sprintf("/reports/%d", id),
			Recipient: &admins[i],
			Report:    r,
		})
		if err != nil {
			return created, fmt.Errorf("report %d admin %d: %w", id, admins[i].ID, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// checkExpired moves NoPrazo reports older than ExpiryAge to SLAVencida and
// alerts every admin. Once moved, a report no longer matches the selection.
func (s *Sweeper) checkExpired(ctx context.Context, now time.Time, res *CycleResult) error {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return err
	}
	cutoff := now.Add(-s.cfg.ExpiryAge)
	reports, err := s.store.ListReports(ctx, store.ReportFilter{
		Status:       models.StatusNoPrazo,
		CreatedUntil: &cutoff,
	})
	if err != nil {
		return err
	}

	system := models.SystemActor()
	var errs []error
	for i := range reports {
		r := &reports[i]
		notified := 0
		err := s.store.WithTx(ctx, func(ctx context.Context) error {
			updated, err := s.engine.Apply(ctx, services.TransitionRequest{
				ReportID:  r.ID,
				NewStatus: models.StatusSLAVencida,
				Actor:     system,
				Reason:    "SLA expirado automaticamente",
			})
			if err != nil {
				return err
			}
			notified = 0
			id := updated.ID
			for j := range admins {
				if _, err := s.dispatcher.Notify(ctx, services.NotificationInput{
					UserID:    admins[j].ID,
					ReportID:  &id,
					Type:      models.NotificationSLAWarning,
					Title:     fmt.Sprintf("SLA Vencido: %s", updated.ClientID),
					Message:   fmt.Sprintf("O report %s ultrapassou o prazo SLA.", updated.Key),
					ActionURL: fmt.Sprintf("/reports/%d", id),
					Recipient: &admins[j],
					Report:    updated,
				}); err != nil {
					return err
				}
				notified++
			}
			return nil
		})
		switch {
		case errors.Is(err, services.ErrStatusConflict), errors.Is(err, services.ErrInvalidTransition):
			slog.Info("sla expiry skipped: report changed concurrently", "report_id", r.ID)
		case err != nil:
			errs = append(errs, fmt.Errorf("report %d: %w", r.ID, err))
		default:
			res.Expired++
			res.ExpiredNotified += notified
			metrics.SweepTransitionsTotal.Inc()
			slog.Info("report SLA expired", "report_id", r.ID, "client_id", r.ClientID)
		}
	}
	return errors.Join(errs...)
}
