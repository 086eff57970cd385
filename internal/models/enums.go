package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

var ErrInvalidEnum = errors.New("invalid enum value")

// ReportStatus is the SLA lifecycle state of an error report.
type ReportStatus string

const (
	StatusNoPrazo    ReportStatus = "NoPrazo"
	StatusSLAVencida ReportStatus = "SLAVencida"
	StatusCritico    ReportStatus = "Critico"
	StatusResolvido  ReportStatus = "Resolvido"
)

var reportStatuses = []ReportStatus{StatusNoPrazo, StatusSLAVencida, StatusCritico, StatusResolvido}

func (s ReportStatus) Valid() bool { return contains(reportStatuses, s) }

func (s ReportStatus) Value() (driver.Value, error) { return enumValue(s, s.Valid()) }

func (s *ReportStatus) Scan(src any) error { return scanEnum(s, src) }

func ParseReportStatus(v string) (ReportStatus, error) { return parseEnum[ReportStatus](v) }

type Origin string

const (
	OriginOnboarding Origin = "Onboarding"
	OriginProduction Origin = "Production"
	OriginTesting    Origin = "Testing"
	OriginOther      Origin = "Other"
)

var origins = []Origin{OriginOnboarding, OriginProduction, OriginTesting, OriginOther}

func (o Origin) Valid() bool { return contains(origins, o) }

func (o Origin) Value() (driver.Value, error) { return enumValue(o, o.Valid()) }

func (o *Origin) Scan(src any) error { return scanEnum(o, src) }

func ParseOrigin(v string) (Origin, error) { return parseEnum[Origin](v) }

type Reason string

const (
	ReasonClientBase Reason = "ClientBase"
	ReasonModelador  Reason = "Modelador"
	ReasonAnalista   Reason = "Analista"
	ReasonEngenharia Reason = "Engenharia"
	ReasonEmAnalise  Reason = "EmAnalise"
	ReasonOutro      Reason = "Outro"
)

var reasons = []Reason{ReasonClientBase, ReasonModelador, ReasonAnalista, ReasonEngenharia, ReasonEmAnalise, ReasonOutro}

func (r Reason) Valid() bool { return contains(reasons, r) }

func (r Reason) Value() (driver.Value, error) { return enumValue(r, r.Valid()) }

func (r *Reason) Scan(src any) error { return scanEnum(r, src) }

func ParseReason(v string) (Reason, error) { return parseEnum[Reason](v) }

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool { return contains(priorities, p) }

func (p Priority) Value() (driver.Value, error) { return enumValue(p, p.Valid()) }

func (p *Priority) Scan(src any) error { return scanEnum(p, src) }

func ParsePriority(v string) (Priority, error) { return parseEnum[Priority](v) }

type NotificationType string

const (
	NotificationCriticalReport NotificationType = "critical_report"
	NotificationSLAWarning     NotificationType = "sla_warning"
	NotificationStatusChanged  NotificationType = "status_changed"
	NotificationAssignedToYou  NotificationType = "assigned_to_you"
	NotificationSystem         NotificationType = "system"
)

var notificationTypes = []NotificationType{
	NotificationCriticalReport, NotificationSLAWarning, NotificationStatusChanged,
	NotificationAssignedToYou, NotificationSystem,
}

func (t NotificationType) Valid() bool { return contains(notificationTypes, t) }

func (t NotificationType) Value() (driver.Value, error) { return enumValue(t, t.Valid()) }

func (t *NotificationType) Scan(src any) error { return scanEnum(t, src) }

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type enum interface {
	~string
	Valid() bool
}

func contains[T comparable](set []T, v T) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}

func parseEnum[T enum](v string) (T, error) {
	e := T(v)
	if !e.Valid() {
		return e, fmt.Errorf("%w: %q", ErrInvalidEnum, v)
	}
	return e, nil
}

func enumValue[T ~string](v T, valid bool) (driver.Value, error) {
	if !valid {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEnum, string(v))
	}
	return string(v), nil
}

// scanEnum rejects values read from storage that fall outside the closed set.
func scanEnum[T enum](dst *T, src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*dst = ""
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidEnum, src)
	}
	parsed, err := parseEnum[T](raw)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}
