package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicorp/n0-error-tracker/internal/access"
	"github.com/clinicorp/n0-error-tracker/internal/mailer"
	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// SendTestEmail sends the configuration test message synchronously to to,
// or to the actor's own address when to is empty. Admin only.
func (d *NotificationDispatcher) SendTestEmail(ctx context.Context, actor *models.User, to string) (bool, error) {
	if !access.CanSendTestEmail(actor) {
		return false, ErrAccessDenied
	}
	to = strings.TrimSpace(to)
	if to == "" {
		to = actor.Email
	}
	if to == "" {
		return false, fmt.Errorf("%w: no recipient address", ErrValidation)
	}
	subject, html, err := mailer.TestMessage()
	if err != nil {
		return false, err
	}
	return d.SendEmail(ctx, to, subject, html), nil
}
