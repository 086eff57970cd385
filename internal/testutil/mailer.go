package testutil

import (
	"context"
	"sync"

	"github.com/clinicorp/n0-error-tracker/internal/mailer"
)

// FakeMailer records every email it is asked to send.
type FakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (f *FakeMailer) Send(_ context.Context, e mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *FakeMailer) Provider() string { return "fake" }

func (f *FakeMailer) Sent() []mailer.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mailer.Email, len(f.sent))
	copy(out, f.sent)
	return out
}
