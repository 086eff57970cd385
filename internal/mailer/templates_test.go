package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalReportTemplate(t *testing.T) {
	subject, html, err := CriticalReport(ReportMessage{
		ReportID: 42,
		ClientID: "clinic-<7>",
		Reason:   "Engenharia",
		AppURL:   "https://tracker.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "[CRÍTICO] Report de Erro #42 - Ação Imediata Necessária", subject)
	assert.Contains(t, html, "#42")
	assert.Contains(t, html, "https://tracker.example.com/reports/42")
	assert.Contains(t, html, "clinic-&lt;7&gt;", "client id must be escaped")
	assert.NotContains(t, html, "clinic-<7>")
}

func TestSLAWarningSubjectCarriesHours(t *testing.T) {
	subject, html, err := SLAWarning(ReportMessage{ReportID: 3, ClientID: "c", HoursRemaining: 18})
	require.NoError(t, err)
	assert.Equal(t, "[ALERTA] SLA do Report #3 vence em 18h", subject)
	assert.Contains(t, html, "18 horas")
}

func TestStatusUpdateTemplate(t *testing.T) {
	subject, html, err := StatusUpdate(ReportMessage{ReportID: 9, ClientID: "c", Status: "Resolvido", UpdatedBy: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Report #9 - Status Atualizado para: Resolvido", subject)
	assert.Contains(t, html, "Ana")
}

func TestTestMessageHasNoLink(t *testing.T) {
	subject, html, err := TestMessage()
	require.NoError(t, err)
	assert.Equal(t, TestSubject, subject)
	assert.False(t, strings.Contains(html, "<a href"))
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	msg := string(buildMessage(NewEmail("from@example.com", []string{"a@example.com", "b@example.com"},
		WithSubject("[CRÍTICO] x"), WithHTML("<p>hi</p>"))))

	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?UTF-8?q?")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestNoopReportsNotConfigured(t *testing.T) {
	err := Noop{}.Send(context.Background(), NewEmail("a", []string{"b"}))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
