package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ReportMessage carries the report fields the alert templates render.
type ReportMessage struct {
	ReportID       uint
	ClientID       string
	Reason         string
	Status         string
	UpdatedBy      string
	HoursRemaining int
	AppURL         string
}

func (m ReportMessage) Link() string {
	return fmt.Sprintf("%s/reports/%d", m.AppURL, m.ReportID)
}

type layoutData struct {
	Accent     string
	HeaderText string
	Heading    string
	Intro      string
	Rows       []row
	Note       string
	Link       string
	LinkLabel  string
}

type row struct {
	Label     string
	Value     string
	Highlight string
}

var layout = template.Must(template.New("layout").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: {{.Accent}}; color: {{.HeaderText}}; padding: 20px; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0;">{{.Heading}}</h1>
  </div>
  <div style="background-color: #f5f5f5; padding: 20px; border-radius: 0 0 8px 8px;">
    <p>{{.Intro}}</p>
    <div style="background-color: white; padding: 15px; border-left: 4px solid {{.Accent}}; margin: 15px 0;">
{{- range .Rows}}
      <p><strong>{{.Label}}:</strong> {{if .Highlight}}<span style="color: {{.Highlight}}; font-weight: bold;">{{.Value}}</span>{{else}}{{.Value}}{{end}}</p>
{{- end}}
    </div>
{{- if .Note}}
    <p style="color: #636e72; font-size: 14px;">{{.Note}}</p>
{{- end}}
{{- if .Link}}
    <div style="text-align: center; margin-top: 20px;">
      <a href="{{.Link}}" style="background-color: #ff6b35; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">{{.LinkLabel}}</a>
    </div>
{{- end}}
    <hr style="border: none; border-top: 1px solid #dfe6e9; margin: 20px 0;">
    <p style="color: #636e72; font-size: 12px; text-align: center;">N0 Error Tracker - Clinicorp<br>Este é um email automático. Por favor, não responda.</p>
  </div>
</div>`))

func render(d layoutData) (string, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func idRow(id uint) row { return row{Label: "ID do Report", Value: fmt.Sprintf("#%d", id)} }

// CriticalReport renders the alert sent to admins when a report is flagged
// Critical.
func CriticalReport(m ReportMessage) (subject, html string, err error) {
	html, err = render(layoutData{
		Accent:     "#ff6b35",
		HeaderText: "white",
		Heading:    "⚠️ Report Crítico Detectado",
		Intro:      "Um novo report crítico foi registrado no sistema N0 Error Tracker.",
		Rows: []row{
			idRow(m.ReportID),
			{Label: "Cliente", Value: m.ClientID},
			{Label: "Motivo", Value: m.Reason},
			{Label: "Prioridade", Value: "CRÍTICA", Highlight: "#d63031"},
		},
		Note:      "Acesse o sistema para mais detalhes e atualizações.",
		Link:      m.Link(),
		LinkLabel: "Ver Report",
	})
	return fmt.Sprintf("[CRÍTICO] Report de Erro #%d - Ação Imediata Necessária", m.ReportID), html, err
}

func SLAWarning(m ReportMessage) (subject, html string, err error) {
	html, err = render(layoutData{
		Accent:     "#fdcb6e",
		HeaderText: "#2d3436",
		Heading:    "⏰ Alerta de SLA",
		Intro:      "O SLA de um report está próximo do vencimento.",
		Rows: []row{
			idRow(m.ReportID),
			{Label: "Cliente", Value: m.ClientID},
			{Label: "Tempo Restante", Value: fmt.Sprintf("%d horas", m.HoursRemaining), Highlight: "#d63031"},
		},
		Note:      "Por favor, atualize o status do report o mais breve possível para evitar vencimento do SLA.",
		Link:      m.Link(),
		LinkLabel: "Atualizar Report",
	})
	return fmt.Sprintf("[ALERTA] SLA do Report #%d vence em %dh", m.ReportID, m.HoursRemaining), html, err
}

func SLAExpired(m ReportMessage) (subject, html string, err error) {
	html, err = render(layoutData{
		Accent:     "#d63031",
		HeaderText: "white",
		Heading:    "⛔ SLA Vencido",
		Intro:      "Um report ultrapassou o prazo SLA e foi marcado como SLA Vencida.",
		Rows: []row{
			idRow(m.ReportID),
			{Label: "Cliente", Value: m.ClientID},
			{Label: "Status", Value: m.Status, Highlight: "#d63031"},
		},
		Note:      "Priorize a resolução deste report.",
		Link:      m.Link(),
		LinkLabel: "Ver Report",
	})
	return fmt.Sprintf("[SLA VENCIDO] Report #%d - %s", m.ReportID, m.ClientID), html, err
}

func StatusUpdate(m ReportMessage) (subject, html string, err error) {
	html, err = render(layoutData{
		Accent:     "#00b894",
		HeaderText: "white",
		Heading:    "✓ Report Atualizado",
		Intro:      "O status de um report foi atualizado.",
		Rows: []row{
			idRow(m.ReportID),
			{Label: "Cliente", Value: m.ClientID},
			{Label: "Novo Status", Value: m.Status, Highlight: "#00b894"},
			{Label: "Atualizado por", Value: m.UpdatedBy},
		},
		Link:      m.Link(),
		LinkLabel: "Ver Detalhes",
	})
	return fmt.Sprintf("Report #%d - Status Atualizado para: %s", m.ReportID, m.Status), html, err
}

const TestSubject = "[Test] N0 Error Tracker - Email Configuration Test"

func TestMessage() (subject, html string, err error) {
	html, err = render(layoutData{
		Accent:     "#0984e3",
		HeaderText: "white",
		Heading:    "Teste de Configuração",
		Intro:      "Se você recebeu esta mensagem, o envio de emails do N0 Error Tracker está funcionando.",
	})
	return TestSubject, html, err
}
