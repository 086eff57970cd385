package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	prommodel "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicorp/n0-error-tracker/internal/config"
	"github.com/clinicorp/n0-error-tracker/internal/handlers"
	"github.com/clinicorp/n0-error-tracker/internal/metrics"
	"github.com/clinicorp/n0-error-tracker/internal/routes"
	"github.com/clinicorp/n0-error-tracker/internal/services"
	"github.com/clinicorp/n0-error-tracker/internal/sources"
	"github.com/clinicorp/n0-error-tracker/internal/store"
	"github.com/clinicorp/n0-error-tracker/internal/testutil"
)

const testSecret = "test-secret"

type fakeSweep struct{ at *time.Time }

func (f fakeSweep) LastSweepAt() *time.Time { return f.at }

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.OpenDB(t)
	st := store.New(db)
	d := services.NewNotificationDispatcher(st, &testutil.FakeMailer{}, "from@example.com", "", 96*time.Hour, nil)
	t.Cleanup(d.Wait)
	engine := services.NewTransitionEngine(st, d, nil)
	users := services.NewUserService(st, []string{"admin-1"}, nil)

	reg := sources.NewRegistry()
	require.NoError(t, reg.Register(&sources.Source{Name: "n8n", Token: "n8n-token", Features: map[string]bool{sources.FeatureCreateReports: true}}))

	swept := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	app := fiber.New()
	routes.Setup(app, &config.Config{JWTSecret: testSecret}, users, routes.Handlers{
		Health:        handlers.NewHealthHandler(func() error { return nil }, fakeSweep{at: &swept}, reg.Names),
		Reports:       handlers.NewReportHandler(services.NewReportService(st, engine, d, nil)),
		Imports:       handlers.NewImportHandler(services.NewImportService(st, nil)),
		Notifications: handlers.NewNotificationHandler(d),
		Users:         handlers.NewUserHandler(users),
		Webhooks:      handlers.NewWebhookHandler(services.NewWebhookService(st, reg, nil)),
	})
	return app
}

func token(t *testing.T, sub, name string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"name":  name,
		"email": sub + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, app *fiber.App, method, path, bearer string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	code, body := do(t, app, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2026-03-02T09:00:00Z", body["lastSweepAt"])
}

func TestReportsRequireToken(t *testing.T) {
	app := setupApp(t)
	code, _ := do(t, app, http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	app := setupApp(t)
	admin := token(t, "admin-1", "Root")
	agent := token(t, "agent-1", "Ana")

	// provision the agent so the name resolves to a user
	code, me := do(t, app, http.MethodGet, "/api/me", agent, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user", me["role"])

	code, _ = do(t, app, http.MethodPost, "/api/reports", agent, map[string]string{"clientId": "c1", "key": "K-1"})
	assert.Equal(t, http.StatusForbidden, code)

	code, created := do(t, app, http.MethodPost, "/api/reports", admin, map[string]string{"clientId": "c1", "key": "K-1", "assignedAgent": "Bruno"})
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 1, created["duplicateCount"])
	report := created["report"].(map[string]interface{})
	path := "/api/reports/" + jsonID(report["id"])

	code, _ = do(t, app, http.MethodPost, "/api/reports", admin, map[string]string{"clientId": "c2", "key": "K-1"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, app, http.MethodGet, path, agent, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, app, http.MethodGet, "/api/reports/9999", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, app, http.MethodGet, "/api/reports/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPut, path, admin, map[string]string{"status": "Resolvido"})
	require.Equal(t, http.StatusOK, code)
	code, body := do(t, app, http.MethodPut, path, admin, map[string]string{"status": "NoPrazo"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, true, body["error"])

	code, detail := do(t, app, http.MethodGet, path, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, detail["statusHistory"], 1)
	assert.Equal(t, "read,write,delete", detail["capabilities"])
}

func TestImportIsAdminOnly(t *testing.T) {
	app := setupApp(t)
	rows := map[string]interface{}{"rows": []map[string]string{
		{"clientId": "c1", "key": "I-1"},
		{"key": "I-2"},
	}}

	code, _ := do(t, app, http.MethodPost, "/api/import/reports", token(t, "agent-1", "Ana"), rows)
	assert.Equal(t, http.StatusForbidden, code)

	code, res := do(t, app, http.MethodPost, "/api/import/reports", token(t, "admin-1", "Root"), rows)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, res["success"])
	assert.EqualValues(t, 1, res["failed"])
}

func TestWebhookTokenCheck(t *testing.T) {
	app := setupApp(t)
	payload := map[string]interface{}{"source": "n8n", "data": map[string]string{"clientId": "c9", "key": "W-1"}}

	code, _ := do(t, app, http.MethodPost, "/api/webhooks/receive", "", payload, "X-Webhook-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, app, http.MethodPost, "/api/webhooks/receive", "", map[string]interface{}{"source": "zapier"}, "X-Webhook-Token", "n8n-token")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, app, http.MethodPost, "/api/webhooks/receive", "", payload, "X-Webhook-Token", "n8n-token")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["eventId"])
	assert.NotNil(t, body["reportId"])
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m prommodel.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestWebhookSourceFromPathKeepsMetricLabel(t *testing.T) {
	app := setupApp(t)
	accepted := func() float64 {
		return counterValue(t, metrics.WebhooksReceivedTotal.WithLabelValues("n8n", "accepted"))
	}
	before := accepted()

	payload := map[string]interface{}{"data": map[string]string{"clientId": "c9", "key": "P-1"}}
	code, _ := do(t, app, http.MethodPost, "/api/webhooks/receive/n8n", "", payload, "X-Webhook-Token", "n8n-token")
	require.Equal(t, http.StatusOK, code)

	for i := 0; i < 5; i++ {
		code, _ = do(t, app, http.MethodPost, "/api/webhooks/receive/zzz", "", payload, "X-Webhook-Token", "n8n-token")
		assert.Equal(t, http.StatusNotFound, code)
	}

	assert.Equal(t, before+1, accepted())
	assert.Zero(t, counterValue(t, metrics.WebhooksReceivedTotal.WithLabelValues("zzz", "accepted")))
}

func TestNotificationEndpoints(t *testing.T) {
	app := setupApp(t)
	admin := token(t, "admin-1", "Root")
	agent := token(t, "agent-1", "Ana")
	_, _ = do(t, app, http.MethodGet, "/api/me", agent, nil)

	code, _ := do(t, app, http.MethodPost, "/api/reports", admin, map[string]string{"clientId": "c1", "key": "K-1", "assignedAgent": "Ana"})
	require.Equal(t, http.StatusCreated, code)

	code, count := do(t, app, http.MethodGet, "/api/notifications/unread-count", agent, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, count["count"])

	code, missing := do(t, app, http.MethodPost, "/api/notifications/999/read", agent, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Notification not found", missing["message"])

	code, res := do(t, app, http.MethodPost, "/api/notifications/read-all", agent, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, res["updated"])

	code, _ = do(t, app, http.MethodPost, "/api/email/test", agent, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func jsonID(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
