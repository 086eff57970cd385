package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicorp/n0-error-tracker/internal/logging"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/testutil"
)

func TestDBHandlerPersistsErrors(t *testing.T) {
	db := testutil.OpenDB(t)
	h := logging.NewDBHandler(db, time.Hour)
	t.Cleanup(h.Stop)

	logger := slog.New(h).With("request_id", "req-1")
	logger.Info("ignored")
	logger.Error("sweep failed",
		"report_id", 42,
		"action", "sla_sweep",
		"error", errors.New("boom"),
		"latency_ms", 12.6,
		"check", "expired",
	)
	h.Flush()

	var rows []models.SystemLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "ERROR", row.Level)
	assert.Equal(t, "req-1", row.RequestID)
	require.NotNil(t, row.ReportID)
	assert.Equal(t, "42", *row.ReportID)
	assert.Equal(t, "sla_sweep", row.Action)
	assert.Equal(t, "boom", row.Error)
	assert.Equal(t, 13, row.LatencyMs)

	var extra map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Extra, &extra))
	assert.Equal(t, "expired", extra["check"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := logging.NewMultiHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h)

	logger.Info("hello")
	assert.Contains(t, a.String(), "hello")
	assert.Empty(t, b.String())

	logger.Error("bad")
	assert.Contains(t, b.String(), "bad")
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestPurgeOlderThan(t *testing.T) {
	db := testutil.OpenDB(t)
	now := time.Now().UTC()
	require.NoError(t, db.Create(&[]models.SystemLog{
		{ID: uuid.New(), Timestamp: now.AddDate(0, 0, -40), Level: "ERROR", Message: "old"},
		{ID: uuid.New(), Timestamp: now, Level: "ERROR", Message: "new"},
	}).Error)

	assert.EqualValues(t, 1, logging.PurgeOlderThan(db, now.AddDate(0, 0, -30)))

	var left []models.SystemLog
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Message)
}
