package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clinicorp/n0-error-tracker/internal/models"
)

const flushThreshold = 50

// DBHandler is an slog.Handler that batches ERROR+ records into system_logs.
// Handlers derived through WithAttrs share the parent's buffer.
type DBHandler struct {
	sink  *dbSink
	attrs []slog.Attr
}

type dbSink struct {
	db       *gorm.DB
	mu       sync.Mutex
	buffer   []models.SystemLog
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

func NewDBHandler(db *gorm.DB, interval time.Duration) *DBHandler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s := &dbSink{
		db:       db,
		buffer:   make([]models.SystemLog, 0, flushThreshold),
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.flushLoop()
	return &DBHandler{sink: s}
}

func (s *dbSink) flushLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.stopped)
	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *dbSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, flushThreshold)
	s.mu.Unlock()

	// Logged at WARN so the failure is not fed back into this handler.
	if err := s.db.CreateInBatches(batch, flushThreshold).Error; err != nil {
		slog.Warn("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes anything still buffered and waits for the loop to exit.
func (h *DBHandler) Stop() {
	h.sink.once.Do(func() { close(h.sink.done) })
	<-h.sink.stopped
}

// Flush writes the current buffer synchronously.
func (h *DBHandler) Flush() {
	h.sink.flush()
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: ts.UTC(),
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "report_id":
			s := a.Value.String()
			entry.ReportID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			entry.LatencyMs = latencyMs(a.Value)
		default:
			extra[a.Key] = a.Value.Resolve().Any()
		}
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.mu.Lock()
	h.sink.buffer = append(h.sink.buffer, entry)
	needFlush := len(h.sink.buffer) >= flushThreshold
	h.sink.mu.Unlock()

	if needFlush {
		go h.sink.flush()
	}
	return nil
}

func latencyMs(v slog.Value) int {
	switch v.Kind() {
	case slog.KindFloat64:
		return int(math.Round(v.Float64()))
	case slog.KindInt64:
		return int(v.Int64())
	case slog.KindDuration:
		return int(v.Duration().Milliseconds())
	}
	return 0
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &DBHandler{sink: h.sink, attrs: merged}
}

// WithGroup is flattened; system_logs has no notion of groups.
func (h *DBHandler) WithGroup(string) slog.Handler {
	return h
}
