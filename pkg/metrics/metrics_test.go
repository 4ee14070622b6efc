package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordAndExposition(t *testing.T) {
	m := New()

	m.RecordHTTPRequest("GET", "healthz", 200, 5*time.Millisecond)
	m.RecordConnectionEvent("connected")
	m.RecordJoin("lobby", "success")
	m.RecordLeave("lobby", "disconnect")
	m.SetActiveLands("lobby", 3)
	m.SetActiveSlots(12)
	m.ObserveSyncDuration("lobby", 2*time.Millisecond)
	m.ObserveEncodeBytes("json", 512)
	m.RecordAction("move", "success")
	m.RecordEvent("ping")
	m.RecordHealthCheck("success")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "landkeep_joins_total")
	assert.Contains(t, rec.Body.String(), "landkeep_lands_active")
}

func TestRecordConnectionEventAdjustsGauge(t *testing.T) {
	m := New()
	m.RecordConnectionEvent("connected")
	m.RecordConnectionEvent("connected")
	m.RecordConnectionEvent("disconnected")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "landkeep_connections_active 1")
}
