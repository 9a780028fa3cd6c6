package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Verify all metric fields are initialized
	if m.ChatRequestsTotal == nil {
		t.Error("ChatRequestsTotal is nil")
	}
	if m.ChatDurationSeconds == nil {
		t.Error("ChatDurationSeconds is nil")
	}
	if m.IntentPredictionsTotal == nil {
		t.Error("IntentPredictionsTotal is nil")
	}
	if m.IntentConfidence == nil {
		t.Error("IntentConfidence is nil")
	}
	if m.HandlerMatchesTotal == nil {
		t.Error("HandlerMatchesTotal is nil")
	}
	if m.HandbookSearchesTotal == nil {
		t.Error("HandbookSearchesTotal is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.RateLimiterDropped == nil {
		t.Error("RateLimiterDropped is nil")
	}
	if m.ActiveSessions == nil {
		t.Error("ActiveSessions is nil")
	}
}

func TestRecordChat(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordChat("handler", "success", 0.002)
	m.RecordChat("handler", "success", 0.004)
	m.RecordChat("classifier", "success", 0.01)

	got := testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("handler", "success"))
	if got != 2 {
		t.Errorf("Expected 2 handler requests, got %v", got)
	}
}

func TestRecordPrediction(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordPrediction("sapa", 0.95)
	m.RecordPrediction("sapa", 0.4)
	m.RecordPrediction("pamit", 1.0)

	got := testutil.ToFloat64(m.IntentPredictionsTotal.WithLabelValues("sapa"))
	if got != 2 {
		t.Errorf("Expected 2 sapa predictions, got %v", got)
	}
}

func TestRecordHelpers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordHandlerMatch("arithmetic")
	m.RecordHandbookSearch("hit")
	m.RecordHandbookSearch("miss")
	m.RecordHTTPError("invalid_request")
	m.RecordRateLimiterDrop("user")
	m.SetActiveSessions(7)

	if got := testutil.ToFloat64(m.ActiveSessions); got != 7 {
		t.Errorf("Expected 7 active sessions, got %v", got)
	}
}
