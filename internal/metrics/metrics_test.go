package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSync_RecordsCounters(t *testing.T) {
	m := New()

	m.RecordUpdate("push", 2)
	m.RecordUpdate("poll", 0)
	m.RecordUpdate("push", 4)

	if got := testutil.ToFloat64(m.UpdatesApplied.WithLabelValues("push")); got != 2 {
		t.Fatalf("push updates = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Records); got != 4 {
		t.Fatalf("records gauge = %v, want 4 (last update wins)", got)
	}

	m.RecordFailure("poll")
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("poll")); got != 1 {
		t.Fatalf("poll failures = %v, want 1", got)
	}

	m.RecordPrompt("auth", true)
	m.RecordPrompt("auth", false)
	m.RecordPrompt("auth", false)
	if got := testutil.ToFloat64(m.Prompts.WithLabelValues("auth", "suppressed")); got != 2 {
		t.Fatalf("suppressed prompts = %v, want 2", got)
	}
}

func TestSync_SetTransport(t *testing.T) {
	m := New()

	m.SetTransport(true, false)
	if testutil.ToFloat64(m.Connected) != 1 || testutil.ToFloat64(m.PollingActive) != 0 {
		t.Fatalf("connected/polling gauges wrong after SetTransport(true, false)")
	}
	m.SetTransport(false, true)
	if testutil.ToFloat64(m.Connected) != 0 || testutil.ToFloat64(m.PollingActive) != 1 {
		t.Fatalf("connected/polling gauges wrong after SetTransport(false, true)")
	}
}

func TestSync_NilIsNoop(t *testing.T) {
	var m *Sync
	m.RecordUpdate("push", 1)
	m.RecordFailure("poll")
	m.RecordPrompt("auth", true)
	m.SetTransport(true, false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestSync_HandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordUpdate("refresh", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `pulse_updates_applied_total{origin="refresh"} 1`) {
		t.Fatalf("metrics output missing refresh counter:\n%s", body)
	}
}
