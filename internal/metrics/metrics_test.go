package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.SetOutstanding(3)
	m.Alert("save_failed", false)
	m.Ingest("monitor", errors.New("boom"))
	m.Event()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"magnetctl_outstanding_saves 3",
		`magnetctl_alerts_total{kind="save_failed",outcome="suppressed"} 1`,
		`magnetctl_ingest_total{result="error",source="monitor"} 1`,
		"magnetctl_events_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	New().Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rr.Code, rr.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SetOutstanding(1)
	m.SetTorrents(2)
	m.Alert("generic", true)
	m.Ingest("cli", nil)
	m.Event()
}

func TestUnknownPathIsNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	New().Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
