package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("llama-3-8b", "success")
	m.ObserveProbe("healthy")
	m.SetRegistryServers(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	for _, want := range []string{"gateway_requests_total", "gateway_probe_total", "gateway_registry_servers"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsIndependentInstances(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveRequest("m1", "success")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	b.Handler().ServeHTTP(rr, req)

	if strings.Contains(rr.Body.String(), `model="m1"`) {
		t.Error("expected independent registries to not share observations")
	}
}
