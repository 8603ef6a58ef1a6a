package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersWithoutPanic(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	if m == nil {
		t.Fatal("expected metrics")
	}

	// Registering the same names twice must panic; a fresh registry must not.
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(registry)
}

func TestMetrics_MigrationCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.MigrationsTotal.WithLabelValues("postgresql", "success").Inc()
	m.MigrationsTotal.WithLabelValues("postgresql", "rolled_back").Inc()
	m.MigrationsTotal.WithLabelValues("postgresql", "success").Inc()

	got := testutil.ToFloat64(m.MigrationsTotal.WithLabelValues("postgresql", "success"))
	if got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveHTTPRequest("POST", "/api/v1/plan", 200, 25*time.Millisecond)
	m.CacheHitsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "schemaflow_http_requests_total") {
		t.Error("http counter missing from exposition")
	}
	if !strings.Contains(body, "schemaflow_history_cache_hits_total 1") {
		t.Error("cache hit counter missing from exposition")
	}
}
