package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"villa_dnft/internal/adapters/observability"
)

func TestMetricsHandler(t *testing.T) {
	// record samples so the vectors are exported
	observability.ObserveHTTP("/v1/villas", "GET", 200, 12*time.Millisecond)
	observability.ObserveBuild("inspection", "ok")
	observability.ObserveSubmit("mint", "failed")
	observability.ObserveRefresh("failed")

	rr := httptest.NewRecorder()
	observability.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		`villa_http_requests_total{method="GET",route="/v1/villas",status="200"}`,
		`villa_calls_built_total{op="inspection",result="ok"}`,
		`villa_submissions_total{op="mint",status="failed"}`,
		`villa_refreshes_total{result="failed"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestRegistry_Once(t *testing.T) {
	if observability.Registry() != observability.Registry() {
		t.Fatal("registry should be built once")
	}
}
