package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// probeMux mimics the routes the app serves.
func probeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return mux
}

// withGlobalTracer installs an in-memory tracer provider for the duration of
// the test.
func withGlobalTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	m, reader := newTestMetrics(t)
	exp := withGlobalTracer(t)
	handler := Middleware(m)(probeMux())

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/wp-login.php", http.StatusNotFound},
		{"/favicon.ico", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
		}
	}

	met := findMetric(collect(t, reader), "lexibot.http.request.duration")
	if met == nil {
		t.Fatal("http duration metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric is %T, want histogram", met.Data)
	}
	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		route, _ := dp.Attributes.Value(attribute.Key("route"))
		counts[route.AsString()] += dp.Count
	}
	if counts["GET /healthz"] != 1 || counts["GET /readyz"] != 1 {
		t.Errorf("route counts = %v, want one per probe", counts)
	}
	if counts[routeUnmatched] != 2 {
		t.Errorf("unmatched count = %d, want 2", counts[routeUnmatched])
	}
	if len(counts) != 3 {
		t.Errorf("distinct routes = %d, want 3 (raw paths must not leak into labels)", len(counts))
	}

	spans := exp.GetSpans()
	if len(spans) != len(tests) {
		t.Fatalf("spans = %d, want %d", len(spans), len(tests))
	}
	if spans[0].Name != "HTTP GET /healthz" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "HTTP GET /healthz")
	}
}

func TestMiddleware_SpanStatusAttribute(t *testing.T) {
	m, _ := newTestMetrics(t)
	exp := withGlobalTracer(t)

	rec := httptest.NewRecorder()
	Middleware(m)(probeMux()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	var status int64
	for _, a := range spans[0].Attributes {
		if a.Key == "http.response.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("span status attribute = %d, want 503", status)
	}
}

func TestMiddleware_CorrelationID(t *testing.T) {
	m, _ := newTestMetrics(t)
	withGlobalTracer(t)

	const incoming = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceparent string
		want        string
	}{
		{"continues caller trace", "00-" + incoming + "-00f067aa0ba902b7-01", incoming},
		{"starts new trace", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = CorrelationID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if len(seen) != 32 {
				t.Fatalf("correlation ID %q is not a trace ID", seen)
			}
			if tt.want != "" && seen != tt.want {
				t.Errorf("correlation ID = %q, want %q", seen, tt.want)
			}
			if got := rec.Header().Get("X-Correlation-ID"); got != seen {
				t.Errorf("X-Correlation-ID = %q, want %q", got, seen)
			}
		})
	}
}
