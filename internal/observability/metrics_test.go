package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/product-lists")
	req := httptest.NewRequest(http.MethodGet, "/product-lists", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `catalog_http_requests_total{code="418",route="/product-lists"} 1`)
	require.Contains(t, body, `catalog_http_request_duration_seconds_bucket{route="/product-lists"`)
}

func TestMetricsCountsCatalogEvents(t *testing.T) {
	metrics := NewMetrics()

	metrics.StatusFallback()
	metrics.StatusFallback()
	metrics.SupplyDegraded("hubs")

	body := scrape(t, metrics)
	require.Contains(t, body, "catalog_status_fallback_total 2")
	require.Contains(t, body, `catalog_supply_degraded_total{lookup="hubs"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics

	metrics.StatusFallback()
	metrics.SupplyDegraded("overflow")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
