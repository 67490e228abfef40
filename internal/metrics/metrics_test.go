package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimgen/internal/metrics"
)

func TestCollectorsExposeRecordedValues(t *testing.T) {
	m := metrics.New()
	m.ProviderCall("generate", "ok")
	m.ProviderCall("generate", "provider")
	m.Attempt("validation")
	m.Attempt("valid")
	m.Generation(true)
	m.Render("success", 3*time.Second)
	m.HTTPRequest("POST", "/generate-code", 200)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var providerSeries int
	for _, family := range families {
		if family.GetName() == "manimgen_provider_calls_total" {
			providerSeries = len(family.GetMetric())
		}
	}
	assert.Equal(t, 2, providerSeries)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	for _, want := range []string{
		`manimgen_generation_attempts_total{outcome="validation"} 1`,
		`manimgen_generations_total{result="valid"} 1`,
		`manimgen_renders_total{outcome="success"} 1`,
		"manimgen_render_duration_seconds_count 1",
		`manimgen_http_requests_total{code="200",method="POST",route="/generate-code"} 1`,
	} {
		assert.True(t, strings.Contains(text, want), "missing %q", want)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ProviderCall("optimize", "ok")
	m.Attempt("valid")
	m.Generation(false)
	m.Render("timeout", time.Second)
	m.HTTPRequest("GET", "/", 200)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
