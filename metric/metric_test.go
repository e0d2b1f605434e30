package metric

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/c360/authoritystore/errors"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil is ok", nil, OutcomeOK},
		{"bad specifier is invalid", autherrors.BadSpecifier("op", ""), OutcomeInvalid},
		{"not found", autherrors.NotFound("resolver", "op", "x"), OutcomeNotFound},
		{"ambiguous", autherrors.Ambiguous("resolver", "op", "x"), OutcomeAmbiguous},
		{"hierarchy cycle is fatal, not ambiguous",
			autherrors.WrapFatal(autherrors.ErrHierarchyCycle, "hierarchy", "Dive", "expand"), OutcomeFatal},
		{"depth bound is fatal, not ambiguous",
			autherrors.WrapFatal(autherrors.ErrDepthExceeded, "hierarchy", "Dive", "expand"), OutcomeFatal},
		{"anything else is error", errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Outcome(tt.err))
		})
	}
}

func TestObserveResolution(t *testing.T) {
	m := NewMetrics()

	m.ObserveResolution("ResolveAuthority", time.Now(), nil)
	m.ObserveResolution("ResolveAuthority", time.Now(), autherrors.NotFound("resolver", "op", "x"))
	m.ObserveResolution("ResolveItem", time.Now(), nil)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("ResolveAuthority", OutcomeOK)))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("ResolveAuthority", OutcomeNotFound)))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues("ResolveItem", OutcomeOK)))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResolution("op", time.Now(), nil)
		m.ObserveRepositoryCall("FindOne", nil)
	})
}

func TestRegistryHandler(t *testing.T) {
	r := NewRegistry()
	r.Metrics.ObserveRepositoryCall("FindOne", nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "authoritystore_repository_calls_total")
}
