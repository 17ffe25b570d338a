package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Checkout("created")
	m.DeliveryPlan("routed")
	m.Login("SUCCESS")
	m.ObserveExternal("maps", "geocode", time.Now(), true)
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.Checkout("created")
	m.Checkout("created")
	m.Checkout("validation_error")
	m.DeliveryPlan("partial")
	m.Login("FAILED")
	m.ObserveExternal("razorpay", "capture", time.Now(), false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checkouts("validation_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryPlans("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins("FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExternalCalls("razorpay", "capture", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Checkout("created")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "harvesthub_checkouts_total"))
}
