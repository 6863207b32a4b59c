package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(backendRequests.WithLabelValues("rooms_all", "ok"))
	ObserveBackend("rooms_all", "ok", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(backendRequests.WithLabelValues("rooms_all", "ok")))

	before = testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "302"))
	IncHTTP("", 302)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("unmatched", "302")))

	before = testutil.ToFloat64(guardDecisions.WithLabelValues("placeholder"))
	IncGuard("placeholder")
	assert.Equal(t, before+1, testutil.ToFloat64(guardDecisions.WithLabelValues("placeholder")))

	before = testutil.ToFloat64(sessionEvents.WithLabelValues("login"))
	IncSession("login")
	assert.Equal(t, before+1, testutil.ToFloat64(sessionEvents.WithLabelValues("login")))
}
