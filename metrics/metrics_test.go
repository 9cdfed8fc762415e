package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_ObserveSync(t *testing.T) {
	r := New()
	r.ObserveSync("coinbase", 10*time.Millisecond, nil)
	r.ObserveSync("coinbase", 10*time.Millisecond, nil)
	r.ObserveSync("coinbase", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SyncRuns.WithLabelValues("coinbase", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SyncRuns.WithLabelValues("coinbase", "error")))
}

func TestRegistry_CountRecords(t *testing.T) {
	r := New()
	r.CountRecords("ingested", 3)
	r.CountRecords("ingested", 0)
	r.CountRecords("rejected", 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.RecordsProcessed.WithLabelValues("ingested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RecordsProcessed.WithLabelValues("rejected")))
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	// none of these may panic
	r.ObserveSync("coinbase", time.Second, nil)
	r.CountRecords("ingested", 1)
	r.CountGain("BTC")
	r.CountPrice(nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.CountGain("BTC")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `costbasis_gains_recorded_total{asset="BTC"} 1`))
}
