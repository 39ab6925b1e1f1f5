package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	origReg := prometheus.DefaultRegisterer
	origGather := prometheus.DefaultGatherer
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGather
	})
	return reg
}

func TestNoop(t *testing.T) {
	var m Recorder = Noop{}
	m.CacheHit()
	m.CacheMiss()
	m.OracleError()
	m.ObserveRequest("GET", "/status", "200", 0.01)
}

func TestProm_CacheCounters(t *testing.T) {
	reg := withTestRegistry(t)
	m := NewProm("itemgate")
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.OracleError()

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(families, "itemgate_credential_cache_hits_total"))
	assert.Equal(t, 1.0, counterValue(families, "itemgate_credential_cache_misses_total"))
	assert.Equal(t, 1.0, counterValue(families, "itemgate_credential_oracle_errors_total"))
}

func TestProm_ObserveRequest(t *testing.T) {
	reg := withTestRegistry(t)
	m := NewProm("itemgate")
	m.ObserveRequest("GET", "/{ownerName}/{ownerId}/item/filelist", "200", 0.02)

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.True(t, hasMetric(families, "itemgate_http_requests_total",
		map[string]string{"method": "GET", "route": "/{ownerName}/{ownerId}/item/filelist", "status": "200"}))
	assert.True(t, hasMetric(families, "itemgate_http_request_duration_seconds",
		map[string]string{"method": "GET", "route": "/{ownerName}/{ownerId}/item/filelist"}))
}

func TestHandler(t *testing.T) {
	withTestRegistry(t)
	m := NewProm("itemgate")
	m.CacheHit()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "itemgate_credential_cache_hits_total")
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
		}
	}
	return -1
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(want) == 0 {
		return true
	}
	found := 0
	for _, pair := range pairs {
		if val, ok := want[pair.GetName()]; ok && pair.GetValue() == val {
			found++
		}
	}
	return found == len(want)
}
