package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(c prometheus.Collector) []string {
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)
	var out []string
	for d := range ch {
		out = append(out, d.String())
	}
	return out
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "gymtrack-server")
	require.NotNil(t, c)

	descs := describeAll(c)
	assert.Len(t, descs, 7)
	for _, d := range descs {
		assert.True(t, strings.Contains(d, "gymtrack_db_pool_"), d)
	}
}

func TestPoolStatsCollector_CollectWithoutPool(t *testing.T) {
	c := NewPoolStatsCollector(nil, "gymtrack-server")
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)
	assert.Empty(t, ch)
}

func TestRegisterPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "gymtrack-server"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "gymtrack-server"), "duplicate registration")
}
