package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserverRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver("", reg)
	require.NoError(t, err)

	obs.RecordApply(SourceHTTP, "success", 20*time.Millisecond)
	obs.RecordApply(SourceHTTP, "success", 30*time.Millisecond)
	obs.RecordApply(SourceQueue, "error", time.Millisecond)
	obs.RecordQueueMessage(OutcomeMalformed)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.applyTotal.WithLabelValues(SourceHTTP, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.applyTotal.WithLabelValues(SourceQueue, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.queueMessages.WithLabelValues(OutcomeMalformed)))
	assert.Equal(t, 2, testutil.CollectAndCount(obs.applyDuration))
}

func TestNewPrometheusObserverReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusObserver("wm", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("wm", reg)
	require.NoError(t, err)

	first.RecordQueueMessage(OutcomeProcessed)
	second.RecordQueueMessage(OutcomeProcessed)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.queueMessages.WithLabelValues(OutcomeProcessed)))
}

func TestNilObserverIsNoop(t *testing.T) {
	var obs *PrometheusObserver
	assert.NotPanics(t, func() {
		obs.RecordApply(SourceHTTP, "success", time.Second)
		obs.RecordQueueMessage(OutcomeRejected)
	})
}
