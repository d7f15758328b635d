package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	// Verify all metrics are non-nil (registered via promauto on package init).
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HealthzUp)
	assert.NotNil(t, ReadyzUp)
	assert.NotNil(t, PageAttemptsTotal)
	assert.NotNil(t, PagesFetchedTotal)
	assert.NotNil(t, BackoffSeconds)
	assert.NotNil(t, SessionBootstrapsTotal)
	assert.NotNil(t, RequestBudgetRemaining)
	assert.NotNil(t, ItemsSavedTotal)
	assert.NotNil(t, ItemsSkippedTotal)
	assert.NotNil(t, SinkErrorsTotal)
	assert.NotNil(t, RunsTotal)
	assert.NotNil(t, RunDuration)
	assert.NotNil(t, NotificationFailuresTotal)
	assert.NotNil(t, NotificationDuration)
	assert.NotNil(t, SchedulerNextRunTimestamp)
	assert.NotNil(t, SchedulerSkipsTotal)
}

func TestLabelledCounters(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(ItemsSkippedTotal.WithLabelValues("metrics_test"))
	ItemsSkippedTotal.WithLabelValues("metrics_test").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(ItemsSkippedTotal.WithLabelValues("metrics_test")), 0.001)
}
