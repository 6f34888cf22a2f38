package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationRequests.WithLabelValues("HYBRID", OutcomeSuccess))
	RecordRecommendation("HYBRID", OutcomeSuccess, 5, 20*time.Millisecond)
	after := testutil.ToFloat64(RecommendationRequests.WithLabelValues("HYBRID", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestRecordCache(t *testing.T) {
	tests := []struct {
		name   string
		hit    bool
		err    error
		result string
	}{
		{"hit", true, nil, "hit"},
		{"miss", false, nil, "miss"},
		{"error", false, errors.New("redis down"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(CacheRequests.WithLabelValues(tt.result))
			RecordCache(tt.hit, tt.err)
			assert.Equal(t, before+1, testutil.ToFloat64(CacheRequests.WithLabelValues(tt.result)))
		})
	}
}

func TestRecordStrategyFailure(t *testing.T) {
	before := testutil.ToFloat64(StrategyFailures.WithLabelValues("test.strategy"))
	RecordStrategy("test.strategy", time.Millisecond, nil)
	RecordStrategy("test.strategy", time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(StrategyFailures.WithLabelValues("test.strategy")))
}

func TestRecordBatchAndFiltered(t *testing.T) {
	failed := testutil.ToFloat64(BatchRefreshUsers.WithLabelValues("failed"))
	RecordBatchUser(errors.New("x"))
	assert.Equal(t, failed+1, testutil.ToFloat64(BatchRefreshUsers.WithLabelValues("failed")))

	before := testutil.ToFloat64(FilteredCandidates.WithLabelValues("filter.test"))
	RecordFiltered(map[string]int{"filter.test": 3})
	assert.Equal(t, before+3, testutil.ToFloat64(FilteredCandidates.WithLabelValues("filter.test")))
}
