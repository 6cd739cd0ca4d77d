package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(MutationsTotal.WithLabelValues("rating", "error"))
	RecordMutation("rating", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(MutationsTotal.WithLabelValues("rating", "error")))
}

func TestRecordHTTPRequest_UnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordHTTPRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordRecompute(t *testing.T) {
	before := testutil.ToFloat64(AggregateRecomputeTotal.WithLabelValues("manual", "success"))
	RecordRecompute("manual", 2*time.Millisecond, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(AggregateRecomputeTotal.WithLabelValues("manual", "success")))
}
