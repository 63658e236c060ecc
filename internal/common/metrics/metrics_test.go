package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheus_RecordSection(t *testing.T) {
	before := testutil.ToFloat64(ReportSectionsProcessed.WithLabelValues("houle", "fallback"))

	Prometheus{}.RecordSection(context.Background(), "houle", "fallback", 150*time.Millisecond)

	after := testutil.ToFloat64(ReportSectionsProcessed.WithLabelValues("houle", "fallback"))
	assert.Equal(t, before+1, after)
}

func TestPrometheus_RecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(GenerationRequests.WithLabelValues("rate_limited"))
	Prometheus{}.RecordGeneration(context.Background(), "rate_limited")
	assert.Equal(t, before+1, testutil.ToFloat64(GenerationRequests.WithLabelValues("rate_limited")))
}
