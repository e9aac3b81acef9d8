package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"WikiMover/internal/domain"
)

func TestRecorderObserve(t *testing.T) {
	t.Parallel()

	r := NewRecorder(prometheus.NewRegistry())

	r.Observe(domain.TransferResult{State: domain.StageDone, NeedsReview: true}, time.Second)
	r.Observe(domain.TransferResult{State: domain.StageDone}, time.Second)
	r.Observe(domain.TransferResult{
		State:    domain.StageFailed,
		FailedAt: domain.StepUpload,
		Err:      fmt.Errorf("upload: %w", domain.ErrNetwork),
	}, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Transfers.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Transfers.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StageFailures.WithLabelValues("upload", "network_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RenderDegraded))
	assert.Equal(t, 1, testutil.CollectAndCount(r.StageFailures))
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	assert.NotPanics(t, func() {
		r.Observe(domain.TransferResult{State: domain.StageDone}, 0)
	})
}
