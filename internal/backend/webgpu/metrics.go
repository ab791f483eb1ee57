package webgpu

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors of one Backend. They are registered on the
// Registerer passed with WithRegisterer, or on a private registry.
type metrics struct {
	dispatchTotal   *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
	readbackSeconds prometheus.Histogram
	bytesAllocated  prometheus.Counter
	stagingHits     prometheus.Counter
	stagingMisses   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torchic_dispatch_total",
			Help: "Compute passes submitted, by operation family and name.",
		}, []string{"family", "op"}),
		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "torchic_dispatch_errors_total",
			Help: "Dispatches that failed, by family and reason.",
		}, []string{"family", "reason"}),
		readbackSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "torchic_readback_seconds",
			Help:    "Time spent blocked on host readback.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		bytesAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "torchic_tensor_bytes_allocated_total",
			Help: "Bytes of tensor buffers allocated on the device.",
		}),
		stagingHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "torchic_staging_pool_hits_total",
			Help: "Readbacks served by a pooled staging buffer.",
		}),
		stagingMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "torchic_staging_pool_misses_total",
			Help: "Readbacks that had to allocate a staging buffer.",
		}),
	}
}

// errorReason maps a dispatch error onto a low-cardinality label value.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrDimension):
		return "dimension"
	case errors.Is(err, ErrOperationNotFound):
		return "not_found"
	case errors.Is(err, ErrDispatchTooLarge):
		return "too_large"
	case errors.Is(err, ErrTensorReleased):
		return "released"
	default:
		return "device"
	}
}
