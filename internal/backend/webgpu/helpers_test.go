package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/torchic/internal/optable"
	"github.com/born-ml/torchic/internal/tensor"
)

// newTestBackend acquires a real device and compiles the default tables.
// Tests using it are skipped on machines without WebGPU.
func newTestBackend(t *testing.T) (*Backend, *Registry) {
	t.Helper()

	b, err := New()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	reg, err := NewRegistry(b, optable.Default())
	if err != nil {
		b.Release()
		require.NoError(t, err)
	}
	t.Cleanup(func() {
		reg.Release()
		b.Release()
	})
	return b, reg
}

// newHostBackend returns a Backend with no device. It serves paths that
// must fail or finish before touching the GPU.
func newHostBackend() *Backend {
	return &Backend{
		logger:          zerolog.Nop(),
		metrics:         newMetrics(prometheus.NewRegistry()),
		readbackTimeout: DefaultReadbackTimeout,
		maxWorkgroups:   defaultMaxWorkgroupsPerDimension,
	}
}

// newHostRegistry returns a Registry whose operations carry no pipelines.
func newHostRegistry() *Registry {
	return &Registry{
		unary: map[string]*Operation{
			OpAbs: {name: OpAbs, family: FamilyUnary},
		},
		binary: map[string]*Operation{
			OpAdd: {name: OpAdd, family: FamilyBinary},
		},
		matmul: &Operation{name: "matmul", family: FamilyMatMul},
	}
}

// hostTensor is a tensor with an opaque buffer handle. It passes every
// host-side check but must never reach the device or be released.
func hostTensor(shape ...int) *Tensor {
	t := releasedTensor(shape...)
	if !t.empty() {
		t.buffer = &wgpu.Buffer{}
	}
	return t
}

// releasedTensor is a tensor whose buffer has been returned.
func releasedTensor(shape ...int) *Tensor {
	s := tensor.Shape(shape)
	return &Tensor{id: uuid.New(), shape: s, size: s.ByteSize()}
}

func readAll(t *testing.T, b *Backend, x *Tensor) []float32 {
	t.Helper()
	data, err := b.Read(x)
	require.NoError(t, err)
	return data
}
