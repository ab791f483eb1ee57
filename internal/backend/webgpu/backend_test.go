package webgpu

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/torchic/internal/tensor"
)

func TestIsAvailable(t *testing.T) {
	available := IsAvailable()
	t.Logf("WebGPU available: %v", available)
	// Reports the status only; machines without a GPU are fine.
}

func TestNew(t *testing.T) {
	promReg := prometheus.NewRegistry()
	b, err := New(
		WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
		WithRegisterer(promReg),
		WithReadbackTimeout(5*time.Second),
		WithStagingPoolSize(2),
	)
	if err != nil {
		assert.ErrorIs(t, err, ErrDeviceAcquisition)
		t.Skip("WebGPU not available on this system")
	}
	defer b.Release()

	assert.NotEmpty(t, b.Name())
	assert.NotNil(t, b.AdapterInfo())
	assert.Equal(t, 5*time.Second, b.readbackTimeout)
	assert.GreaterOrEqual(t, b.MaxWorkgroupsPerDimension(), uint32(1))
	t.Logf("Backend name: %s", b.Name())

	families, err := promReg.Gather()
	require.NoError(t, err)
	assert.NotNil(t, families)
}

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithReadbackTimeout(0),
		WithReadbackTimeout(-time.Second),
		WithStagingPoolSize(-1),
	} {
		opt(&o)
	}
	assert.Equal(t, DefaultReadbackTimeout, o.readbackTimeout)
	assert.Equal(t, defaultStagingPoolSize, o.stagingPoolSize)

	WithStagingPoolSize(0)(&o)
	assert.Equal(t, 0, o.stagingPoolSize)
}

func TestConstructorsRejectInvalidShapes(t *testing.T) {
	b := newHostBackend()

	_, err := b.Zeros(tensor.Shape{2, -1})
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = b.Full(tensor.Shape{-3}, 1)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = b.Rand(tensor.Shape{-1, 4})
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = b.Identity(-2)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFromHostLengthMismatch(t *testing.T) {
	b := newHostBackend()

	_, err := b.FromHost([]float32{1, 2, 3}, tensor.Shape{2, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataLengthMismatch)
}

func TestReleasedTensorNeedsNoDevice(t *testing.T) {
	b := newHostBackend()

	_, err := b.Read(releasedTensor(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTensorReleased)

	_, err = b.Copy(releasedTensor(2, 2))
	assert.ErrorIs(t, err, ErrTensorReleased)
}

func TestEmptyConstructorsNeedNoDevice(t *testing.T) {
	b := newHostBackend()

	z, err := b.Zeros(tensor.Shape{0})
	require.NoError(t, err)
	assert.Equal(t, 0, z.NumElements())

	id, err := b.Identity(0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 0}, id.Shape())

	h, err := b.FromHost(nil, tensor.Shape{4, 0})
	require.NoError(t, err)
	assert.Nil(t, h.Buffer())

	c, err := b.Copy(h)
	require.NoError(t, err)
	assert.NotEqual(t, h.ID(), c.ID())
}

func TestZeros(t *testing.T) {
	b, _ := newTestBackend(t)

	for _, shape := range []tensor.Shape{{}, {1}, {7}, {3, 5}, {2, 3, 4}} {
		z, err := b.Zeros(shape)
		require.NoError(t, err)

		data := readAll(t, b, z)
		assert.Len(t, data, shape.NumElements())
		for _, v := range data {
			assert.Zero(t, v)
		}
		z.Release()
	}
}

func TestIdentity(t *testing.T) {
	b, _ := newTestBackend(t)

	id, err := b.Identity(3)
	require.NoError(t, err)
	defer id.Release()

	assert.Equal(t, tensor.Shape{3, 3}, id.Shape())
	assert.Equal(t, []float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}, readAll(t, b, id))
}

func TestFromHostRoundTrip(t *testing.T) {
	b, _ := newTestBackend(t)

	// Values that do not survive any lossy path.
	data := []float32{0, 1e-38, 3.4e38, -1.5, 0.1, 123456.789, -7}
	x, err := b.FromHost(data, tensor.Shape{7})
	require.NoError(t, err)
	defer x.Release()

	assert.Equal(t, data, readAll(t, b, x))

	// Mutating the host slice after upload does not reach the device.
	data[0] = 42
	assert.Equal(t, float32(0), readAll(t, b, x)[0])
}

func TestFull(t *testing.T) {
	b, _ := newTestBackend(t)

	x, err := b.Full(tensor.Shape{2, 2}, 2.5)
	require.NoError(t, err)
	defer x.Release()

	assert.Equal(t, []float32{2.5, 2.5, 2.5, 2.5}, readAll(t, b, x))
}

func TestRandRange(t *testing.T) {
	b, _ := newTestBackend(t)

	x, err := b.RandWithSource(tensor.Shape{1000}, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	defer x.Release()

	data := readAll(t, b, x)
	distinct := map[float32]struct{}{}
	for _, v := range data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
		distinct[v] = struct{}{}
	}
	assert.Greater(t, len(distinct), 900)
}

func TestCopyIsIndependent(t *testing.T) {
	b, reg := newTestBackend(t)

	src, err := b.FromHost([]float32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	defer src.Release()

	dst, err := b.Copy(src)
	require.NoError(t, err)
	defer dst.Release()

	assert.NotSame(t, src.Buffer(), dst.Buffer())
	assert.Equal(t, []float32{1, 2, 3}, readAll(t, b, dst))

	// dst survives the release of src.
	neg, err := Sub(b, reg, dst, src)
	require.NoError(t, err)
	defer neg.Release()
	src.Release()

	assert.Equal(t, []float32{0, 0, 0}, readAll(t, b, neg))
	assert.Equal(t, []float32{1, 2, 3}, readAll(t, b, dst))
}

func TestReadReusesStagingBuffers(t *testing.T) {
	b, _ := newTestBackend(t)

	x, err := b.Full(tensor.Shape{16}, 1)
	require.NoError(t, err)
	defer x.Release()

	for range 4 {
		readAll(t, b, x)
	}

	stats := b.StagingStats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, 1, stats.Pooled)
}
