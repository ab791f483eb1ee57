package webgpu

import (
	"fmt"
	"math/rand/v2"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/born-ml/torchic/internal/tensor"
)

// tensorUsage is the usage of every tensor buffer: bindable as storage and
// usable as either end of a buffer copy.
const tensorUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Zeros creates a zero-filled tensor. WebGPU zero-initialises new buffers,
// so no host data is transferred.
func (b *Backend) Zeros(shape tensor.Shape) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	return b.allocTensor(shape)
}

// Rand creates a tensor of independent values uniform in [0, 1).
func (b *Backend) Rand(shape tensor.Shape) (*Tensor, error) {
	return b.RandWithSource(shape, nil)
}

// RandWithSource is Rand drawing from rng. A nil rng uses the global source.
func (b *Backend) RandWithSource(shape tensor.Shape, rng *rand.Rand) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	data := make([]float32, shape.NumElements())
	for i := range data {
		if rng != nil {
			data[i] = rng.Float32()
		} else {
			data[i] = rand.Float32() //nolint:gosec // G404: numeric fill, not security sensitive.
		}
	}
	return b.uploadTensor(shape, data)
}

// Full creates a tensor with every element set to value.
func (b *Backend) Full(shape tensor.Shape, value float32) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = value
	}
	return b.uploadTensor(shape, data)
}

// Identity creates an n×n tensor with ones on the diagonal.
func (b *Backend) Identity(n int) (*Tensor, error) {
	shape := tensor.Shape{n, n}
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1.0
	}
	return b.uploadTensor(shape, data)
}

// FromHost uploads data as a tensor of the given shape.
// len(data) must equal shape.NumElements().
func (b *Backend) FromHost(data []float32, shape tensor.Shape) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("webgpu: %w: got %d values for shape %v (%d elements)",
			ErrDataLengthMismatch, len(data), shape, shape.NumElements())
	}
	return b.uploadTensor(shape, data)
}

// Copy creates a new tensor holding a device-side copy of src.
// The copy is submitted to the queue; no data passes through the host.
func (b *Backend) Copy(src *Tensor) (*Tensor, error) {
	if err := checkLive(src); err != nil {
		return nil, err
	}
	dst, err := b.allocTensor(src.shape)
	if err != nil {
		return nil, err
	}
	if dst.empty() {
		return dst, nil
	}

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "copy " + src.id.String(),
	})
	if err != nil {
		dst.Release()
		return nil, fmt.Errorf("webgpu: copy: command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyBufferToBuffer(src.buffer, 0, dst.buffer, 0, src.size)

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		dst.Release()
		return nil, fmt.Errorf("webgpu: copy: finish: %w", err)
	}
	defer cmdBuffer.Release()
	b.queue.Submit(cmdBuffer)

	return dst, nil
}

func validateShape(shape tensor.Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("webgpu: %w: %w", ErrInvalidShape, err)
	}
	return nil
}

// allocTensor creates a tensor with an uninitialised (zeroed) buffer.
func (b *Backend) allocTensor(shape tensor.Shape) (*Tensor, error) {
	t := &Tensor{
		id:    uuid.New(),
		shape: shape.Clone(),
		size:  shape.ByteSize(),
	}
	if t.empty() {
		return t, nil
	}

	buffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "tensor " + t.id.String(),
		Usage: tensorUsage,
		Size:  t.size,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: allocate %d bytes: %w", t.size, err)
	}
	t.buffer = buffer
	b.metrics.bytesAllocated.Add(float64(t.size))

	return t, nil
}

// uploadTensor creates a tensor whose buffer is initialised with data.
func (b *Backend) uploadTensor(shape tensor.Shape, data []float32) (*Tensor, error) {
	t := &Tensor{
		id:    uuid.New(),
		shape: shape.Clone(),
		size:  shape.ByteSize(),
	}
	if uint64(len(data))*tensor.Float32Size != t.size {
		return nil, fmt.Errorf("webgpu: %w: %d values for %d bytes", ErrDataLengthMismatch, len(data), t.size)
	}
	if t.empty() {
		return t, nil
	}

	buffer, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "tensor " + t.id.String(),
		Contents: float32Bytes(data),
		Usage:    tensorUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: upload %d bytes: %w", t.size, err)
	}
	t.buffer = buffer
	b.metrics.bytesAllocated.Add(float64(t.size))

	return t, nil
}

// float32Bytes views data as bytes without copying.
func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion of a []float32
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*tensor.Float32Size)
}
