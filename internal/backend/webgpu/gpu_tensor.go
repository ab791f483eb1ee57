package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"

	"github.com/born-ml/torchic/internal/tensor"
)

// Tensor is a shape plus an exclusively owned GPU buffer of
// shape.NumElements() float32 values.
//
// Tensors are never modified in place by this package: every operation
// returns a new Tensor. Empty tensors (a zero dimension) carry no buffer.
type Tensor struct {
	id     uuid.UUID    // Diagnostics only
	shape  tensor.Shape // Tensor dimensions
	buffer *wgpu.Buffer // GPU-resident data, nil when empty
	size   uint64       // Buffer size in bytes, always shape.ByteSize()
}

// ID returns the diagnostic identifier of the tensor. It is unique per
// constructed tensor and never reused.
func (t *Tensor) ID() uuid.UUID {
	return t.id
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() tensor.Shape {
	return t.shape.Clone()
}

// NumElements returns the number of float32 elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the size of the tensor buffer in bytes.
func (t *Tensor) ByteSize() uint64 {
	return t.size
}

// Buffer returns the underlying GPU buffer. It stays owned by the tensor.
func (t *Tensor) Buffer() *wgpu.Buffer {
	return t.buffer
}

// Release returns the buffer to the GPU allocator. The tensor must not be
// used afterwards; releasing twice is a no-op.
func (t *Tensor) Release() {
	if t.buffer != nil {
		t.buffer.Release()
		t.buffer = nil
	}
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, shape=%v)", t.id, t.shape)
}

func (t *Tensor) empty() bool {
	return t.size == 0
}

// released reports a non-empty tensor whose buffer is gone.
func (t *Tensor) released() bool {
	return t.buffer == nil && t.size > 0
}

func checkLive(tensors ...*Tensor) error {
	for _, t := range tensors {
		if t.released() {
			return fmt.Errorf("webgpu: %w: %s", ErrTensorReleased, t.id)
		}
	}
	return nil
}
