package webgpu

import "errors"

// Errors returned by the WebGPU backend. Callers match them with errors.Is;
// returned errors wrap them with the offending names and shapes.
var (
	// ErrShapeMismatch: binary elementwise operands have different shapes.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDimension: a matmul operand is not 2D or the inner dimensions disagree.
	ErrDimension = errors.New("dimension error")
	// ErrOperationNotFound: the registry has no pipeline under the requested name.
	ErrOperationNotFound = errors.New("operation not found")
	// ErrDataLengthMismatch: host data length differs from the shape's element count.
	ErrDataLengthMismatch = errors.New("data length mismatch")
	// ErrDispatchTooLarge: a dispatch needs more workgroups on one axis than the device allows.
	ErrDispatchTooLarge = errors.New("dispatch too large")
	// ErrTensorReleased: the tensor's buffer was already returned with Release.
	ErrTensorReleased = errors.New("tensor released")
	// ErrInvalidShape: a shape has a negative dimension.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrInvalidKernelBody: a table entry cannot be placed into its kernel skeleton.
	ErrInvalidKernelBody = errors.New("invalid kernel body")
	// ErrDeviceAcquisition: no usable adapter, device or queue.
	ErrDeviceAcquisition = errors.New("device acquisition failed")
	// ErrReadbackTimeout: the device did not confirm the staging buffer mapping in time.
	ErrReadbackTimeout = errors.New("readback timed out")
	// ErrReadbackFailed: the device reported a failed staging buffer mapping.
	ErrReadbackFailed = errors.New("readback failed")
)
