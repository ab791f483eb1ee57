package webgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/born-ml/torchic/internal/tensor"
)

// Dispatch engine. Every call resolves the operation, validates the
// operands against each other and the device limits, allocates the output,
// binds buffers in the family's slot order and submits exactly one compute
// pass. Nothing is allocated on the device before validation succeeds, and
// nothing waits for the GPU: results are observed through Backend.Read.

// Unary applies the unary operation name to x and returns a new tensor of
// the same shape. x is left untouched.
func Unary(b *Backend, reg *Registry, name string, x *Tensor) (*Tensor, error) {
	op, err := reg.Unary(name)
	if err != nil {
		return nil, b.fail(FamilyUnary, err)
	}
	groups := ceilDiv(x.NumElements(), elementwiseWorkgroupSize)
	if err := b.checkGroups(name, groups); err != nil {
		return nil, b.fail(FamilyUnary, err)
	}
	if err := checkLive(x); err != nil {
		return nil, b.fail(FamilyUnary, err)
	}

	out, err := b.allocTensor(x.shape)
	if err != nil {
		return nil, b.fail(FamilyUnary, err)
	}
	if out.empty() {
		return out, nil
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: x.buffer, Offset: 0, Size: x.size},
		{Binding: 1, Buffer: out.buffer, Offset: 0, Size: out.size},
	}
	if err := b.submitPass(op, entries, elementwiseGroups(x.NumElements()), 1, x); err != nil {
		out.Release()
		return nil, b.fail(FamilyUnary, err)
	}
	return out, nil
}

// Binary applies the binary elementwise operation name to x and y.
// The operands must have identical shapes; there is no broadcasting.
func Binary(b *Backend, reg *Registry, name string, x, y *Tensor) (*Tensor, error) {
	op, err := reg.Binary(name)
	if err != nil {
		return nil, b.fail(FamilyBinary, err)
	}
	if !x.shape.Equal(y.shape) {
		return nil, b.fail(FamilyBinary,
			fmt.Errorf("webgpu: %w: %s: %v vs %v", ErrShapeMismatch, name, x.shape, y.shape))
	}
	groups := ceilDiv(x.NumElements(), elementwiseWorkgroupSize)
	if err := b.checkGroups(name, groups); err != nil {
		return nil, b.fail(FamilyBinary, err)
	}
	if err := checkLive(x, y); err != nil {
		return nil, b.fail(FamilyBinary, err)
	}

	out, err := b.allocTensor(x.shape)
	if err != nil {
		return nil, b.fail(FamilyBinary, err)
	}
	if out.empty() {
		return out, nil
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: x.buffer, Offset: 0, Size: x.size},
		{Binding: 1, Buffer: y.buffer, Offset: 0, Size: y.size},
		{Binding: 2, Buffer: out.buffer, Offset: 0, Size: out.size},
	}
	if err := b.submitPass(op, entries, elementwiseGroups(x.NumElements()), 1, x, y); err != nil {
		out.Release()
		return nil, b.fail(FamilyBinary, err)
	}
	return out, nil
}

// MatMul computes x @ y for 2D tensors x [M, K] and y [K, N].
// The result has shape [M, N].
func MatMul(b *Backend, reg *Registry, x, y *Tensor) (*Tensor, error) {
	op, err := reg.MatMul()
	if err != nil {
		return nil, b.fail(FamilyMatMul, err)
	}
	if err := checkMatMulShapes(x.shape, y.shape); err != nil {
		return nil, b.fail(FamilyMatMul, err)
	}

	rows, inner, cols := x.shape[0], x.shape[1], y.shape[1]
	dispatch := rows > 0 && inner > 0 && cols > 0
	if dispatch {
		if err := b.checkGroups(op.name, ceilDiv(rows, matmulTileSize), ceilDiv(cols, matmulTileSize)); err != nil {
			return nil, b.fail(FamilyMatMul, err)
		}
	}
	if err := checkLive(x, y); err != nil {
		return nil, b.fail(FamilyMatMul, err)
	}

	out, err := b.allocTensor(tensor.Shape{rows, cols})
	if err != nil {
		return nil, b.fail(FamilyMatMul, err)
	}
	if !dispatch {
		// Empty output, or a sum over an empty range: the zeroed buffer is the result.
		return out, nil
	}

	params, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "matmul params",
		Contents: matmulParams(rows, inner, cols),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		out.Release()
		return nil, b.fail(FamilyMatMul, fmt.Errorf("webgpu: matmul params: %w", err))
	}
	defer params.Release()

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: x.buffer, Offset: 0, Size: x.size},
		{Binding: 1, Buffer: y.buffer, Offset: 0, Size: y.size},
		{Binding: 2, Buffer: out.buffer, Offset: 0, Size: out.size},
		{Binding: 3, Buffer: params, Offset: 0, Size: matmulParamsSize},
	}
	groupsX, groupsY := matmulGroups(rows, cols)
	if err := b.submitPass(op, entries, groupsX, groupsY, x, y); err != nil {
		out.Release()
		return nil, b.fail(FamilyMatMul, err)
	}
	return out, nil
}

// checkGroups rejects a dispatch whose workgroup count on any axis exceeds
// the device limit.
func (b *Backend) checkGroups(name string, groups ...int) error {
	for axis, n := range groups {
		if n > int(b.maxWorkgroups) {
			return fmt.Errorf("webgpu: %w: %s needs %d workgroups on axis %d, device limit is %d",
				ErrDispatchTooLarge, name, n, axis, b.maxWorkgroups)
		}
	}
	return nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// checkMatMulShapes requires two matrices with matching inner dimensions.
func checkMatMulShapes(a, b tensor.Shape) error {
	if !a.Is2D() || !b.Is2D() {
		return fmt.Errorf("webgpu: %w: matmul requires 2D tensors, got %v and %v", ErrDimension, a, b)
	}
	if a[1] != b[0] {
		return fmt.Errorf("webgpu: %w: matmul shape mismatch: [%d,%d] @ [%d,%d]", ErrDimension, a[0], a[1], b[0], b[1])
	}
	return nil
}

// matmulParams encodes {a_rows, a_cols, b_cols} as little-endian u32s,
// padded to the 16-byte uniform block.
func matmulParams(rows, inner, cols int) []byte {
	params := make([]byte, matmulParamsSize)
	//nolint:gosec // G115: shape dimensions are non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(rows))
	//nolint:gosec // G115: shape dimensions are non-negative
	binary.LittleEndian.PutUint32(params[4:8], uint32(inner))
	//nolint:gosec // G115: shape dimensions are non-negative
	binary.LittleEndian.PutUint32(params[8:12], uint32(cols))
	return params
}

// submitPass binds entries to op and submits a single compute pass of
// groupsX × groupsY workgroups. It returns once the command buffer is queued.
func (b *Backend) submitPass(op *Operation, entries []wgpu.BindGroupEntry, groupsX, groupsY uint32, inputs ...*Tensor) error {
	label := op.family.String() + " " + op.name

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label + " bind group",
		Layout:  op.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("webgpu: %s: bind group: %w", label, err)
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("webgpu: %s: command encoder: %w", label, err)
	}
	defer encoder.Release()

	computePass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
	computePass.SetPipeline(op.pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(groupsX, groupsY, 1)
	computePass.End()
	computePass.Release()

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: %s: finish: %w", label, err)
	}
	defer cmdBuffer.Release()
	b.queue.Submit(cmdBuffer)

	b.metrics.dispatchTotal.WithLabelValues(op.family.String(), op.name).Inc()
	if e := b.logger.Trace(); e.Enabled() {
		ids := make([]string, len(inputs))
		for i, in := range inputs {
			ids[i] = in.id.String()
		}
		e.Str("op", op.name).
			Stringer("family", op.family).
			Strs("inputs", ids).
			Uint32("groups_x", groupsX).
			Uint32("groups_y", groupsY).
			Msg("dispatched")
	}
	return nil
}

// fail records a failed dispatch and returns err.
func (b *Backend) fail(family Family, err error) error {
	b.metrics.dispatchErrors.WithLabelValues(family.String(), errorReason(err)).Inc()
	b.logger.Debug().Err(err).Stringer("family", family).Msg("dispatch failed")
	return err
}
