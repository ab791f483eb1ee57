package webgpu

import (
	"context"
	"fmt"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	minPollInterval = 50 * time.Microsecond
	maxPollInterval = 2 * time.Millisecond
)

// Read copies t back to host memory. It blocks until every dispatch
// submitted before the call has completed, or until the backend's readback
// timeout expires.
func (b *Backend) Read(t *Tensor) ([]float32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readbackTimeout)
	defer cancel()
	return b.ReadContext(ctx, t)
}

// ReadContext is Read bounded by ctx instead of the backend timeout.
// Cancellation and expiry both return an error wrapping ErrReadbackTimeout.
//
// Storage buffers cannot be mapped, so the tensor is first copied into a
// MAP_READ staging buffer. Queue ordering guarantees the copy observes the
// results of earlier dispatches.
func (b *Backend) ReadContext(ctx context.Context, t *Tensor) ([]float32, error) {
	if t.empty() {
		return []float32{}, nil
	}
	if err := checkLive(t); err != nil {
		return nil, err
	}
	start := time.Now()

	staging, err := b.staging.Acquire(t.size)
	if err != nil {
		return nil, err
	}

	if err := b.copyToStaging(t, staging); err != nil {
		b.staging.Discard(staging)
		return nil, err
	}

	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, t.size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	if err != nil {
		b.staging.Discard(staging)
		return nil, fmt.Errorf("webgpu: %w: map %s: %w", ErrReadbackFailed, t.id, err)
	}

	status, err := awaitSignal(ctx, done, func() { b.device.Poll(false, nil) })
	if err != nil {
		// The mapping may still complete later; the buffer is not reusable.
		b.staging.Discard(staging)
		b.logger.Warn().Err(err).Stringer("tensor", t.id).Msg("readback abandoned")
		return nil, err
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		b.staging.Discard(staging)
		return nil, fmt.Errorf("webgpu: %w: map %s: status %v", ErrReadbackFailed, t.id, status)
	}

	out := make([]float32, t.NumElements())
	copy(float32Bytes(out), staging.GetMappedRange(0, uint(t.size)))
	staging.Unmap()
	b.staging.Release(staging, staging.GetSize())

	elapsed := time.Since(start)
	b.metrics.readbackSeconds.Observe(elapsed.Seconds())
	b.logger.Trace().
		Stringer("tensor", t.id).
		Uint64("bytes", t.size).
		Dur("elapsed", elapsed).
		Msg("readback")

	return out, nil
}

// copyToStaging encodes and submits a copy of t into staging.
func (b *Backend) copyToStaging(t *Tensor, staging *wgpu.Buffer) error {
	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "readback " + t.id.String(),
	})
	if err != nil {
		return fmt.Errorf("webgpu: readback: command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyBufferToBuffer(t.buffer, 0, staging, 0, t.size)

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: readback: finish: %w", err)
	}
	defer cmdBuffer.Release()
	b.queue.Submit(cmdBuffer)

	return nil
}

// awaitSignal calls poll until signal delivers a value or ctx is done.
// The wait between polls doubles from minPollInterval up to maxPollInterval.
func awaitSignal[T any](ctx context.Context, signal <-chan T, poll func()) (T, error) {
	var zero T
	interval := minPollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		poll()

		select {
		case v := <-signal:
			return v, nil
		default:
		}

		select {
		case v := <-signal:
			return v, nil
		case <-ctx.Done():
			return zero, fmt.Errorf("webgpu: %w: %w", ErrReadbackTimeout, ctx.Err())
		case <-timer.C:
		}

		interval = min(interval*2, maxPollInterval)
		timer.Reset(interval)
	}
}
