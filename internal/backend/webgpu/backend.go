// Package webgpu implements GPU-resident float32 tensors on WebGPU.
//
// A Backend owns the device and its single queue. A Registry compiles the
// operation tables into compute pipelines once. Tensors are created against
// the Backend, and the dispatch functions take the Backend, the Registry and
// the operand tensors explicitly; nothing here is global.
package webgpu

import (
	"fmt"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DefaultReadbackTimeout bounds Backend.Read when no timeout option is given.
const DefaultReadbackTimeout = 30 * time.Second

// defaultMaxWorkgroupsPerDimension is the WebGPU default limit, used when the
// device reports none.
const defaultMaxWorkgroupsPerDimension = 65535

// Backend is the device context: adapter, logical device and submission
// queue. It is shared by pointer and must not be copied.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Device info
	adapterInfo *wgpu.AdapterInfo

	// Largest workgroup count per dispatch axis.
	maxWorkgroups uint32

	logger          zerolog.Logger
	metrics         *metrics
	readbackTimeout time.Duration

	// Staging buffers for readback.
	staging *StagingPool
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	logger          zerolog.Logger
	registerer      prometheus.Registerer
	powerPreference wgpu.PowerPreference
	readbackTimeout time.Duration
	stagingPoolSize int
}

func defaultOptions() options {
	return options{
		logger:          zerolog.Nop(),
		powerPreference: wgpu.PowerPreferenceHighPerformance,
		readbackTimeout: DefaultReadbackTimeout,
		stagingPoolSize: defaultStagingPoolSize,
	}
}

// WithLogger sets the logger used for adapter, compilation and dispatch events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the backend metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPowerPreference selects between low-power and high-performance adapters.
func WithPowerPreference(pref wgpu.PowerPreference) Option {
	return func(o *options) { o.powerPreference = pref }
}

// WithReadbackTimeout bounds how long Read waits for the device. Zero or
// negative values keep the default.
func WithReadbackTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readbackTimeout = d
		}
	}
}

// WithStagingPoolSize sets how many idle staging buffers are kept for reuse.
// Zero disables pooling.
func WithStagingPoolSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.stagingPoolSize = n
		}
	}
}

// New acquires an adapter, a device and its queue.
// Failures wrap ErrDeviceAcquisition and are not retried.
func New(opts ...Option) (backend *Backend, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: %w: native library not available: %v", ErrDeviceAcquisition, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: o.powerPreference,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: request adapter: %w", ErrDeviceAcquisition, adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "torchic device: " + adapterInfo.Name,
	})
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: request device: %w", ErrDeviceAcquisition, deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: device has no queue", ErrDeviceAcquisition)
	}

	maxWorkgroups := device.GetLimits().Limits.MaxComputeWorkgroupsPerDimension
	if maxWorkgroups == 0 {
		maxWorkgroups = defaultMaxWorkgroupsPerDimension
	}

	m := newMetrics(o.registerer)
	b := &Backend{
		instance:        instance,
		adapter:         adapter,
		device:          device,
		queue:           queue,
		adapterInfo:     &adapterInfo,
		maxWorkgroups:   maxWorkgroups,
		logger:          o.logger,
		metrics:         m,
		readbackTimeout: o.readbackTimeout,
	}
	b.staging = NewStagingPool(device, o.stagingPoolSize, m)

	b.logger.Info().
		Str("adapter", adapterInfo.Name).
		Str("vendor", adapterInfo.VendorName).
		Interface("backend", adapterInfo.BackendType).
		Uint32("max_workgroups", maxWorkgroups).
		Msg("webgpu device acquired")

	return b, nil
}

// Release releases the staging pool, the queue, the device and the adapter.
// Tensors and registries created against the backend must be released first.
func (b *Backend) Release() {
	if b.staging != nil {
		b.staging.Clear()
		b.staging = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfo {
	return b.adapterInfo
}

// MaxWorkgroupsPerDimension returns the device limit on workgroups per
// dispatch axis. Larger dispatches fail with ErrDispatchTooLarge.
func (b *Backend) MaxWorkgroupsPerDimension() uint32 {
	return b.maxWorkgroups
}

// Logger returns the backend logger.
func (b *Backend) Logger() zerolog.Logger {
	return b.logger
}

// StagingStats returns staging pool statistics.
func (b *Backend) StagingStats() StagingStats {
	return b.staging.Stats()
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}
