package webgpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferSize represents different buffer size categories for pooling.
type BufferSize int

const (
	// SmallBuffer for staging buffers < 4KB.
	SmallBuffer BufferSize = iota
	// MediumBuffer for staging buffers 4KB-1MB.
	MediumBuffer
	// LargeBuffer for staging buffers > 1MB.
	LargeBuffer
)

const (
	// Size thresholds for buffer categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB

	defaultStagingPoolSize = 8 // Max idle buffers per category
)

// stagingUsage is the usage of readback destinations.
const stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst

// pooledBuffer wraps a staging buffer with its size.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

// StagingStats reports staging pool usage.
type StagingStats struct {
	Allocated uint64
	Released  uint64
	Hits      uint64
	Misses    uint64
	Pooled    int
}

// StagingPool reuses MAP_READ staging buffers across readbacks. Buffers
// are bucketed by size; a pooled buffer serves any request not larger than
// itself. Safe for concurrent use.
type StagingPool struct {
	alloc   func(size uint64) (*wgpu.Buffer, error)
	free    func(*wgpu.Buffer)
	maxIdle int
	metrics *metrics

	small  []*pooledBuffer
	medium []*pooledBuffer
	large  []*pooledBuffer

	mu sync.Mutex

	// Statistics
	totalAllocated uint64
	totalReleased  uint64
	poolHits       uint64
	poolMisses     uint64
}

// NewStagingPool creates a pool that keeps at most maxIdle buffers per size
// category. maxIdle == 0 disables reuse.
func NewStagingPool(device *wgpu.Device, maxIdle int, m *metrics) *StagingPool {
	return newStagingPool(func(size uint64) (*wgpu.Buffer, error) {
		return device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "readback staging",
			Usage: stagingUsage,
			Size:  size,
		})
	}, (*wgpu.Buffer).Release, maxIdle, m)
}

func newStagingPool(alloc func(uint64) (*wgpu.Buffer, error), free func(*wgpu.Buffer), maxIdle int, m *metrics) *StagingPool {
	return &StagingPool{
		alloc:   alloc,
		free:    free,
		maxIdle: maxIdle,
		metrics: m,
	}
}

// Acquire returns a staging buffer of at least size bytes.
func (p *StagingPool) Acquire(size uint64) (*wgpu.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	category := p.categorize(size)
	pool := p.getPool(category)

	for i, pb := range pool {
		if pb.size >= size {
			p.removeFromPool(category, i)
			p.poolHits++
			if p.metrics != nil {
				p.metrics.stagingHits.Inc()
			}
			return pb.buffer, nil
		}
	}

	p.poolMisses++
	if p.metrics != nil {
		p.metrics.stagingMisses.Inc()
	}

	buffer, err := p.alloc(size)
	if err != nil {
		return nil, fmt.Errorf("webgpu: staging buffer of %d bytes: %w", size, err)
	}
	p.totalAllocated++
	return buffer, nil
}

// Release returns a buffer to the pool, or frees it when its category is full.
// The buffer must be unmapped.
func (p *StagingPool) Release(buffer *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalReleased++

	category := p.categorize(size)
	if len(p.getPool(category)) >= p.maxIdle {
		p.free(buffer)
		return
	}
	p.addToPool(category, &pooledBuffer{buffer: buffer, size: size})
}

// Discard frees a buffer that must not be reused, such as one whose mapping
// never completed.
func (p *StagingPool) Discard(buffer *wgpu.Buffer) {
	p.mu.Lock()
	p.totalReleased++
	p.mu.Unlock()

	p.free(buffer)
}

// Clear releases all pooled buffers.
func (p *StagingPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pool := range [][]*pooledBuffer{p.small, p.medium, p.large} {
		for _, pb := range pool {
			p.free(pb.buffer)
		}
	}
	p.small = p.small[:0]
	p.medium = p.medium[:0]
	p.large = p.large[:0]
}

// Stats returns statistics about staging pool usage.
func (p *StagingPool) Stats() StagingStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return StagingStats{
		Allocated: p.totalAllocated,
		Released:  p.totalReleased,
		Hits:      p.poolHits,
		Misses:    p.poolMisses,
		Pooled:    len(p.small) + len(p.medium) + len(p.large),
	}
}

// categorize determines the size category for a buffer.
func (p *StagingPool) categorize(size uint64) BufferSize {
	if size < smallThreshold {
		return SmallBuffer
	}
	if size < mediumThreshold {
		return MediumBuffer
	}
	return LargeBuffer
}

// getPool returns the pool slice for a given category.
func (p *StagingPool) getPool(category BufferSize) []*pooledBuffer {
	switch category {
	case SmallBuffer:
		return p.small
	case MediumBuffer:
		return p.medium
	case LargeBuffer:
		return p.large
	default:
		return nil
	}
}

// addToPool adds a buffer to the appropriate pool category.
func (p *StagingPool) addToPool(category BufferSize, pb *pooledBuffer) {
	switch category {
	case SmallBuffer:
		p.small = append(p.small, pb)
	case MediumBuffer:
		p.medium = append(p.medium, pb)
	case LargeBuffer:
		p.large = append(p.large, pb)
	}
}

// removeFromPool removes a buffer at index i from the appropriate pool.
func (p *StagingPool) removeFromPool(category BufferSize, i int) {
	switch category {
	case SmallBuffer:
		p.small = append(p.small[:i], p.small[i+1:]...)
	case MediumBuffer:
		p.medium = append(p.medium[:i], p.medium[i+1:]...)
	case LargeBuffer:
		p.large = append(p.large[:i], p.large[i+1:]...)
	}
}
