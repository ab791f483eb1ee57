package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}

	var counter int64
	n := 1000

	For(n, cfg, func(_ int) {
		atomic.AddInt64(&counter, 1)
	})

	assert.Equal(t, int64(n), counter)
}

func TestChunksCoverRangeOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}
	n := 101

	var mu sync.Mutex
	seen := make([]int, n)
	calls := 0
	Chunks(n, cfg, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		for i := start; i < end; i++ {
			seen[i]++
		}
	})

	assert.Equal(t, 3, calls)
	for i, c := range seen {
		assert.Equal(t, 1, c, "index %d", i)
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	calls := 0
	Chunks(100, cfg, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 100, end)
	})
	assert.Equal(t, 1, calls)
}

func TestFor_SmallChunk(t *testing.T) {
	// Small work units fall back to sequential.
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}

	calls := 0
	Chunks(cfg.MinChunkSize, cfg, func(_, _ int) { calls++ })
	assert.Equal(t, 1, calls)
}

func TestFor_Empty(t *testing.T) {
	Chunks(0, DefaultConfig(), func(_, _ int) {
		t.Fatal("called for empty range")
	})
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 1 << 20

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, cfg, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			})
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, cfgSeq, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			})
		}
	})
}
