package numerator

import (
	"context"
	"sync"
	"time"
)

// MemoryGenerator keeps counters in process memory.
// Use in tests and single-process tools; values are lost on restart.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryGenerator creates an empty in-memory generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *MemoryGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := cfg.Key(period)
	g.counters[key]++
	return cfg.Format(period, g.counters[key]), nil
}

// Set overrides the last issued value for cfg in period.
func (g *MemoryGenerator) Set(cfg Config, period time.Time, value int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[cfg.Key(period)] = value
}

var _ Generator = (*MemoryGenerator)(nil)
