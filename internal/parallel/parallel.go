// Package parallel fans independent loop iterations out to worker goroutines.
//
// Callers must only use it for iterations that write disjoint memory: results
// are then identical to the sequential loop, whatever the worker count.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// Sequential is the zero-overhead configuration used by default.
var Sequential = Config{}

// DefaultConfig returns a configuration using every CPU.
func DefaultConfig() Config {
	return Workers(runtime.NumCPU())
}

// Workers returns a configuration with n workers. 0 and 1 give Sequential,
// negative values give DefaultConfig.
func Workers(n int) Config {
	switch {
	case n < 0:
		return DefaultConfig()
	case n < 2:
		return Sequential
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1, // Layer loops iterate over filters or channels, which are few and heavy.
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
