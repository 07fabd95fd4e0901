package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	for _, cfg := range []Config{Sequential, Workers(1), Workers(4), DefaultConfig()} {
		var counter int64
		n := 1000

		For(n, func(_ int) {
			atomic.AddInt64(&counter, 1)
		}, cfg)

		assert.Equal(t, int64(n), counter, "config %+v", cfg)
	}
}

func TestFor_DisjointWritesMatchSequential(t *testing.T) {
	n := 37
	seq := make([]int, n)
	par := make([]int, n)

	For(n, func(i int) { seq[i] = i * i }, Sequential)
	For(n, func(i int) { par[i] = i * i }, Workers(8))

	assert.Equal(t, seq, par)
}

func TestWorkers(t *testing.T) {
	assert.False(t, Workers(0).Enabled)
	assert.False(t, Workers(1).Enabled)
	assert.True(t, Workers(2).Enabled)
	assert.Equal(t, Sequential, Workers(1))
	assert.Equal(t, DefaultConfig(), Workers(-1))
}
