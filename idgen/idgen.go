// Package idgen generates identifiers for tasks, runs, and recordings.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique string IDs.
type Generator interface {
	Generate() string
}

// NewSequential returns a generator that yields "1", "2", "3", ...
// Sequential IDs keep traces reproducible across runs.
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewGlobal returns a generator backed by xid, unique across processes.
func NewGlobal() Generator {
	return globalGenerator{}
}

type sequentialGenerator struct {
	nextID uint64
}

func (g *sequentialGenerator) Generate() string {
	n := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(n, 10)
}

type globalGenerator struct{}

func (globalGenerator) Generate() string {
	return xid.New().String()
}
