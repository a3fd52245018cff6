package workload

import (
	"fmt"
	"math/rand/v2"
)

// Generator produces random traces. With a hot set, a fraction of the LBAs
// receives most of the traffic.
type Generator struct {
	capacity    uint64
	seed        uint64
	readRatio   float64
	trimRatio   float64
	hotFraction float64
	hotTraffic  float64
}

// MakeGenerator creates a generator of uniform write-only traffic.
func MakeGenerator() Generator {
	return Generator{
		capacity: 1,
		seed:     1,
	}
}

// WithCapacity sets the number of LBAs requests spread over.
func (g Generator) WithCapacity(capacity uint64) Generator {
	g.capacity = capacity
	return g
}

// WithSeed sets the random seed.
func (g Generator) WithSeed(seed uint64) Generator {
	g.seed = seed
	return g
}

// WithReadRatio sets the share of reads among requests.
func (g Generator) WithReadRatio(r float64) Generator {
	g.readRatio = r
	return g
}

// WithTrimRatio sets the share of trims among requests.
func (g Generator) WithTrimRatio(r float64) Generator {
	g.trimRatio = r
	return g
}

// WithHotSpot sends hotTraffic of the requests to the first hotFraction of
// the LBAs.
func (g Generator) WithHotSpot(hotFraction, hotTraffic float64) Generator {
	g.hotFraction = hotFraction
	g.hotTraffic = hotTraffic

	return g
}

// Validate reports a generator that cannot produce a trace.
func (g Generator) Validate() error {
	if g.capacity == 0 {
		return fmt.Errorf("capacity must be positive")
	}

	if g.readRatio < 0 || g.trimRatio < 0 || g.readRatio+g.trimRatio > 1 {
		return fmt.Errorf("read ratio %v and trim ratio %v must be "+
			"non-negative and add up to at most 1", g.readRatio, g.trimRatio)
	}

	if g.hotFraction < 0 || g.hotFraction >= 1 ||
		g.hotTraffic < 0 || g.hotTraffic > 1 {
		return fmt.Errorf("hot spot %v/%v out of range",
			g.hotFraction, g.hotTraffic)
	}

	return nil
}

// Generate returns n requests. Reads and trims only target LBAs written
// earlier in the trace. Written values are unique so that replays can tell
// copies apart.
func (g Generator) Generate(n int) []Request {
	if err := g.Validate(); err != nil {
		panic(err)
	}

	rng := rand.New(rand.NewPCG(g.seed, g.capacity))
	written := make(map[uint64]bool)
	reqs := make([]Request, 0, n)

	for i := 0; i < n; i++ {
		lba := g.pick(rng)
		roll := rng.Float64()

		switch {
		case written[lba] && roll < g.readRatio:
			reqs = append(reqs, Request{Op: OpRead, LBA: lba})
		case written[lba] && roll < g.readRatio+g.trimRatio:
			reqs = append(reqs, Request{Op: OpTrim, LBA: lba})
			delete(written, lba)
		default:
			reqs = append(reqs, Request{
				Op:       OpWrite,
				LBA:      lba,
				Value:    fmt.Sprintf("%d.%d", lba, i),
				HasValue: true,
			})
			written[lba] = true
		}
	}

	return reqs
}

func (g Generator) pick(rng *rand.Rand) uint64 {
	hot := uint64(float64(g.capacity) * g.hotFraction)
	if hot == 0 || hot == g.capacity {
		return rng.Uint64N(g.capacity)
	}

	if rng.Float64() < g.hotTraffic {
		return rng.Uint64N(hot)
	}

	return hot + rng.Uint64N(g.capacity-hot)
}
