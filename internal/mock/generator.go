package mock

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// pattern shapes one core's synthetic load over ticks.
type pattern string

const (
	patternSteady pattern = "steady"
	patternBurst  pattern = "burst"
	patternWave   pattern = "wave"
	patternIdle   pattern = "idle"
)

var patterns = []pattern{patternSteady, patternBurst, patternWave, patternIdle}

type mockCore struct {
	pattern pattern
	base    float64
	phase   float64
	burstAt int
}

// Generator fabricates plausible per-core CPU usage so the dashboard can be
// demoed without a real host. It satisfies sampler.Reader.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	cores []mockCore
	tick  int
}

// NewGenerator creates a generator reporting the given number of cores.
// Equal seeds produce equal sequences.
func NewGenerator(cores int, seed int64) *Generator {
	if cores < 1 {
		cores = 1
	}
	rng := rand.New(rand.NewSource(seed))
	g := &Generator{
		rng:   rng,
		cores: make([]mockCore, cores),
	}
	for i := range g.cores {
		g.cores[i] = mockCore{
			pattern: patterns[i%len(patterns)],
			base:    10 + rng.Float64()*40,
			phase:   rng.Float64() * 2 * math.Pi,
			burstAt: 5 + rng.Intn(10),
		}
	}
	return g
}

func (g *Generator) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tick++

	out := make([]float64, len(g.cores))
	for i := range g.cores {
		out[i] = clamp(g.next(&g.cores[i]))
	}
	return out, nil
}

func (g *Generator) next(c *mockCore) float64 {
	jitter := (g.rng.Float64() - 0.5) * 6
	switch c.pattern {
	case patternSteady:
		return c.base + jitter
	case patternBurst:
		if g.tick%c.burstAt < 3 {
			return 85 + g.rng.Float64()*15
		}
		return c.base/4 + jitter
	case patternWave:
		return 50 + 40*math.Sin(float64(g.tick)/8+c.phase) + jitter
	default:
		return 1 + g.rng.Float64()*3
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
