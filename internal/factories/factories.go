// Package factories generates synthetic restaurants, menus, staff and order
// history for seeding a store.
package factories

import (
	"math"
	"math/rand"

	"github.com/jaswdr/faker"
)

// Factory draws every random value from one seeded source, so the same seed
// produces the same restaurant and history apart from generated IDs.
type Factory struct {
	fake faker.Faker
	rng  *rand.Rand
}

func New(seed int64) *Factory {
	return &Factory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// between returns a uniform value in [lo, hi).
func (f *Factory) between(lo, hi float64) float64 {
	return lo + f.rng.Float64()*(hi-lo)
}

// poisson draws from a Poisson distribution with mean lambda (Knuth).
func (f *Factory) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda > 30 {
		// normal approximation keeps large means cheap
		n := int(math.Round(lambda + f.rng.NormFloat64()*math.Sqrt(lambda)))
		return max(0, n)
	}
	limit := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= f.rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// selectWeighted picks an index with probability proportional to its weight.
func (f *Factory) selectWeighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return f.rng.Intn(len(weights))
	}
	r := f.rng.Float64() * total
	sum := 0.0
	for i, w := range weights {
		sum += w
		if r <= sum {
			return i
		}
	}
	return len(weights) - 1
}
