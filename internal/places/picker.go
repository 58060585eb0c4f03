package places

import (
	"math/rand"
	"sync"
	"time"
)

// Picker selects which results make it into the reply carousel: a random
// sample without replacement. The randomness source is injectable so tests
// can seed it.
type Picker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPicker builds a picker around the given source. A nil source gets a
// time-seeded one.
func NewPicker(rnd *rand.Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Picker{rnd: rnd}
}

// Pick returns up to n places sampled without replacement. The input slice is
// not modified.
func (p *Picker) Pick(results []Place, n int) []Place {
	if n <= 0 || len(results) == 0 {
		return nil
	}
	sample := make([]Place, len(results))
	copy(sample, results)

	p.mu.Lock()
	p.rnd.Shuffle(len(sample), func(i, j int) {
		sample[i], sample[j] = sample[j], sample[i]
	})
	p.mu.Unlock()

	if n < len(sample) {
		sample = sample[:n]
	}
	return sample
}
