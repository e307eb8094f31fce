package engine

import "math/rand/v2"

// RNG is a deterministic dice source addressed by (seed, position). Each call
// draws from a generator keyed on the current position, so restoring only
// needs the two numbers stored in the player record.
type RNG struct {
	seed int64
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed}
}

// RestoreRNG recreates the RNG exactly as it was after position calls.
func RestoreRNG(seed, position int64) *RNG {
	return &RNG{seed: seed, pos: position}
}

func (r *RNG) next() *rand.Rand {
	src := rand.NewPCG(uint64(r.seed), mix(uint64(r.pos)))
	r.pos++
	return rand.New(src)
}

// mix is the splitmix64 finalizer; it spreads consecutive positions apart.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Roll returns a random integer in [1, sides]. Sides below 1 roll as 1.
func (r *RNG) Roll(sides int) int {
	if sides < 1 {
		sides = 1
	}
	return r.next().IntN(sides) + 1
}

// WeightedSelect returns an index chosen by weighted random selection.
// Non-positive weights are never selected; if none are positive the last
// index is returned.
func (r *RNG) WeightedSelect(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		r.pos++
		return len(weights) - 1
	}
	roll := r.next().IntN(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}
