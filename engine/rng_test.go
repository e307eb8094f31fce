package engine

import (
	"testing"

	"github.com/nathoo/branchquest/types"
)

var _ types.Dice = (*RNG)(nil)

// draw runs one dice call on r; used to compare two RNGs call by call.
type draw func(r *RNG) int

var draws = map[string]draw{
	"d6":       func(r *RNG) int { return r.Roll(6) },
	"d100":     func(r *RNG) int { return r.Roll(100) },
	"weighted": func(r *RNG) int { return r.WeightedSelect([]int{70, 20, 10}) },
}

func TestRNG_SameSeedSameSequence(t *testing.T) {
	for name, d := range draws {
		t.Run(name, func(t *testing.T) {
			a, b := NewRNG(2024), NewRNG(2024)
			for i := 0; i < 25; i++ {
				if x, y := d(a), d(b); x != y {
					t.Fatalf("call %d: %d vs %d from the same seed", i, x, y)
				}
			}
		})
	}
}

func TestRNG_RollBounds(t *testing.T) {
	tests := []struct {
		sides   int
		lo, hi  int
		samples int
	}{
		{sides: 20, lo: 1, hi: 20, samples: 500},
		{sides: 2, lo: 1, hi: 2, samples: 100},
		{sides: 1, lo: 1, hi: 1, samples: 10},
		{sides: 0, lo: 1, hi: 1, samples: 10},
		{sides: -4, lo: 1, hi: 1, samples: 10},
	}
	for _, tt := range tests {
		rng := NewRNG(int64(tt.sides) + 11)
		for i := 0; i < tt.samples; i++ {
			if got := rng.Roll(tt.sides); got < tt.lo || got > tt.hi {
				t.Fatalf("Roll(%d) = %d, want within [%d,%d]", tt.sides, got, tt.lo, tt.hi)
			}
		}
		if rng.Position() != int64(tt.samples) {
			t.Errorf("Roll(%d): position %d after %d calls", tt.sides, rng.Position(), tt.samples)
		}
	}
}

func TestRNG_EverySideReachable(t *testing.T) {
	rng := NewRNG(5)
	seen := map[int]bool{}
	for i := 0; i < 400 && len(seen) < 6; i++ {
		seen[rng.Roll(6)] = true
	}
	if len(seen) != 6 {
		t.Errorf("saw faces %v, want all six", seen)
	}
}

func TestRNG_WeightedSelect(t *testing.T) {
	tests := []struct {
		name    string
		weights []int
		want    int // -1: any positive-weight index
	}{
		{"single", []int{9}, 0},
		{"only one positive", []int{0, 4, -1}, 1},
		{"none positive picks last", []int{0, -3}, 1},
		{"mixed", []int{1, 1, 0}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := NewRNG(77)
			for i := 0; i < 30; i++ {
				got := rng.WeightedSelect(tt.weights)
				if tt.want >= 0 && got != tt.want {
					t.Fatalf("got %d, want %d", got, tt.want)
				}
				if tt.want < 0 && tt.weights[got] <= 0 {
					t.Fatalf("picked index %d with weight %d", got, tt.weights[got])
				}
			}
			if rng.Position() != 30 {
				t.Errorf("position = %d, want 30", rng.Position())
			}
		})
	}
}

func TestRNG_WeightedSelectFavoursHeavyOptions(t *testing.T) {
	rng := NewRNG(31337)
	var counts [3]int
	for i := 0; i < 6000; i++ {
		counts[rng.WeightedSelect([]int{60, 30, 10})]++
	}
	if !(counts[0] > counts[1] && counts[1] > counts[2]) {
		t.Errorf("counts %v not ordered by weight", counts)
	}
	if counts[0] < 3000 || counts[0] > 4200 {
		t.Errorf("heaviest option chosen %d/6000 times", counts[0])
	}
}

func TestRNG_RestoreContinuesSequence(t *testing.T) {
	orig := NewRNG(808)
	for i := 0; i < 7; i++ {
		orig.WeightedSelect([]int{1, 2, 3})
	}

	restored := RestoreRNG(orig.Seed(), orig.Position())
	for i := 0; i < 10; i++ {
		if a, b := orig.Roll(12), restored.Roll(12); a != b {
			t.Fatalf("after restore, call %d: %d vs %d", i, a, b)
		}
	}
	if restored.Seed() != 808 || restored.Position() != 17 {
		t.Errorf("restored at seed %d position %d", restored.Seed(), restored.Position())
	}
}

func TestRNG_SeedsDiverge(t *testing.T) {
	a, b := NewRNG(1), NewRNG(2)
	for i := 0; i < 20; i++ {
		if a.Roll(1000) != b.Roll(1000) {
			return
		}
	}
	t.Error("seeds 1 and 2 produced identical rolls")
}
