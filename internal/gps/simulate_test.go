package gps

import (
	"math"
	"math/rand/v2"
	"testing"
)

func pulseIndices(train []float64) []int {
	var idx []int
	for i, v := range train {
		if v > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func TestSimulatePulses_NoJitter(t *testing.T) {
	got := pulseIndices(SimulatePulses(100, 0, 1000, nil))
	if len(got) != 10 {
		t.Fatalf("expected 10 pulses, got %d", len(got))
	}
	for k, at := range got {
		if at != k*100 {
			t.Errorf("pulse %d at %d, want %d", k, at, k*100)
		}
	}
}

func TestSimulatePulses_JitterRange(t *testing.T) {
	const (
		fs       = 1000
		jitterMs = 30
		seconds  = 200
	)
	train := SimulatePulses(fs, jitterMs, seconds*fs, rand.New(rand.NewPCG(3, 4)))
	got := pulseIndices(train)

	if len(got) < seconds-1 || len(got) > seconds+1 {
		t.Fatalf("expected about %d pulses, got %d", seconds, len(got))
	}
	limit := jitterMs*fs/1000 + 1
	for _, at := range got {
		nearest := int(math.Round(float64(at)/fs)) * fs
		if d := at - nearest; d > limit || d < -limit {
			t.Errorf("pulse at %d is %d samples from the second boundary", at, d)
		}
	}
}

func TestSimulator_BlockSplitIsTransparent(t *testing.T) {
	const (
		fs = 500
		n  = 20 * fs
	)
	whole := SimulatePulses(fs, 400, n, rand.New(rand.NewPCG(9, 9)))

	sim := NewSimulator(fs, 400, rand.New(rand.NewPCG(9, 9)))
	var blocks []float64
	for len(blocks) < n {
		blocks = append(blocks, sim.Next(min(333, n-len(blocks)))...)
	}

	for i := range whole {
		if whole[i] != blocks[i] {
			t.Fatalf("sample %d: whole=%v blocks=%v", i, whole[i], blocks[i])
		}
	}
}
