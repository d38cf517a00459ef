package sdf

import (
	"testing"

	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
)

func TestStepsFormula(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 3, 4: 3, 5: 4, 16: 5, 17: 6}
	for dim, want := range cases {
		if got := Steps(dim); got != want {
			t.Errorf("Steps(%d) = %d, want %d", dim, got, want)
		}
	}
}

func TestStep0InitializesOnlyEmptyCells(t *testing.T) {
	g := grid.NewGrid(2, 2, 2)
	g.Set(1, 1, 1, grid.EncodeData(0))
	step0(g)

	st, payload := g.Classify(g.Get(0, 0, 0))
	if st != grid.StateEmpty || payload != grid.MaxDistance {
		t.Fatalf("empty cell should be MaxDistance after step0, got %v(%d)", st, payload)
	}

	st, payload = g.Classify(g.Get(1, 1, 1))
	if st != grid.StateData || payload != 0 {
		t.Fatalf("DATA cell must be untouched by step0, got %v(%d)", st, payload)
	}
}

func TestRunNeverWritesDataOrLod(t *testing.T) {
	g := grid.NewGrid(4, 4, 4)
	g.Set(3, 3, 3, grid.EncodeData(5))
	g.Set(0, 0, 0, grid.EncodeLod(2))

	Run(g)

	st, payload := g.Classify(g.Get(3, 3, 3))
	if st != grid.StateData || payload != 5 {
		t.Fatalf("DATA cell mutated by SDF pass: %v(%d)", st, payload)
	}
	st, payload = g.Classify(g.Get(0, 0, 0))
	if st != grid.StateLod || payload != 2 {
		t.Fatalf("LOD cell mutated by SDF pass: %v(%d)", st, payload)
	}
}

func TestRunPropagatesExactHopDistance(t *testing.T) {
	// 4x4x4 grid: only a radius-2 hop lands exactly on the data cell
	// from (1,1,1), so that cell converges to d=2 (its true Chebyshev
	// distance to the solid is 2 as well, here the hop is exact).
	g := grid.NewGrid(4, 4, 4)
	g.Set(3, 1, 1, grid.EncodeData(0))

	Run(g)

	st, d := g.Classify(g.Get(1, 1, 1))
	if st != grid.StateEmpty || d != 2 {
		t.Fatalf("expected Empty(2) at (1,1,1), got %v(%d)", st, d)
	}
}

func TestRunReachesUnitRadiusOnOddSizedGrids(t *testing.T) {
	// max dimension 3 gives K=3, whose finest radius is 1 — so a cell
	// directly adjacent to a solid converges to its true distance.
	g := grid.NewGrid(3, 1, 1)
	g.Set(2, 0, 0, grid.EncodeData(0))

	Run(g)

	st, d := g.Classify(g.Get(1, 0, 0))
	if st != grid.StateEmpty || d != 1 {
		t.Fatalf("expected Empty(1) adjacent to data, got %v(%d)", st, d)
	}
}

func TestRunFarCellDistanceIsAtLeast14(t *testing.T) {
	g := grid.NewGrid(16, 16, 16)
	g.Set(15, 8, 8, grid.EncodeData(0))

	Run(g)

	st, d := g.Classify(g.Get(0, 8, 8))
	if st != grid.StateEmpty {
		t.Fatalf("expected Empty, got %v", st)
	}
	if d < 14 {
		t.Fatalf("distance at (0,8,8) must be a safe lower bound of at least 14, got %d", d)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	g := grid.NewGrid(5, 5, 5)
	g.Set(4, 4, 4, grid.EncodeData(0))
	g.Set(0, 0, 0, grid.EncodeData(0))

	Run(g)
	first := g.Snapshot()

	Run(g)
	second := g.Snapshot()

	if len(first) != len(second) {
		t.Fatalf("snapshot length changed between runs")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cell %d changed across idempotent re-run: %#x -> %#x", i, first[i], second[i])
		}
	}
}
