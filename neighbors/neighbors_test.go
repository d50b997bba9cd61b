package neighbors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/mat"
)

func TestBuild(Te *testing.T) {
	//three atoms on a line, spacing 1.0; cutoff catches only adjacent pairs
	pos := mat.NewDense(3, 3, []float64{0, 0, 0, 1, 0, 0, 2, 0, 0})
	L, err := Build(pos, 1.5)
	if err != nil {
		Te.Fatal(err)
	}
	if L.Len() != 4 {
		Te.Fatalf("%d edges, want 4 (two pairs, both directions)", L.Len())
	}
	counts := L.Counts(3)
	if counts[0] != 1 || counts[1] != 2 || counts[2] != 1 {
		Te.Errorf("incoming counts %v", counts)
	}
	//each edge has a reversed partner
	seen := map[[2]int]bool{}
	for e := range L.Senders {
		seen[[2]int{L.Senders[e], L.Receivers[e]}] = true
	}
	for e := range L.Senders {
		if !seen[[2]int{L.Receivers[e], L.Senders[e]}] {
			Te.Errorf("edge %d->%d has no reverse", L.Senders[e], L.Receivers[e])
		}
	}
	if _, err := Build(pos, -1); err == nil {
		Te.Error("negative cutoff accepted")
	}
	if _, err := Build(mat.NewDense(2, 2, nil), 1); err == nil {
		Te.Error("two-column positions accepted")
	}
}

func TestBuildPeriodicSingleAtom(Te *testing.T) {
	//one atom in a cubic box of side 2: within cutoff 2.5 it sees its six
	//face images at distance 2 and nothing else
	pos := mat.NewDense(1, 3, nil)
	cell := mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
	L, err := BuildPeriodic(pos, cell, 2.5)
	if err != nil {
		Te.Fatal(err)
	}
	if L.Len() != 6 {
		Te.Fatalf("%d periodic neighbors, want 6", L.Len())
	}
	for e := 0; e < L.Len(); e++ {
		if L.Senders[e] != 0 || L.Receivers[e] != 0 {
			Te.Errorf("self-image edge references atom %d->%d", L.Senders[e], L.Receivers[e])
		}
		ssq := 0.0
		for k := 0; k < 3; k++ {
			ssq += L.Shifts.At(e, k) * L.Shifts.At(e, k)
		}
		if ssq != 1 {
			Te.Errorf("edge %d has shift %v, want a unit lattice step", e, mat.Formatted(L.Shifts.RowView(e).T()))
		}
	}
}

func TestBuildPeriodicPair(Te *testing.T) {
	//two atoms 0.8 apart in a large box: periodic result matches the open
	//one, with zero shifts
	pos := mat.NewDense(2, 3, []float64{0, 0, 0, 0.8, 0, 0})
	cell := mat.NewDense(3, 3, []float64{20, 0, 0, 0, 20, 0, 0, 0, 20})
	L, err := BuildPeriodic(pos, cell, 2.0)
	if err != nil {
		Te.Fatal(err)
	}
	if L.Len() != 2 {
		Te.Fatalf("%d edges, want 2", L.Len())
	}
	for e := 0; e < 2; e++ {
		for k := 0; k < 3; k++ {
			if L.Shifts.At(e, k) != 0 {
				Te.Errorf("spurious shift on edge %d", e)
			}
		}
	}
	if _, err := BuildPeriodic(pos, mat.NewDense(3, 3, nil), 2.0); err == nil {
		Te.Error("singular cell accepted")
	}
}

func TestTopology(Te *testing.T) {
	pos := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		2, 0, 0,
		10, 0, 0, //disconnected
	})
	L, err := Build(pos, 1.5)
	if err != nil {
		Te.Fatal(err)
	}
	T := NewTopology(pos, nil, L)
	if !T.HasEdgeBetween(0, 1) || T.HasEdgeBetween(0, 2) {
		Te.Error("adjacency does not match the list")
	}
	if w, ok := T.Weight(1, 2); !ok || math.Abs(w-1) > 1e-12 {
		Te.Errorf("contact weight %g, %v", w, ok)
	}
	if _, ok := T.Weight(0, 3); ok {
		Te.Error("disconnected pair reports a weight")
	}
	//graph algorithms run on the topology: hop distances through the chain
	pt := path.DijkstraFrom(T.Node(0), T)
	if d := pt.WeightTo(2); math.Abs(d-2) > 1e-12 {
		Te.Errorf("path length to atom 2 is %g, want 2", d)
	}
	if d := pt.WeightTo(3); !math.IsInf(d, 1) {
		Te.Errorf("disconnected atom reachable at distance %g", d)
	}
}
