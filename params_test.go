package mace

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestInitDeterminism(Te *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		Te.Fatal(err)
	}
	a := m.Init(77)
	b := m.Init(77)
	for _, s := range m.Specs() {
		if !mat.Equal(a.Tensors[s.Path], b.Tensors[s.Path]) {
			Te.Fatalf("parameter %q differs between two inits with the same seed", s.Path)
		}
	}
	c := m.Init(78)
	same := true
	for _, s := range m.Specs() {
		if !mat.Equal(a.Tensors[s.Path], c.Tensors[s.Path]) {
			same = false
		}
	}
	if same {
		Te.Error("different seeds produced identical parameters")
	}
}

func TestSaveLoadRoundtrip(Te *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		Te.Fatal(err)
	}
	P := m.Init(3)
	name := filepath.Join(Te.TempDir(), "params.gob.zst")
	if err := SaveParams(name, P); err != nil {
		Te.Fatal(err)
	}
	Q, err := LoadParams(name)
	if err != nil {
		Te.Fatal(err)
	}
	if err := m.CheckParams(Q); err != nil {
		Te.Fatalf("reloaded tree rejected: %v", err)
	}
	for _, s := range m.Specs() {
		if !mat.Equal(P.Tensors[s.Path], Q.Tensors[s.Path]) {
			Te.Fatalf("parameter %q changed through the roundtrip", s.Path)
		}
	}
	//and the reloaded tree evaluates identically
	g := &Graph{
		Positions: mat.NewDense(2, 3, []float64{0, 0, 0, 1.7, 0.2, -0.3}),
		Species:   []int{0, 1},
		Senders:   []int{0, 1},
		Receivers: []int{1, 0},
	}
	a, err := m.Evaluate(P, g)
	if err != nil {
		Te.Fatal(err)
	}
	b, err := m.Evaluate(Q, g)
	if err != nil {
		Te.Fatal(err)
	}
	if a.Energies[0] != b.Energies[0] {
		Te.Errorf("energies differ after reload: %g vs %g", a.Energies[0], b.Energies[0])
	}
}

func TestCheckParamsRejectsMismatch(Te *testing.T) {
	m, err := New(testConfig())
	if err != nil {
		Te.Fatal(err)
	}
	P := m.Init(3)
	//a tree from a differently shaped model
	other := testConfig()
	other.NumBessel = 6
	m2, err := New(other)
	if err != nil {
		Te.Fatal(err)
	}
	var serr *ShapeError
	if err := m.CheckParams(m2.Init(3)); err == nil {
		Te.Error("foreign parameter tree accepted")
	} else if _, ok := err.(*ShapeError); !ok {
		Te.Errorf("got %T, want %T", err, serr)
	}
	//a tampered shape
	bad := &Params{Specs: append([]ParamSpec{}, P.Specs...), Tensors: map[string]*mat.Dense{}}
	for k, v := range P.Tensors {
		bad.Tensors[k] = v
	}
	first := bad.Specs[0].Path
	bad.Tensors[first] = mat.NewDense(1, 1, []float64{0})
	if err := m.CheckParams(bad); err == nil {
		Te.Error("tampered tensor shape accepted")
	}
	//a missing tensor
	delete(bad.Tensors, first)
	if err := m.CheckParams(bad); err == nil {
		Te.Error("missing tensor accepted")
	}
}

func TestErrorDecoration(Te *testing.T) {
	err := configErrorf("something is off")
	deco := errDecorate(err, "TestErrorDecoration")
	e, ok := deco.(Error)
	if !ok {
		Te.Fatal("decorated error lost the library interface")
	}
	trail := e.Decorate("")
	if len(trail) != 1 || trail[0] != "TestErrorDecoration" {
		Te.Errorf("decoration trail %v", trail)
	}
}
