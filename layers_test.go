package mace

import (
	"math"
	"testing"

	"github.com/rmera/gomace/ad"
	"github.com/rmera/gomace/irreps"
)

func TestLinearLabelMatching(Te *testing.T) {
	in := irreps.MustParseIrreps("2x0e + 2x1o")
	out := irreps.MustParseIrreps("3x0e + 3x2e") //2e has no source
	reg := newParamReg()
	lin := NewLinear("lin", in, out, reg)
	if len(reg.specs) != 1 {
		Te.Fatalf("%d weight blocks registered, want 1 (only 0e matches)", len(reg.specs))
	}
	P := initParams(reg.specs, 1)
	ps := P.bind()
	x := ad.NewLeaf(2, in.Dim(), make([]float64, 2*in.Dim()))
	for j := 0; j < in.Dim(); j++ {
		x.Data.Set(0, j, float64(j+1))
	}
	y := lin.Apply(ps, x)
	if _, c := y.Dims(); c != out.Dim() {
		Te.Fatalf("output spans %d components, want %d", c, out.Dim())
	}
	//the sourceless 2e block stays zero
	for k := 3; k < out.Dim(); k++ {
		if y.At(0, k) != 0 {
			Te.Errorf("unmatched output component %d is %g", k, y.At(0, k))
		}
	}
}

func TestSpeciesLinearGating(Te *testing.T) {
	in := irreps.MustParseIrreps("2x0e")
	reg := newParamReg()
	lin := NewSpeciesLinear("skip", in, in, 2, reg)
	P := initParams(reg.specs, 2)
	ps := P.bind()
	x := ad.NewLeaf(2, 2, []float64{1, -0.5, 1, -0.5}) //identical rows
	y := lin.Apply(ps, x, []int{0, 1})
	if y.At(0, 0) == y.At(1, 0) {
		Te.Error("different species produced identical outputs from identical features")
	}
	y2 := lin.Apply(ps, x, []int{0, 0})
	if y2.At(0, 0) != y2.At(1, 0) {
		Te.Error("same species produced different outputs from identical features")
	}
}

func TestInteractionPaths(Te *testing.T) {
	in := irreps.MustParseIrreps("4x0e")
	reg := newParamReg()
	I, err := NewInteraction("i0", in, 4, 2, irreps.MustParseIrreps("4x0e + 4x1o + 4x2e"), 2, 4, 8, SiLU, false, reg)
	if err != nil {
		Te.Fatal(err)
	}
	//0e coupled with harmonics 0..2 gives exactly one path per degree
	if I.NumPaths() != 3 {
		Te.Errorf("%d paths from a scalar input, want 3", I.NumPaths())
	}
	want := irreps.MustParseIrreps("4x0e + 4x1o + 4x2e")
	if I.Target.String() != want.String() {
		Te.Errorf("target %v, want %v", I.Target, want)
	}
	if I.Residual {
		Te.Error("first-layer variant reports a self-connection")
	}
	if _, err := NewInteraction("bad", irreps.MustParseIrreps("4x0e + 2x1o"), 4, 2, want, 2, 4, 8, SiLU, false, reg); err == nil {
		Te.Error("non-uniform input accepted")
	}
}

func TestProductBasisGrowth(Te *testing.T) {
	in := irreps.MustParseIrreps("4x0e + 4x1o")
	reg := newParamReg()
	P1, err := NewProductBasis("p1", in, in, 4, 1, 1, 0, -1, 2, reg)
	if err != nil {
		Te.Fatal(err)
	}
	if P1.NumBasis() != 2 {
		Te.Errorf("correlation 1 keeps the input: %d basis functions, want 2", P1.NumBasis())
	}
	reg2 := newParamReg()
	P2, err := NewProductBasis("p2", in, in, 4, 1, 2, 0, -1, 2, reg2)
	if err != nil {
		Te.Fatal(err)
	}
	//order 2 multisets of {0e,1o} within degree 1: 0e0e->0e, 0e1o->1o,
	//1o1o->{0e,1e}; four new entries on top of the two originals
	if P2.NumBasis() != 6 {
		Te.Errorf("correlation 2 basis has %d functions, want 6", P2.NumBasis())
	}
	//a polynomial-order cap prunes high-degree terms at construction
	reg3 := newParamReg()
	P3, err := NewProductBasis("p3", in, in.Scalars(), 4, 1, 2, 0, 1, 2, reg3)
	if err != nil {
		Te.Fatal(err)
	}
	if P3.NumBasis() >= P2.NumBasis() {
		Te.Errorf("cap did not prune: %d vs %d", P3.NumBasis(), P2.NumBasis())
	}
	if _, err := NewProductBasis("p4", in, irreps.MustParseIrreps("4x3o"), 4, 1, 2, 0, -1, 2, reg3); err == nil {
		Te.Error("unreachable output label accepted")
	}
	if _, err := NewProductBasis("p5", in, in, 4, 1, 0, 0, -1, 2, reg3); err == nil {
		Te.Error("zero correlation accepted")
	}
}

func TestProductBasisScalarSquare(Te *testing.T) {
	//with a single scalar channel, the order-2 basis entry is the plain
	//square of the input, up to the coupling coefficient for 0e x 0e
	in := irreps.MustParseIrreps("1x0e")
	reg := newParamReg()
	P, err := NewProductBasis("sq", in, in, 1, 0, 2, 0, -1, 1, reg)
	if err != nil {
		Te.Fatal(err)
	}
	if P.NumBasis() != 2 {
		Te.Fatalf("%d basis functions, want 2", P.NumBasis())
	}
	x := ad.NewLeaf(1, 1, []float64{0.6})
	ps := initParams(reg.specs, 3).bind()
	y := P.Forward(ps, x, []int{0})
	if _, c := y.Dims(); c != 1 {
		Te.Fatalf("mixed output spans %d components", c)
	}
	//differentiable end to end
	if err := ad.Backward(ad.SumAll(y)); err != nil {
		Te.Fatal(err)
	}
	if math.IsNaN(x.Grad.At(0, 0)) {
		Te.Error("basis gradient is NaN")
	}
}

//A later layer's input already carries the polynomial order accumulated
//by the stack, so its truncation budget must be the advanced tracker
//value. Handing it the raw cap would price every order-2 term above
//budget and collapse the basis to the bare input.
func TestProductBasisLayerBudget(Te *testing.T) {
	in := irreps.MustParseIrreps("2x0e + 2x1o + 2x2e")
	reg := newParamReg()
	budget := NextPolyOrder(3, 4, 2, 4)
	if budget != 16 {
		Te.Fatalf("advanced tracker gave %d, want 16", budget)
	}
	P, err := NewProductBasis("pb", in, in, 2, 2, 3, 4, budget, 2, reg)
	if err != nil {
		Te.Fatal(err)
	}
	if P.NumBasis() != 37 {
		Te.Errorf("budgeted basis has %d functions, want 37", P.NumBasis())
	}
	reg2 := newParamReg()
	P2, err := NewProductBasis("pb2", in, in, 2, 2, 3, 4, 4, 2, reg2)
	if err != nil {
		Te.Fatal(err)
	}
	//order-1 entries only: the degenerate two-body expansion
	if P2.NumBasis() != 3 {
		Te.Errorf("raw-cap basis has %d functions, want 3", P2.NumBasis())
	}
}

func TestActivationChoices(Te *testing.T) {
	xs := []float64{-1.3, -0.2, 0.4, 1.7}
	const h = 1e-6
	for _, a := range []Activation{SiLU, ReLU, GELU, Tanh, Identity} {
		f := func(v float64) float64 {
			return a.apply(ad.NewLeaf(1, 1, []float64{v})).At(0, 0)
		}
		for _, v := range xs {
			x := ad.NewLeaf(1, 1, []float64{v})
			if err := ad.Backward(a.apply(x)); err != nil {
				Te.Fatalf("%s: %v", a, err)
			}
			num := (f(v+h) - f(v-h)) / (2 * h)
			if got := x.Grad.At(0, 0); math.Abs(got-num) > 1e-5*(1+math.Abs(num)) {
				Te.Errorf("%s: derivative at %g is %g, numeric %g", a, v, got, num)
			}
		}
	}
	if Activation("swish").valid() {
		Te.Error("unknown activation reported valid")
	}
}

func TestNextPolyOrder(Te *testing.T) {
	if got := NextPolyOrder(3, 2, 3, -1); got != 15 {
		Te.Errorf("uncapped tracker gave %d, want 15", got)
	}
	if got := NextPolyOrder(3, 2, 3, 4); got != 10 {
		Te.Errorf("capped tracker gave %d, want 10", got)
	}
}
