package ad

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

//numCheck compares the gradients of a scalar-valued graph against
//central differences on every leaf.
func numCheck(Te *testing.T, name string, leaves []*Tensor, build func() *Tensor) {
	Te.Helper()
	root := build()
	if err := Backward(root); err != nil {
		Te.Fatalf("%s: %v", name, err)
	}
	grads := make([]*mat.Dense, len(leaves))
	for i, l := range leaves {
		grads[i] = mat.DenseCopyOf(l.Grad)
	}
	const h = 1e-6
	for li, l := range leaves {
		r, c := l.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				orig := l.Data.At(i, j)
				l.Data.Set(i, j, orig+h)
				ep := build().At(0, 0)
				l.Data.Set(i, j, orig-h)
				em := build().At(0, 0)
				l.Data.Set(i, j, orig)
				num := (ep - em) / (2 * h)
				got := grads[li].At(i, j)
				if math.Abs(num-got) > 1e-5*(1+math.Abs(num)) {
					Te.Errorf("%s: leaf %d entry (%d,%d): gradient %g, numeric %g", name, li, i, j, got, num)
				}
			}
		}
		//leaves are reused between passes
		for _, t := range leaves {
			t.ZeroGrad()
		}
	}
}

func randLeaf(rng *rand.Rand, r, c int) *Tensor {
	d := make([]float64, r*c)
	for i := range d {
		d[i] = rng.NormFloat64()
	}
	return NewLeaf(r, c, d)
}

func TestElementwiseOps(Te *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := randLeaf(rng, 3, 4)
	b := randLeaf(rng, 3, 4)
	numCheck(Te, "Add", []*Tensor{a, b}, func() *Tensor { return SumAll(Add(a, b)) })
	numCheck(Te, "Sub", []*Tensor{a, b}, func() *Tensor { return SumAll(Sub(a, b)) })
	numCheck(Te, "MulElem", []*Tensor{a, b}, func() *Tensor { return SumAll(MulElem(a, b)) })
	numCheck(Te, "Scale", []*Tensor{a}, func() *Tensor { return SumAll(Scale(-2.5, a)) })
	numCheck(Te, "Shift", []*Tensor{a}, func() *Tensor { return SumAll(MulElem(Shift(0.7, a), a)) })
	numCheck(Te, "SiLU", []*Tensor{a}, func() *Tensor { return SumAll(SiLU(a)) })
	numCheck(Te, "Tanh", []*Tensor{a}, func() *Tensor { return SumAll(Tanh(a)) })
}

func TestMatMul(Te *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := randLeaf(rng, 3, 5)
	b := randLeaf(rng, 5, 2)
	numCheck(Te, "MatMul", []*Tensor{a, b}, func() *Tensor { return SumAll(Tanh(MatMul(a, b))) })
}

func TestGatherScatter(Te *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randLeaf(rng, 4, 3)
	idx := []int{2, 0, 0, 3, 1}
	numCheck(Te, "Gather", []*Tensor{a}, func() *Tensor { return SumAll(Tanh(Gather(a, idx))) })
	e := randLeaf(rng, 5, 3)
	numCheck(Te, "ScatterSum", []*Tensor{e}, func() *Tensor { return SumAll(Tanh(ScatterSum(e, idx, 4))) })
}

func TestSliceConcat(Te *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := randLeaf(rng, 3, 6)
	b := randLeaf(rng, 3, 2)
	numCheck(Te, "SliceCols", []*Tensor{a}, func() *Tensor { return SumAll(Tanh(SliceCols(a, 2, 5))) })
	numCheck(Te, "ConcatCols", []*Tensor{a, b}, func() *Tensor {
		return SumAll(Tanh(ConcatCols(SliceCols(a, 0, 2), b)))
	})
}

func TestBroadcasts(Te *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := randLeaf(rng, 4, 3)
	s := randLeaf(rng, 4, 1)
	//keep the divisor away from zero
	for i := 0; i < 4; i++ {
		s.Data.Set(i, 0, 2+math.Abs(s.Data.At(i, 0)))
	}
	numCheck(Te, "ColScale", []*Tensor{a, s}, func() *Tensor { return SumAll(Tanh(ColScale(a, s))) })
	numCheck(Te, "DivCols", []*Tensor{a, s}, func() *Tensor { return SumAll(Tanh(DivCols(a, s))) })
	numCheck(Te, "SumRows", []*Tensor{a}, func() *Tensor { return SumAll(Tanh(SumRows(a))) })
}

func TestSafeRowNorm(Te *testing.T) {
	rng := rand.New(rand.NewSource(6))
	a := randLeaf(rng, 3, 3)
	numCheck(Te, "SafeRowNorm", []*Tensor{a}, func() *Tensor { return SumAll(Tanh(SafeRowNorm(a, 1e-10))) })
	//a zero row must produce a finite (zero) gradient, not NaN
	z := Zeros(2, 3)
	root := SumAll(SafeRowNorm(z, 1e-10))
	if err := Backward(root); err != nil {
		Te.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		if g := z.Grad.At(0, j); g != 0 || math.IsNaN(g) {
			Te.Errorf("zero-row gradient component %d is %g", j, g)
		}
	}
}

func TestBackwardNeedsScalar(Te *testing.T) {
	a := Zeros(2, 2)
	if err := Backward(a); err == nil {
		Te.Error("Backward accepted a non-scalar root")
	}
}

//A value feeding two branches must receive the sum of both gradients.
func TestSharedSubexpression(Te *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := randLeaf(rng, 2, 2)
	numCheck(Te, "shared", []*Tensor{a}, func() *Tensor {
		s := SiLU(a)
		return SumAll(Add(MulElem(s, s), Scale(0.5, s)))
	})
}
