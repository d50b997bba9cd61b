package irreps

import (
	"math"
	"testing"
)

func TestParseIrreps(Te *testing.T) {
	irs, err := ParseIrreps("128x0e + 64x1o")
	if err != nil {
		Te.Fatal(err)
	}
	if len(irs) != 2 || irs[0].Mul != 128 || irs[1].Ir.L != 1 || irs[1].Ir.P != Odd {
		Te.Errorf("parsed %v from \"128x0e + 64x1o\"", irs)
	}
	if irs.Dim() != 128+64*3 {
		Te.Errorf("dimension %d, want %d", irs.Dim(), 128+64*3)
	}
	if irs.String() != "128x0e + 64x1o" {
		Te.Errorf("printed back as %q", irs.String())
	}
	if irs.Offset(1) != 128 {
		Te.Errorf("second entry at offset %d", irs.Offset(1))
	}
	bare, err := ParseIrreps("0e")
	if err != nil || bare[0].Mul != 1 {
		Te.Errorf("bare label: %v, %v", bare, err)
	}
	for _, bad := range []string{"", "3x", "x1o", "2x-1e", "4x1q"} {
		if _, err := ParseIrreps(bad); err == nil {
			Te.Errorf("accepted malformed signature %q", bad)
		}
	}
}

func TestSelectionRule(Te *testing.T) {
	a := NewIrrep(1, Odd)
	got := a.ProductRange(a)
	want := []Irrep{{0, Even}, {1, Even}, {2, Even}}
	if len(got) != len(want) {
		Te.Fatalf("1o x 1o gives %v", got)
	}
	for i := range got {
		if got[i] != want[i] {
			Te.Errorf("1o x 1o entry %d is %v, want %v", i, got[i], want[i])
		}
	}
	if !NewIrrep(2, Even).ReachableFrom(a, a) {
		Te.Error("2e should be reachable from 1o x 1o")
	}
	if NewIrrep(3, Even).ReachableFrom(a, a) {
		Te.Error("3e should not be reachable from 1o x 1o")
	}
	if NewIrrep(1, Odd).ReachableFrom(a, a) {
		Te.Error("odd parity should not come out of 1o x 1o")
	}
}

func TestSignatureHelpers(Te *testing.T) {
	irs := MustParseIrreps("8x0e + 8x1o + 8x2e")
	if m, ok := irs.UniformMul(); !ok || m != 8 {
		Te.Errorf("uniform multiplicity: %d, %v", m, ok)
	}
	if irs.MaxL() != 2 {
		Te.Errorf("max degree %d", irs.MaxL())
	}
	if !irs.Contains(Irrep{L: 1, P: Odd}) || irs.Contains(Irrep{L: 1, P: Even}) {
		Te.Error("Contains misreports the signature")
	}
	if s := irs.Scalars(); len(s) != 1 || s[0].Mul != 8 {
		Te.Errorf("scalar part %v", s)
	}
	mixed := MustParseIrreps("8x0e + 4x1o")
	if _, ok := mixed.UniformMul(); ok {
		Te.Error("mixed multiplicities reported uniform")
	}
	full := AllUpTo(2, 8)
	if len(full) != 6 || full.Dim() != 8*(1+1+3+3+5+5) {
		Te.Errorf("full signature up to degree 2 is %v", full)
	}
	for _, b := range full {
		if b.Mul != 8 {
			Te.Errorf("block %v has multiplicity %d", b.Ir, b.Mul)
		}
	}
}

func TestCoupleScalar(Te *testing.T) {
	terms := Couple(0, 0, 0)
	if len(terms) != 1 {
		Te.Fatalf("0x0->0 has %d terms", len(terms))
	}
	t := terms[0]
	if t.A != 0 || t.B != 0 || t.C != 0 || math.Abs(t.Coef-1) > 1e-12 {
		Te.Errorf("0x0->0 term is %+v", t)
	}
}

// The coupling into a scalar must be the (scaled) invariant pairing:
// contracting a degree-1 block with itself through Couple(1,1,0) has to
// give something proportional to the squared norm.
func TestCoupleInvariantPairing(Te *testing.T) {
	terms := Couple(1, 1, 0)
	v := []float64{0.3, -1.2, 0.77}
	got := 0.0
	for _, t := range terms {
		got += t.Coef * v[t.A] * v[t.B]
	}
	n2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	ratio := got / n2
	if math.Abs(math.Abs(ratio)-1/math.Sqrt(3)) > 1e-12 {
		Te.Errorf("pairing ratio %g, want magnitude 1/sqrt(3)", ratio)
	}
}

func TestCoupleNormalization(Te *testing.T) {
	cases := [][3]int{{1, 1, 0}, {1, 1, 1}, {1, 1, 2}, {2, 1, 1}, {2, 1, 2}, {2, 1, 3}, {2, 2, 2}, {3, 1, 2}, {3, 2, 1}}
	for _, c := range cases {
		terms := Couple(c[0], c[1], c[2])
		ssq := 0.0
		for _, t := range terms {
			ssq += t.Coef * t.Coef
		}
		want := float64(2*c[2] + 1)
		if math.Abs(ssq-want) > 1e-10 {
			Te.Errorf("Couple(%d,%d,%d): coefficient norm %g, want %g", c[0], c[1], c[2], ssq, want)
		}
	}
}

// Couplings of the same inputs into different degrees are orthogonal as
// bilinear forms; without this, restricting a tensor product by output
// label would not split it cleanly.
func TestCoupleOrthogonality(Te *testing.T) {
	l1, l2 := 2, 1
	for la := 1; la <= 3; la++ {
		for lb := la + 1; lb <= 3; lb++ {
			ta := Couple(l1, l2, la)
			tb := Couple(l1, l2, lb)
			//sum over the shared (a,b) index of products of the two maps,
			//for every output component pair.
			for ca := 0; ca < 2*la+1; ca++ {
				for cb := 0; cb < 2*lb+1; cb++ {
					acc := 0.0
					for _, u := range ta {
						if u.C != ca {
							continue
						}
						for _, v := range tb {
							if v.C == cb && u.A == v.A && u.B == v.B {
								acc += u.Coef * v.Coef
							}
						}
					}
					if math.Abs(acc) > 1e-10 {
						Te.Errorf("Couple(%d,%d,%d) and (%d,%d,%d) overlap: %g", l1, l2, la, l1, l2, lb, acc)
					}
				}
			}
		}
	}
}

func TestCoupleTrianglePanics(Te *testing.T) {
	defer func() {
		if recover() == nil {
			Te.Error("coupling outside the triangle range did not panic")
		}
	}()
	Couple(1, 1, 3)
}

func TestSphericalSignature(Te *testing.T) {
	sig := SphericalSignature(3)
	if sig.Dim() != 16 {
		Te.Errorf("harmonics up to degree 3 span %d components", sig.Dim())
	}
	if sig[1].Ir.P != Odd || sig[2].Ir.P != Even {
		Te.Errorf("harmonic parities wrong: %v", sig)
	}
}
