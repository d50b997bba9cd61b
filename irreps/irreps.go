//Package irreps handles the symmetry bookkeeping for equivariant features:
//irreducible representation labels of O(3), signatures (lists of labels with
//multiplicities) and the real coupling coefficients that restrict tensor
//products to allowed output labels.
package irreps

import (
	"fmt"
	"strconv"
	"strings"
)

//Parity flags. Even means invariant under inversion, Odd changes sign.
const (
	Even = 1
	Odd  = -1
)

//Irrep is a single irreducible representation label of O(3): a degree
//L>=0 and a parity. A tensor block labeled (L,P) spans 2L+1 components
//and transforms under rotation with the degree-L Wigner matrix, and under
//inversion with the sign P.
type Irrep struct {
	L int
	P int
}

//NewIrrep returns the (l,p) label. It panics on negative l or a parity
//other than +-1, as that is a programming error.
func NewIrrep(l, p int) Irrep {
	if l < 0 || (p != Even && p != Odd) {
		panic(fmt.Sprintf("goMace/irreps: malformed irrep l=%d p=%d", l, p))
	}
	return Irrep{L: l, P: p}
}

//Dim returns the number of components of the irrep, 2L+1.
func (ir Irrep) Dim() int {
	return 2*ir.L + 1
}

func (ir Irrep) String() string {
	if ir.P == Even {
		return fmt.Sprintf("%de", ir.L)
	}
	return fmt.Sprintf("%do", ir.L)
}

//SphericalHarmonic returns the label of the degree-l spherical harmonic,
//(l, (-1)^l).
func SphericalHarmonic(l int) Irrep {
	p := Even
	if l%2 != 0 {
		p = Odd
	}
	return NewIrrep(l, p)
}

//ProductRange returns the labels reachable by coupling ir with other,
//i.e. degrees |l1-l2|..l1+l2 with parity p1*p2, in increasing degree.
func (ir Irrep) ProductRange(other Irrep) []Irrep {
	lmin := ir.L - other.L
	if lmin < 0 {
		lmin = -lmin
	}
	ret := make([]Irrep, 0, ir.L+other.L-lmin+1)
	for l := lmin; l <= ir.L+other.L; l++ {
		ret = append(ret, Irrep{L: l, P: ir.P * other.P})
	}
	return ret
}

//ReachableFrom reports whether ir appears in the coupling of a and b.
func (ir Irrep) ReachableFrom(a, b Irrep) bool {
	for _, v := range a.ProductRange(b) {
		if v == ir {
			return true
		}
	}
	return false
}

//MulIrrep is an irrep with a multiplicity: Mul independent copies of the
//same label stacked together. Its data spans Mul*(2L+1) components, laid
//out with the multiplicity index slowest (copy u occupies components
//u*(2L+1)..(u+1)*(2L+1)).
type MulIrrep struct {
	Mul int
	Ir  Irrep
}

//Dim returns Mul*(2L+1).
func (mi MulIrrep) Dim() int {
	return mi.Mul * mi.Ir.Dim()
}

func (mi MulIrrep) String() string {
	return fmt.Sprintf("%dx%v", mi.Mul, mi.Ir)
}

//Irreps is the signature of a feature tensor: an ordered concatenation of
//multiplicity-tagged irreps. The signature is fixed when the tensor is
//produced and every operation either declares its output signature or
//infers it from its inputs through the coupling rule.
type Irreps []MulIrrep

//ParseIrreps reads a signature in the usual notation, e.g.
//"128x0e + 128x1o" or "16x0e". A bare "0e" means multiplicity 1.
func ParseIrreps(s string) (Irreps, error) {
	ret := make(Irreps, 0, 2)
	for _, field := range strings.Split(s, "+") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		mul := 1
		irpart := field
		if i := strings.Index(field, "x"); i >= 0 {
			m, err := strconv.Atoi(field[:i])
			if err != nil {
				return nil, fmt.Errorf("goMace/irreps: bad multiplicity in %q", field)
			}
			mul = m
			irpart = field[i+1:]
		}
		if len(irpart) < 2 {
			return nil, fmt.Errorf("goMace/irreps: bad irrep %q", field)
		}
		l, err := strconv.Atoi(irpart[:len(irpart)-1])
		if err != nil || l < 0 {
			return nil, fmt.Errorf("goMace/irreps: bad degree in %q", field)
		}
		var p int
		switch irpart[len(irpart)-1] {
		case 'e':
			p = Even
		case 'o':
			p = Odd
		default:
			return nil, fmt.Errorf("goMace/irreps: bad parity in %q", field)
		}
		ret = append(ret, MulIrrep{Mul: mul, Ir: Irrep{L: l, P: p}})
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("goMace/irreps: empty signature %q", s)
	}
	return ret, nil
}

//MustParseIrreps is ParseIrreps for signatures known at compile time.
//It panics on a malformed string.
func MustParseIrreps(s string) Irreps {
	ir, err := ParseIrreps(s)
	if err != nil {
		panic(err.Error())
	}
	return ir
}

//Dim returns the total number of components spanned by the signature.
func (irs Irreps) Dim() int {
	d := 0
	for _, v := range irs {
		d += v.Dim()
	}
	return d
}

//NumIrreps returns the total multiplicity summed over entries.
func (irs Irreps) NumIrreps() int {
	n := 0
	for _, v := range irs {
		n += v.Mul
	}
	return n
}

//Offset returns the component offset at which entry i starts.
//Panics if out of range.
func (irs Irreps) Offset(i int) int {
	if i >= len(irs) {
		panic("goMace/irreps: signature entry out of range")
	}
	off := 0
	for j := 0; j < i; j++ {
		off += irs[j].Dim()
	}
	return off
}

//Count returns the multiplicity of label ir in the signature.
func (irs Irreps) Count(ir Irrep) int {
	n := 0
	for _, v := range irs {
		if v.Ir == ir {
			n += v.Mul
		}
	}
	return n
}

//Contains reports whether the label appears with nonzero multiplicity.
func (irs Irreps) Contains(ir Irrep) bool {
	return irs.Count(ir) > 0
}

//Filter returns the subsignature with only the entries whose label
//satisfies keep, preserving order.
func (irs Irreps) Filter(keep func(Irrep) bool) Irreps {
	ret := make(Irreps, 0, len(irs))
	for _, v := range irs {
		if keep(v.Ir) {
			ret = append(ret, v)
		}
	}
	return ret
}

//Scalars returns the subsignature of 0e entries.
func (irs Irreps) Scalars() Irreps {
	return irs.Filter(func(ir Irrep) bool { return ir.L == 0 && ir.P == Even })
}

//MaxL returns the largest degree in the signature.
func (irs Irreps) MaxL() int {
	max := 0
	for _, v := range irs {
		if v.Ir.L > max {
			max = v.Ir.L
		}
	}
	return max
}

//UniformMul returns the common multiplicity of all entries and true, or
//0 and false if the entries disagree.
func (irs Irreps) UniformMul() (int, bool) {
	if len(irs) == 0 {
		return 0, false
	}
	mul := irs[0].Mul
	for _, v := range irs {
		if v.Mul != mul {
			return 0, false
		}
	}
	return mul, true
}

func (irs Irreps) String() string {
	parts := make([]string, len(irs))
	for i, v := range irs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " + ")
}

//AllUpTo returns the signature holding every label with degree<=lmax and
//both parities, each with multiplicity mul, ordered by degree with the
//spherical-harmonic parity first. This is the "interaction" signature
//spanned between the convolution and the product basis.
func AllUpTo(lmax, mul int) Irreps {
	ret := make(Irreps, 0, 2*(lmax+1))
	for l := 0; l <= lmax; l++ {
		sh := SphericalHarmonic(l)
		ret = append(ret, MulIrrep{Mul: mul, Ir: sh})
		ret = append(ret, MulIrrep{Mul: mul, Ir: Irrep{L: l, P: -sh.P}})
	}
	return ret
}

//SphericalSignature returns the signature of the spherical harmonics up
//to degree lmax, multiplicity one each.
func SphericalSignature(lmax int) Irreps {
	ret := make(Irreps, 0, lmax+1)
	for l := 0; l <= lmax; l++ {
		ret = append(ret, MulIrrep{Mul: 1, Ir: SphericalHarmonic(l)})
	}
	return ret
}
