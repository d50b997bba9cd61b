package irreps

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
)

//This file computes the real coupling coefficients used by every tensor
//product in the library. The complex Clebsch-Gordan coefficients come
//from the Racah formula; the real coefficients follow by conjugating
//with the unitary change of basis between complex and real spherical
//components. For a given (l1,l2,l3) the equivariant coupling is unique
//up to a scalar, so the complex result is a phase times a real tensor;
//we keep the nonzero part and fix the overall scale so the squared
//coefficients sum to 2*l3+1, matching the complex convention.

var facTab [64]float64

func init() {
	facTab[0] = 1
	for i := 1; i < len(facTab); i++ {
		facTab[i] = facTab[i-1] * float64(i)
	}
}

func fac(n int) float64 {
	if n < 0 || n >= len(facTab) {
		panic(fmt.Sprintf("goMace/irreps: factorial out of range: %d", n))
	}
	return facTab[n]
}

func maxint(nums ...int) int {
	m := nums[0]
	for _, v := range nums[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minint(nums ...int) int {
	m := nums[0]
	for _, v := range nums[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

//cgComplex returns the Clebsch-Gordan coefficient <l1 m1; l2 m2|l3 m3>
//in the Condon-Shortley convention, by the Racah formula.
func cgComplex(l1, m1, l2, m2, l3, m3 int) float64 {
	if m1+m2 != m3 {
		return 0
	}
	if l3 > l1+l2 || l3 < l1-l2 || l3 < l2-l1 {
		return 0
	}
	if m1 < -l1 || m1 > l1 || m2 < -l2 || m2 > l2 {
		return 0
	}
	pre := float64(2*l3+1) * fac(l3+l1-l2) * fac(l3-l1+l2) * fac(l1+l2-l3) / fac(l1+l2+l3+1)
	pre *= fac(l3+m3) * fac(l3-m3) * fac(l1-m1) * fac(l1+m1) * fac(l2-m2) * fac(l2+m2)
	pre = math.Sqrt(pre)
	kmin := maxint(0, l2-l3-m1, l1+m2-l3)
	kmax := minint(l1+l2-l3, l1-m1, l2+m2)
	sum := 0.0
	sign := 1.0
	if kmin%2 != 0 {
		sign = -1
	}
	for k := kmin; k <= kmax; k++ {
		sum += sign / (fac(k) * fac(l1+l2-l3-k) * fac(l1-m1-k) * fac(l2+m2-k) * fac(l3-l2+m1+k) * fac(l3-l1-m2+k))
		sign = -sign
	}
	return pre * sum
}

//realBasis returns the unitary matrix U with real_m = sum_mc U[m][mc]*complex_mc,
//rows and columns indexed by m+l. The real components follow the usual
//convention: negative m are the "sine" combinations, positive m the
//"cosine" ones, so for l=1 the components order as (y,z,x).
func realBasis(l int) [][]complex128 {
	n := 2*l + 1
	u := make([][]complex128, n)
	for i := range u {
		u[i] = make([]complex128, n)
	}
	s := 1.0 / math.Sqrt(2)
	u[l][l] = 1 //m=0
	for m := 1; m <= l; m++ {
		csign := 1.0
		if m%2 != 0 {
			csign = -1
		}
		u[l+m][l+m] = complex(csign*s, 0)
		u[l+m][l-m] = complex(s, 0)
		u[l-m][l-m] = complex(0, s)
		u[l-m][l+m] = complex(0, -csign*s)
	}
	return u
}

//Term is one nonzero entry of a coupling tensor: component A of the
//first factor times component B of the second contributes Coef to
//component C of the output.
type Term struct {
	A, B, C int
	Coef    float64
}

type coupleKey struct{ l1, l2, l3 int }

var (
	coupleMu    sync.Mutex
	coupleCache = map[coupleKey][]Term{}
)

//Couple returns the sparse real coupling tensor for degrees (l1,l2,l3).
//It panics if the degrees violate the triangle rule, which callers are
//expected to have checked through the selection rule.
func Couple(l1, l2, l3 int) []Term {
	if l3 > l1+l2 || l3 < l1-l2 || l3 < l2-l1 {
		panic(fmt.Sprintf("goMace/irreps: coupling (%d,%d)->%d violates the selection rule", l1, l2, l3))
	}
	key := coupleKey{l1, l2, l3}
	coupleMu.Lock()
	defer coupleMu.Unlock()
	if t, ok := coupleCache[key]; ok {
		return t
	}
	t := computeCoupling(l1, l2, l3)
	coupleCache[key] = t
	return t
}

func computeCoupling(l1, l2, l3 int) []Term {
	n1, n2, n3 := 2*l1+1, 2*l2+1, 2*l3+1
	u1 := realBasis(l1)
	u2 := realBasis(l2)
	u3 := realBasis(l3)
	w := make([]complex128, n1*n2*n3)
	for m1 := -l1; m1 <= l1; m1++ {
		for m2 := -l2; m2 <= l2; m2++ {
			m3 := m1 + m2
			if m3 < -l3 || m3 > l3 {
				continue
			}
			cg := complex(cgComplex(l1, m1, l2, m2, l3, m3), 0)
			if cg == 0 {
				continue
			}
			for a := 0; a < n1; a++ {
				ca := cmplx.Conj(u1[a][m1+l1])
				if ca == 0 {
					continue
				}
				for b := 0; b < n2; b++ {
					cb := cmplx.Conj(u2[b][m2+l2])
					if cb == 0 {
						continue
					}
					for c := 0; c < n3; c++ {
						uc := u3[c][m3+l3]
						if uc == 0 {
							continue
						}
						w[(a*n2+b)*n3+c] += uc * ca * cb * cg
					}
				}
			}
		}
	}
	//The tensor is a global phase times a real one; keep whichever part
	//survives and make sure the other one really vanished.
	var renorm, imnorm float64
	for _, v := range w {
		renorm += real(v) * real(v)
		imnorm += imag(v) * imag(v)
	}
	useIm := imnorm > renorm
	kept, lost := renorm, imnorm
	if useIm {
		kept, lost = imnorm, renorm
	}
	if kept == 0 || lost/kept > 1e-20 {
		panic(fmt.Sprintf("goMace/irreps: coupling (%d,%d)->%d is not real up to a phase (re=%g im=%g)", l1, l2, l3, renorm, imnorm))
	}
	scale := math.Sqrt(float64(n3) / kept)
	terms := make([]Term, 0, n1*n2)
	for a := 0; a < n1; a++ {
		for b := 0; b < n2; b++ {
			for c := 0; c < n3; c++ {
				v := real(w[(a*n2+b)*n3+c])
				if useIm {
					v = imag(w[(a*n2+b)*n3+c])
				}
				v *= scale
				if math.Abs(v) > 1e-14 {
					terms = append(terms, Term{A: a, B: b, C: c, Coef: v})
				}
			}
		}
	}
	return terms
}
