/*
 * angular.go, part of gomace.
 *
 *
 * Copyright 2023 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 * goMace is currently developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

package mace

import (
	"math"

	"github.com/rmera/gomace/ad"
	"github.com/rmera/gomace/irreps"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//SphericalHarmonics projects unit bond directions onto the real
//spherical harmonics of every degree up to MaxL, with "component"
//normalization: each degree-l block has squared norm 2l+1 on the unit
//sphere, so every component has unit mean square. The projection has no
//learnable weights.
//
//Degree l is built by coupling degree l-1 with degree 1 through the same
//real coupling coefficients used everywhere else in the library, so the
//angular features are equivariant by construction. The per-degree
//normalization constants are fixed at construction by evaluating the
//recursion at an arbitrary unit vector (the coupled norm is constant
//over the sphere).
type SphericalHarmonics struct {
	MaxL  int
	norms []float64 //norms[l] rescales the raw coupling of degree l, l>=2
}

//NewSphericalHarmonics precomputes the normalization constants for
//degrees up to maxl.
func NewSphericalHarmonics(maxl int) (*SphericalHarmonics, error) {
	if maxl < 0 {
		return nil, configErrorf("goMace: maximum angular degree must be non-negative, got %d", maxl)
	}
	S := &SphericalHarmonics{MaxL: maxl, norms: make([]float64, maxl+1)}
	//any direction works; avoid symmetry axes out of caution.
	u := []float64{0.2672612419124244, 0.5345224838248488, 0.8017837257372732}
	prev := []float64{math.Sqrt(3) * u[1], math.Sqrt(3) * u[2], math.Sqrt(3) * u[0]} //(y,z,x)
	y1 := append([]float64{}, prev...)
	for l := 2; l <= maxl; l++ {
		terms := irreps.Couple(l-1, 1, l)
		raw := make([]float64, 2*l+1)
		for _, t := range terms {
			raw[t.C] += t.Coef * prev[t.A] * y1[t.B]
		}
		S.norms[l] = math.Sqrt(float64(2*l+1) / floats.Dot(raw, raw))
		floats.Scale(S.norms[l], raw)
		prev = raw
	}
	return S, nil
}

//Signature returns the irreps of the output: one copy of each (l,(-1)^l)
//up to MaxL.
func (S *SphericalHarmonics) Signature() irreps.Irreps {
	return irreps.SphericalSignature(S.MaxL)
}

//Embed maps unit direction vectors (rows of a [edges x 3] tensor, in
//cartesian order x,y,z) to the concatenated spherical harmonics
//[edges x (MaxL+1)^2].
func (S *SphericalHarmonics) Embed(unit *ad.Tensor) *ad.Tensor {
	e, _ := unit.Dims()
	ones := ad.Zeros(e, 1)
	for i := 0; i < e; i++ {
		ones.Data.Set(i, 0, 1)
	}
	blocks := []*ad.Tensor{ones}
	if S.MaxL == 0 {
		return ones
	}
	cy := ad.SliceCols(unit, 1, 2)
	cz := ad.SliceCols(unit, 2, 3)
	cx := ad.SliceCols(unit, 0, 1)
	y1 := ad.Scale(math.Sqrt(3), ad.ConcatCols(cy, cz, cx))
	blocks = append(blocks, y1)
	prev := y1
	for l := 2; l <= S.MaxL; l++ {
		raw := coupleSingle(prev, y1, irreps.Couple(l-1, 1, l), 2*l+1)
		yl := ad.Scale(S.norms[l], raw)
		blocks = append(blocks, yl)
		prev = yl
	}
	return ad.ConcatCols(blocks...)
}

//coupleSingle applies a sparse bilinear coupling rowwise to two
//single-copy blocks: out[e,k] = sum_t coef_t x[e,a_t] y[e,b_t]. The
//backward pass follows from the map being bilinear.
func coupleSingle(x, y *ad.Tensor, terms []irreps.Term, outDim int) *ad.Tensor {
	e, _ := x.Dims()
	d := mat.NewDense(e, outDim, nil)
	for _, t := range terms {
		for i := 0; i < e; i++ {
			d.Set(i, t.C, d.At(i, t.C)+t.Coef*x.Data.At(i, t.A)*y.Data.At(i, t.B))
		}
	}
	return ad.FromOp(d, func(g *mat.Dense) {
		for _, t := range terms {
			for i := 0; i < e; i++ {
				gv := g.At(i, t.C) * t.Coef
				x.Grad.Set(i, t.A, x.Grad.At(i, t.A)+gv*y.Data.At(i, t.B))
				y.Grad.Set(i, t.B, y.Grad.At(i, t.B)+gv*x.Data.At(i, t.A))
			}
		}
	}, x, y)
}
