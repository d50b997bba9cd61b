/*
 * product.go, part of gomace.
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
	"fmt"

	"github.com/rmera/gomace/ad"
	"github.com/rmera/gomace/irreps"
	"gonum.org/v1/gonum/mat"
)

//prodEntry is one basis function of the product basis: at order 1 a
//slice of the input, at higher orders a depthwise coupling of an
//order-(c-1) entry with an order-1 entry. lastIn is the index of the
//largest order-1 entry used, so factors are taken as a multiset (which
//makes the basis independent of the grouping used to build it). polyDeg
//is the tracked polynomial degree in atomic coordinates.
type prodEntry struct {
	ir      irreps.Irrep
	prev    int //entry index in the previous order; -1 at order 1
	inIdx   int //order-1 entry coupled in
	lastIn  int
	polyDeg int
	terms   []irreps.Term
}

//ProductBasis raises the body order of the node features: it builds all
//symmetrized products of the input with itself up to the correlation
//order, each restricted by the selection rule to degrees within MaxL,
//and mixes the whole basis into the hidden signature with per-species
//weights. Neighbor species were already folded in by the interaction,
//so only the center atom's identity gates the mixing here.
type ProductBasis struct {
	In          irreps.Irreps
	Out         irreps.Irreps
	Mul         int
	MaxL        int
	Correlation int
	//orders[c-1] holds the entries of order c; orders[0] aliases In.
	orders [][]prodEntry
	mix    *SpeciesLinear
}

//NewProductBasis wires the layer. in must carry uniform multiplicity
//mul. inPolyOrder and maxPolyOrder drive the optional truncation: when
//maxPolyOrder is non-negative, basis terms whose tracked degree exceeds
//it are dropped at construction, identically for every later use of the
//model. out labels must be reachable, otherwise construction fails.
func NewProductBasis(path string, in, out irreps.Irreps, mul, maxl, correlation int, inPolyOrder, maxPolyOrder int, numSpecies int, reg *paramReg) (*ProductBasis, error) {
	if correlation < 1 {
		return nil, configErrorf("goMace: correlation order must be at least 1, got %d", correlation)
	}
	if m, ok := in.UniformMul(); !ok || m != mul {
		return nil, configErrorf("goMace: product-basis input %v must have uniform multiplicity %d", in, mul)
	}
	P := &ProductBasis{In: in, Out: out, Mul: mul, MaxL: maxl, Correlation: correlation}
	first := make([]prodEntry, len(in))
	for i, v := range in {
		first[i] = prodEntry{ir: v.Ir, prev: -1, inIdx: i, lastIn: i, polyDeg: inPolyOrder + v.Ir.L}
	}
	P.orders = append(P.orders, first)
	for c := 2; c <= correlation; c++ {
		var next []prodEntry
		for pi, pv := range P.orders[c-2] {
			for j := pv.lastIn; j < len(in); j++ {
				deg := pv.polyDeg + inPolyOrder + in[j].Ir.L
				if maxPolyOrder >= 0 && deg > maxPolyOrder {
					continue
				}
				for _, o := range pv.ir.ProductRange(in[j].Ir) {
					if o.L > maxl {
						continue
					}
					next = append(next, prodEntry{ir: o, prev: pi, inIdx: j, lastIn: j,
						polyDeg: deg, terms: irreps.Couple(pv.ir.L, in[j].Ir.L, o.L)})
				}
			}
		}
		P.orders = append(P.orders, next)
	}
	basisSig := P.basisSignature()
	for _, ov := range out {
		if !basisSig.Contains(ov.Ir) {
			return nil, configErrorf("goMace: output label %v unreachable from %v at correlation %d", ov.Ir, in, correlation)
		}
	}
	P.mix = NewSpeciesLinear(path+"/mix", basisSig, out, numSpecies, reg)
	return P, nil
}

//basisSignature concatenates all orders' entries, in order.
func (P *ProductBasis) basisSignature() irreps.Irreps {
	var sig irreps.Irreps
	for _, ord := range P.orders {
		for _, e := range ord {
			sig = append(sig, irreps.MulIrrep{Mul: P.Mul, Ir: e.ir})
		}
	}
	return sig
}

//NumBasis returns the number of basis functions (entries over all
//orders).
func (P *ProductBasis) NumBasis() int {
	n := 0
	for _, ord := range P.orders {
		n += len(ord)
	}
	return n
}

//Forward builds the basis for every node and mixes it into the hidden
//signature with the weights of the node's species.
func (P *ProductBasis) Forward(ps boundParams, x *ad.Tensor, species []int) *ad.Tensor {
	prevTensors := make([]*ad.Tensor, len(P.orders[0]))
	all := make([]*ad.Tensor, 0, P.NumBasis())
	ord1 := make([]*ad.Tensor, len(P.orders[0]))
	for i := range P.orders[0] {
		off := P.In.Offset(i)
		ord1[i] = ad.SliceCols(x, off, off+P.In[i].Dim())
		prevTensors[i] = ord1[i]
		all = append(all, ord1[i])
	}
	for c := 2; c <= P.Correlation; c++ {
		entries := P.orders[c-1]
		cur := make([]*ad.Tensor, len(entries))
		for i, e := range entries {
			a := prevTensors[e.prev]
			b := ord1[e.inIdx]
			cur[i] = coupleDepthwise(a, b, e.terms, P.Mul,
				P.orders[c-2][e.prev].ir.Dim(), P.In[e.inIdx].Ir.Dim(), e.ir.Dim())
			all = append(all, cur[i])
		}
		prevTensors = cur
	}
	basis := all[0]
	if len(all) > 1 {
		basis = ad.ConcatCols(all...)
	}
	return P.mix.Apply(ps, basis, species)
}

//coupleDepthwise couples channel u of a with channel u of b:
//out[n, u*dimOut+k] = sum_t coef_t a[n, u*dimA+a_t] b[n, u*dimB+b_t].
func coupleDepthwise(a, b *ad.Tensor, terms []irreps.Term, mul, dimA, dimB, dimOut int) *ad.Tensor {
	n, _ := a.Dims()
	d := mat.NewDense(n, mul*dimOut, nil)
	for i := 0; i < n; i++ {
		for u := 0; u < mul; u++ {
			for _, t := range terms {
				d.Set(i, u*dimOut+t.C,
					d.At(i, u*dimOut+t.C)+t.Coef*a.Data.At(i, u*dimA+t.A)*b.Data.At(i, u*dimB+t.B))
			}
		}
	}
	return ad.FromOp(d, func(g *mat.Dense) {
		for i := 0; i < n; i++ {
			for u := 0; u < mul; u++ {
				for _, t := range terms {
					gv := g.At(i, u*dimOut+t.C) * t.Coef
					av := a.Data.At(i, u*dimA+t.A)
					bv := b.Data.At(i, u*dimB+t.B)
					a.Grad.Set(i, u*dimA+t.A, a.Grad.At(i, u*dimA+t.A)+gv*bv)
					b.Grad.Set(i, u*dimB+t.B, b.Grad.At(i, u*dimB+t.B)+gv*av)
				}
			}
		}
	}, a, b)
}

func (P *ProductBasis) String() string {
	return fmt.Sprintf("ProductBasis(%v -> %v, correlation %d, %d basis functions)",
		P.In, P.Out, P.Correlation, P.NumBasis())
}

//NextPolyOrder advances the polynomial-order tracker the way the layer
//stack does: correlation*(order+maxl) without a cap, correlation*order
//plus the cap otherwise. The tracked value only drives the optional
//truncation above, never the results of an untruncated model.
func NextPolyOrder(correlation, order, maxl, maxPolyOrder int) int {
	if maxPolyOrder < 0 {
		return correlation * (order + maxl)
	}
	return correlation*order + maxPolyOrder
}
