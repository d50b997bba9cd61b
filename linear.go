/*
 * linear.go, part of gomace.
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
	"math"

	"github.com/rmera/gomace/ad"
	"github.com/rmera/gomace/irreps"
	"gonum.org/v1/gonum/mat"
)

//Learnable linear maps over irrep-labeled tensors. A linear map can only
//connect input and output entries carrying the same label; anything else
//would break equivariance. Weights are stored normal(0,1) and the maps
//rescale by the fan-in, following the usual variance-preserving
//convention, so initialization stays distribution-free.

//mulIrrepOp computes out[i, v*m+k] = scale * sum_u x[i, u*m+k]*w[u,v],
//the action of a [mulIn x mulOut] weight on the multiplicity index of a
//single irrep block with 2l+1 = m components.
func mulIrrepOp(x, w *ad.Tensor, mulIn, mulOut, m int, scale float64) *ad.Tensor {
	n, _ := x.Dims()
	d := mat.NewDense(n, mulOut*m, nil)
	for i := 0; i < n; i++ {
		for v := 0; v < mulOut; v++ {
			for k := 0; k < m; k++ {
				acc := 0.0
				for u := 0; u < mulIn; u++ {
					acc += x.Data.At(i, u*m+k) * w.Data.At(u, v)
				}
				d.Set(i, v*m+k, scale*acc)
			}
		}
	}
	return ad.FromOp(d, func(g *mat.Dense) {
		for i := 0; i < n; i++ {
			for u := 0; u < mulIn; u++ {
				for k := 0; k < m; k++ {
					acc := 0.0
					for v := 0; v < mulOut; v++ {
						acc += g.At(i, v*m+k) * w.Data.At(u, v)
					}
					x.Grad.Set(i, u*m+k, x.Grad.At(i, u*m+k)+scale*acc)
				}
			}
		}
		for u := 0; u < mulIn; u++ {
			for v := 0; v < mulOut; v++ {
				acc := 0.0
				for i := 0; i < n; i++ {
					for k := 0; k < m; k++ {
						acc += x.Data.At(i, u*m+k) * g.At(i, v*m+k)
					}
				}
				w.Grad.Set(u, v, w.Grad.At(u, v)+scale*acc)
			}
		}
	}, x, w)
}

//mulIrrepSpeciesOp is mulIrrepOp with one weight matrix per species: w
//holds one row per species, reshaped to [mulIn x mulOut], and row i of x
//uses the weights of species[i].
func mulIrrepSpeciesOp(x, w *ad.Tensor, species []int, mulIn, mulOut, m int, scale float64) *ad.Tensor {
	n, _ := x.Dims()
	d := mat.NewDense(n, mulOut*m, nil)
	for i := 0; i < n; i++ {
		s := species[i]
		for v := 0; v < mulOut; v++ {
			for k := 0; k < m; k++ {
				acc := 0.0
				for u := 0; u < mulIn; u++ {
					acc += x.Data.At(i, u*m+k) * w.Data.At(s, u*mulOut+v)
				}
				d.Set(i, v*m+k, scale*acc)
			}
		}
	}
	return ad.FromOp(d, func(g *mat.Dense) {
		for i := 0; i < n; i++ {
			s := species[i]
			for u := 0; u < mulIn; u++ {
				for k := 0; k < m; k++ {
					acc := 0.0
					for v := 0; v < mulOut; v++ {
						acc += g.At(i, v*m+k) * w.Data.At(s, u*mulOut+v)
					}
					x.Grad.Set(i, u*m+k, x.Grad.At(i, u*m+k)+scale*acc)
				}
				for v := 0; v < mulOut; v++ {
					acc := 0.0
					for k := 0; k < m; k++ {
						acc += x.Data.At(i, u*m+k) * g.At(i, v*m+k)
					}
					w.Grad.Set(s, u*mulOut+v, w.Grad.At(s, u*mulOut+v)+scale*acc)
				}
			}
		}
	}, x, w)
}

//speciesMatMul multiplies row i of x by the [in x out] matrix stored as
//row idx[i] of w: a dense linear layer whose weights depend on a
//per-row discrete attribute (a species, or a species pair).
func speciesMatMul(x, w *ad.Tensor, idx []int, in, out int, scale float64) *ad.Tensor {
	n, _ := x.Dims()
	d := mat.NewDense(n, out, nil)
	for i := 0; i < n; i++ {
		s := idx[i]
		for v := 0; v < out; v++ {
			acc := 0.0
			for u := 0; u < in; u++ {
				acc += x.Data.At(i, u) * w.Data.At(s, u*out+v)
			}
			d.Set(i, v, scale*acc)
		}
	}
	return ad.FromOp(d, func(g *mat.Dense) {
		for i := 0; i < n; i++ {
			s := idx[i]
			for u := 0; u < in; u++ {
				acc := 0.0
				for v := 0; v < out; v++ {
					acc += g.At(i, v) * w.Data.At(s, u*out+v)
					w.Grad.Set(s, u*out+v, w.Grad.At(s, u*out+v)+scale*x.Data.At(i, u)*g.At(i, v))
				}
				x.Grad.Set(i, u, x.Grad.At(i, u)+scale*acc)
			}
		}
	}, x, w)
}

//linBlock connects input entry in to output entry out of a Linear; both
//carry the same irrep label.
type linBlock struct {
	in, out int
	path    string
}

//Linear is an equivariant linear layer between two declared signatures.
//Output entries with no matching input label stay zero.
type Linear struct {
	In, Out irreps.Irreps
	blocks  []linBlock
	fanIn   []int //per output entry
}

//NewLinear wires a linear layer and registers its weights under path.
func NewLinear(path string, in, out irreps.Irreps, reg *paramReg) *Linear {
	L := &Linear{In: in, Out: out, fanIn: make([]int, len(out))}
	for oi, ov := range out {
		for ii, iv := range in {
			if iv.Ir == ov.Ir {
				p := fmt.Sprintf("%s/w%d.%d", path, ii, oi)
				reg.add(p, iv.Mul, ov.Mul)
				L.blocks = append(L.blocks, linBlock{in: ii, out: oi, path: p})
				L.fanIn[oi] += iv.Mul
			}
		}
	}
	return L
}

//Apply maps x (signature In) to a fresh tensor with signature Out.
func (L *Linear) Apply(ps boundParams, x *ad.Tensor) *ad.Tensor {
	n, _ := x.Dims()
	outs := make([]*ad.Tensor, len(L.Out))
	for _, b := range L.blocks {
		iv := L.In[b.in]
		ov := L.Out[b.out]
		xs := ad.SliceCols(x, L.In.Offset(b.in), L.In.Offset(b.in)+iv.Dim())
		scale := 1 / math.Sqrt(float64(L.fanIn[b.out]))
		y := mulIrrepOp(xs, ps[b.path], iv.Mul, ov.Mul, ov.Ir.Dim(), scale)
		if outs[b.out] == nil {
			outs[b.out] = y
		} else {
			outs[b.out] = ad.Add(outs[b.out], y)
		}
	}
	for oi, ov := range L.Out {
		if outs[oi] == nil {
			outs[oi] = ad.Zeros(n, ov.Dim())
		}
	}
	if len(outs) == 1 {
		return outs[0]
	}
	return ad.ConcatCols(outs...)
}

//SpeciesLinear is Linear with one weight set per species: the map
//applied to a node depends on the node's own species. It implements the
//species-gated self-connection and the product-basis mixing.
type SpeciesLinear struct {
	In, Out    irreps.Irreps
	NumSpecies int
	blocks     []linBlock
	fanIn      []int
}

//NewSpeciesLinear wires the layer and registers one stacked weight
//tensor per block, with one row per species.
func NewSpeciesLinear(path string, in, out irreps.Irreps, numSpecies int, reg *paramReg) *SpeciesLinear {
	L := &SpeciesLinear{In: in, Out: out, NumSpecies: numSpecies, fanIn: make([]int, len(out))}
	for oi, ov := range out {
		for ii, iv := range in {
			if iv.Ir == ov.Ir {
				p := fmt.Sprintf("%s/w%d.%d", path, ii, oi)
				reg.add(p, numSpecies, iv.Mul*ov.Mul)
				L.blocks = append(L.blocks, linBlock{in: ii, out: oi, path: p})
				L.fanIn[oi] += iv.Mul
			}
		}
	}
	return L
}

//Apply maps x to signature Out using the weights of each node's species.
func (L *SpeciesLinear) Apply(ps boundParams, x *ad.Tensor, species []int) *ad.Tensor {
	n, _ := x.Dims()
	outs := make([]*ad.Tensor, len(L.Out))
	for _, b := range L.blocks {
		iv := L.In[b.in]
		ov := L.Out[b.out]
		xs := ad.SliceCols(x, L.In.Offset(b.in), L.In.Offset(b.in)+iv.Dim())
		scale := 1 / math.Sqrt(float64(L.fanIn[b.out]))
		y := mulIrrepSpeciesOp(xs, ps[b.path], species, iv.Mul, ov.Mul, ov.Ir.Dim(), scale)
		if outs[b.out] == nil {
			outs[b.out] = y
		} else {
			outs[b.out] = ad.Add(outs[b.out], y)
		}
	}
	for oi, ov := range L.Out {
		if outs[oi] == nil {
			outs[oi] = ad.Zeros(n, ov.Dim())
		}
	}
	if len(outs) == 1 {
		return outs[0]
	}
	return ad.ConcatCols(outs...)
}

//RadialMLP turns the radial embedding of an edge into one weight per
//tensor-product path and channel, with a different network for every
//(sender species, receiver species) pair. One hidden layer with the
//configured activation is enough for the smooth radial profiles
//involved.
type RadialMLP struct {
	NumIn, Hidden, NumOut int
	Act                   Activation
	w1, w2                string
}

//NewRadialMLP registers the two weight stacks, one row per species pair.
func NewRadialMLP(path string, numIn, hidden, numOut, numSpecies int, act Activation, reg *paramReg) *RadialMLP {
	M := &RadialMLP{NumIn: numIn, Hidden: hidden, NumOut: numOut, Act: act,
		w1: path + "/w1", w2: path + "/w2"}
	reg.add(M.w1, numSpecies*numSpecies, numIn*hidden)
	reg.add(M.w2, numSpecies*numSpecies, hidden*numOut)
	return M
}

//Apply evaluates the networks on the [edges x NumIn] radial features,
//pairIdx giving each edge's species-pair row.
func (M *RadialMLP) Apply(ps boundParams, radial *ad.Tensor, pairIdx []int) *ad.Tensor {
	h := speciesMatMul(radial, ps[M.w1], pairIdx, M.NumIn, M.Hidden, 1/math.Sqrt(float64(M.NumIn)))
	h = M.Act.apply(h)
	return speciesMatMul(h, ps[M.w2], pairIdx, M.Hidden, M.NumOut, 1/math.Sqrt(float64(M.Hidden)))
}
