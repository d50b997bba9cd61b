/*
 * interaction.go, part of gomace.
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

//convPath is one allowed coupling in the convolution: input entry In
//(degree l1) times the degree-ShL edge harmonic into output label Out.
type convPath struct {
	in    int
	shL   int
	out   irreps.Irrep
	terms []irreps.Term
}

//Interaction mixes one hop of neighbor information into the node
//features: a linear pre-mix, a depthwise tensor product of sender
//features with the edge harmonics (every coupling allowed by the
//selection rule up to MaxL), per-edge path weights from the radial
//network of the bonded species pair, a sum over incoming edges
//normalized against the average node degree, and a linear post-mix.
//
//The first layer of a model has nothing meaningful to skip-connect, so
//it carries no self-connection; later layers also return a
//species-gated linear image of their input, which the caller adds back
//after the product basis. The variant is fixed at construction.
type Interaction struct {
	In       irreps.Irreps //node features entering the layer
	Target   irreps.Irreps //conv output after the post-mix
	Hidden   irreps.Irreps //self-connection output (residual variant)
	Mul      int
	MaxL     int
	Residual bool

	linUp   *Linear
	mlp     *RadialMLP
	linDown *Linear
	skip    *SpeciesLinear
	paths   []convPath
	convOut irreps.Irreps //one entry per path, in path order
}

//NewInteraction wires one layer. in must have uniform multiplicity mul.
//The target signature is every label up to maxl reachable from in
//through the edge harmonics; requesting anything else is not possible
//by construction, which is the point of inferring it here.
func NewInteraction(path string, in irreps.Irreps, mul, maxl int, hidden irreps.Irreps, numSpecies, numBasis, radialHidden int, act Activation, residual bool, reg *paramReg) (*Interaction, error) {
	if m, ok := in.UniformMul(); !ok || m != mul {
		return nil, configErrorf("goMace: interaction input %v must have uniform multiplicity %d", in, mul)
	}
	I := &Interaction{In: in, Hidden: hidden, Mul: mul, MaxL: maxl, Residual: residual}
	I.linUp = NewLinear(path+"/up", in, in, reg)
	//enumerate every coupling the selection rule allows, keeping
	//outputs within maxl.
	reached := map[irreps.Irrep]bool{}
	for ii, iv := range in {
		for l2 := 0; l2 <= maxl; l2++ {
			sh := irreps.SphericalHarmonic(l2)
			for _, out := range iv.Ir.ProductRange(sh) {
				if out.L > maxl {
					continue
				}
				I.paths = append(I.paths, convPath{in: ii, shL: l2, out: out,
					terms: irreps.Couple(iv.Ir.L, l2, out.L)})
				I.convOut = append(I.convOut, irreps.MulIrrep{Mul: mul, Ir: out})
				reached[out] = true
			}
		}
	}
	if len(I.paths) == 0 {
		return nil, configErrorf("goMace: no allowed couplings from %v with maxl=%d", in, maxl)
	}
	//the post-mix target regroups the reached labels, one entry each.
	for l := 0; l <= maxl; l++ {
		for _, p := range []int{irreps.Even, irreps.Odd} {
			ir := irreps.Irrep{L: l, P: p}
			if reached[ir] {
				I.Target = append(I.Target, irreps.MulIrrep{Mul: mul, Ir: ir})
			}
		}
	}
	I.mlp = NewRadialMLP(path+"/radial", numBasis, radialHidden, len(I.paths)*mul, numSpecies, act, reg)
	I.linDown = NewLinear(path+"/down", I.convOut, I.Target, reg)
	if residual {
		I.skip = NewSpeciesLinear(path+"/skip", in, hidden, numSpecies, reg)
	}
	return I, nil
}

//Forward runs the layer. norm is the configured neighbor normalization
//(an epsilon, or 1/sqrt(avg. neighbors)); it is applied right after the
//edge sum, with or without a self-connection, so both variants scale
//identically. The self-connection return is nil for the first-layer
//variant.
func (I *Interaction) Forward(ps boundParams, nodeFeats, shFeats, radialFeats *ad.Tensor, species, senders, receivers, pairIdx []int, nNodes int, norm float64) (*ad.Tensor, *ad.Tensor) {
	up := I.linUp.Apply(ps, nodeFeats)
	xs := ad.Gather(up, senders)
	w := I.mlp.Apply(ps, radialFeats, pairIdx)
	msg := I.convolve(xs, shFeats, w)
	agg := ad.ScatterSum(msg, receivers, nNodes)
	agg = ad.Scale(norm, agg)
	down := I.linDown.Apply(ps, agg)
	var sc *ad.Tensor
	if I.Residual {
		sc = I.skip.Apply(ps, nodeFeats, species)
	}
	return down, sc
}

//convolve computes the weighted depthwise tensor product per edge:
//channel u of the sender features couples with the (single-copy) edge
//harmonics into channel u of each path's output, scaled by that path's
//and channel's radial weight.
func (I *Interaction) convolve(x, sh, w *ad.Tensor) *ad.Tensor {
	e, _ := x.Dims()
	mul := I.Mul
	shSig := irreps.SphericalSignature(I.MaxL)
	d := mat.NewDense(e, I.convOut.Dim(), nil)
	for pi, p := range I.paths {
		inOff := I.In.Offset(p.in)
		shOff := shSig.Offset(p.shL)
		outOff := I.convOut.Offset(pi)
		dimIn := I.In[p.in].Ir.Dim()
		dimOut := p.out.Dim()
		for i := 0; i < e; i++ {
			for u := 0; u < mul; u++ {
				wv := w.Data.At(i, pi*mul+u)
				if wv == 0 {
					continue
				}
				for _, t := range p.terms {
					d.Set(i, outOff+u*dimOut+t.C,
						d.At(i, outOff+u*dimOut+t.C)+
							wv*t.Coef*x.Data.At(i, inOff+u*dimIn+t.A)*sh.Data.At(i, shOff+t.B))
				}
			}
		}
	}
	paths := I.paths
	in := I.In
	convOut := I.convOut
	return ad.FromOp(d, func(g *mat.Dense) {
		for pi, p := range paths {
			inOff := in.Offset(p.in)
			shOff := shSig.Offset(p.shL)
			outOff := convOut.Offset(pi)
			dimIn := in[p.in].Ir.Dim()
			dimOut := p.out.Dim()
			for i := 0; i < e; i++ {
				for u := 0; u < mul; u++ {
					wv := w.Data.At(i, pi*mul+u)
					var wg float64
					for _, t := range p.terms {
						gv := g.At(i, outOff+u*dimOut+t.C) * t.Coef
						xv := x.Data.At(i, inOff+u*dimIn+t.A)
						sv := sh.Data.At(i, shOff+t.B)
						x.Grad.Set(i, inOff+u*dimIn+t.A, x.Grad.At(i, inOff+u*dimIn+t.A)+gv*wv*sv)
						sh.Grad.Set(i, shOff+t.B, sh.Grad.At(i, shOff+t.B)+gv*wv*xv)
						wg += gv * xv * sv
					}
					w.Grad.Set(i, pi*mul+u, w.Grad.At(i, pi*mul+u)+wg)
				}
			}
		}
	}, x, sh, w)
}

//NumPaths returns how many couplings the layer carries; handy for
//sizing checks in tests.
func (I *Interaction) NumPaths() int {
	return len(I.paths)
}

func (I *Interaction) String() string {
	kind := "first"
	if I.Residual {
		kind = "residual"
	}
	return fmt.Sprintf("Interaction(%s, %v -> %v, %d paths)", kind, I.In, I.Target, len(I.paths))
}
