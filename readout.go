/*
 * readout.go, part of gomace.
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
	"github.com/rmera/gomace/ad"
	"github.com/rmera/gomace/irreps"
)

//Readouts turn the node features of a layer into one scalar energy
//contribution per node. Only the scalar (0e) part of the features can
//reach the energy; an invariant output built from anything else would
//not be invariant. Readouts carry no biases, so a node with all-zero
//features contributes exactly zero, which keeps isolated atoms at their
//reference energies.

//Readout is one per-layer energy head.
type Readout interface {
	Apply(ps boundParams, x *ad.Tensor) *ad.Tensor //[nodes x in] -> [nodes x 1]
}

var scalarOut = irreps.Irreps{{Mul: 1, Ir: irreps.Irrep{L: 0, P: irreps.Even}}}

//LinearReadout maps the scalar channels of x straight to one number per
//node. Used on every layer but the last.
type LinearReadout struct {
	In  irreps.Irreps
	lin *Linear
}

func NewLinearReadout(path string, in irreps.Irreps, reg *paramReg) *LinearReadout {
	return &LinearReadout{In: in, lin: NewLinear(path, in, scalarOut, reg)}
}

func (R *LinearReadout) Apply(ps boundParams, x *ad.Tensor) *ad.Tensor {
	return R.lin.Apply(ps, x)
}

//NonlinearReadout adds one hidden layer of activated scalars before the
//final projection. Used on the last layer, where a purely linear head
//would waste the highest body-order features.
type NonlinearReadout struct {
	In, Hidden irreps.Irreps
	Act        Activation
	lin1, lin2 *Linear
}

//NewNonlinearReadout wires the head. hidden must be scalars only; the
//activation acts elementwise and anything of higher degree would lose
//equivariance under it.
func NewNonlinearReadout(path string, in, hidden irreps.Irreps, act Activation, reg *paramReg) (*NonlinearReadout, error) {
	for _, v := range hidden {
		if v.Ir.L != 0 || v.Ir.P != irreps.Even {
			return nil, configErrorf("goMace: nonlinear readout hidden signature %v must be 0e only", hidden)
		}
	}
	return &NonlinearReadout{In: in, Hidden: hidden, Act: act,
		lin1: NewLinear(path+"/hidden", in, hidden, reg),
		lin2: NewLinear(path+"/out", hidden, scalarOut, reg)}, nil
}

func (R *NonlinearReadout) Apply(ps boundParams, x *ad.Tensor) *ad.Tensor {
	h := R.lin1.Apply(ps, x)
	h = R.Act.apply(h)
	return R.lin2.Apply(ps, h)
}

//ScaleShift applies the fixed affine map scale*x+shift to per-node
//energies, undoing the normalization of the training targets. The two
//constants come from dataset statistics and are not learnable.
type ScaleShift struct {
	Scale, Shift float64
}

func (S ScaleShift) Apply(x *ad.Tensor) *ad.Tensor {
	return ad.Shift(S.Shift, ad.Scale(S.Scale, x))
}

//AtomicEnergies holds the per-species reference energy added to every
//node outside the learned part of the model. When path is set the
//table lives in the parameter tree instead, so it can be fitted along
//with the rest of the model; E0 then only provides the initial values.
type AtomicEnergies struct {
	E0   []float64 //indexed by species
	path string    //parameter path; "" means fixed
}

func NewAtomicEnergies(e0 []float64) AtomicEnergies {
	c := make([]float64, len(e0))
	copy(c, e0)
	return AtomicEnergies{E0: c}
}

//Column returns the [nodes x 1] reference-energy column for the given
//species indices: a graph constant for a fixed table, a gather from the
//parameter tree for a learnable one.
func (A AtomicEnergies) Column(ps boundParams, species []int) *ad.Tensor {
	if A.path != "" {
		return ad.Gather(ps[A.path], species)
	}
	t := ad.Zeros(len(species), 1)
	for i, s := range species {
		t.Data.Set(i, 0, A.E0[s])
	}
	return t
}

//value reads one species' reference energy outside a tape evaluation.
func (A AtomicEnergies) value(P *Params, s int) float64 {
	if A.path != "" {
		return P.Get(A.path).At(s, 0)
	}
	return A.E0[s]
}
