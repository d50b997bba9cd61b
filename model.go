/*
 * model.go, part of gomace.
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
)

//Config collects everything needed to build a model. The zero value is
//not usable; fill at least Cutoff, NumSpecies and AvgNumNeighbors and
//leave the rest to the defaults applied by New.
type Config struct {
	Cutoff          float64       //graph cutoff radius, Angstrom
	NumLayers       int           //message-passing layers (default 2)
	Hidden          irreps.Irreps //node feature signature between layers (default 32x0e+32x1o+32x2e)
	ReadoutHidden   irreps.Irreps //hidden scalars of the last readout (default 16x0e)
	MaxL            int           //highest angular degree carried anywhere (default 2)
	Correlation     int           //correlation order of the product basis (default 3)
	NumBessel       int           //radial basis size (default 8)
	RadialHidden    int           //hidden width of the radial networks (default 64)
	Activation      Activation    //pointwise nonlinearity (default SiLU)
	NumSpecies      int
	AvgNumNeighbors float64  //dataset statistic; see AvgNumNeighbors
	AvgRMin         float64  //radial-basis normalization distance, 0 disables; see AvgMinNeighborDistance
	Epsilon         *float64 //overrides 1/sqrt(AvgNumNeighbors) when set
	MaxPolyOrder    *int     //optional cap on the tracked polynomial order
	Envelope        Envelope //cutoff envelope (default soft)

	AtomicEnergies          []float64 //per-species reference energies (default zeros)
	LearnableAtomicEnergies bool      //register the reference energies as a parameter
	Scale                   float64   //scale of the learned contribution (default 1)
	Shift                   float64   //shift of the learned contribution (default 0)
}

type layer struct {
	inter   *Interaction
	prod    *ProductBasis
	readout Readout
}

//Model is a ready-to-evaluate interatomic potential: the full layer
//stack, plus the parameter specs collected while wiring it. Model
//itself holds no parameter values; those live in a Params tree created
//by Init or LoadParams and passed to every evaluation.
type Model struct {
	Conf     Config
	Radial   *RadialEmbedding
	Angular  *SphericalHarmonics
	layers   []layer
	energies AtomicEnergies
	scaling  ScaleShift
	embedPth string
	specs    []ParamSpec
	norm     float64
}

//New builds a model from the configuration, wiring every layer and
//collecting the parameter specs. All shape inference happens here;
//after New succeeds, evaluation cannot fail on shapes.
func New(conf Config) (*Model, error) {
	if conf.Cutoff <= 0 {
		return nil, configErrorf("goMace: cutoff must be positive, got %g", conf.Cutoff)
	}
	if conf.NumSpecies < 1 {
		return nil, configErrorf("goMace: need at least one species, got %d", conf.NumSpecies)
	}
	if conf.NumLayers == 0 {
		conf.NumLayers = 2
	}
	if conf.MaxL == 0 {
		conf.MaxL = 2
	}
	if conf.Correlation == 0 {
		conf.Correlation = 3
	}
	if conf.NumBessel == 0 {
		conf.NumBessel = 8
	}
	if conf.RadialHidden == 0 {
		conf.RadialHidden = 64
	}
	if conf.Activation == "" {
		conf.Activation = SiLU
	}
	if !conf.Activation.valid() {
		return nil, configErrorf("goMace: unknown activation %q", conf.Activation)
	}
	if conf.Hidden == nil {
		//spherical-harmonic parities only; the opposite-parity labels
		//are not reachable from the first layer.
		for l := 0; l <= conf.MaxL; l++ {
			conf.Hidden = append(conf.Hidden, irreps.MulIrrep{Mul: 32, Ir: irreps.SphericalHarmonic(l)})
		}
	}
	if conf.ReadoutHidden == nil {
		conf.ReadoutHidden = irreps.Irreps{{Mul: 16, Ir: irreps.Irrep{L: 0, P: irreps.Even}}}
	}
	if conf.Scale == 0 {
		conf.Scale = 1
	}
	if conf.AtomicEnergies == nil {
		conf.AtomicEnergies = make([]float64, conf.NumSpecies)
	}
	if len(conf.AtomicEnergies) != conf.NumSpecies {
		return nil, configErrorf("goMace: %d atomic energies for %d species", len(conf.AtomicEnergies), conf.NumSpecies)
	}
	mul, ok := conf.Hidden.UniformMul()
	if !ok {
		return nil, configErrorf("goMace: hidden signature %v must have uniform multiplicity", conf.Hidden)
	}
	if !conf.Hidden.Contains(irreps.Irrep{L: 0, P: irreps.Even}) {
		return nil, configErrorf("goMace: hidden signature %v has no scalar channel", conf.Hidden)
	}
	if conf.Hidden.MaxL() > conf.MaxL {
		return nil, configErrorf("goMace: hidden signature %v exceeds maximum degree %d", conf.Hidden, conf.MaxL)
	}
	if conf.AvgNumNeighbors <= 0 && conf.Epsilon == nil {
		return nil, configErrorf("goMace: set AvgNumNeighbors (see Statistics) or Epsilon")
	}

	M := &Model{Conf: conf, energies: NewAtomicEnergies(conf.AtomicEnergies),
		scaling: ScaleShift{Scale: conf.Scale, Shift: conf.Shift}}
	if conf.Epsilon != nil {
		M.norm = *conf.Epsilon
	} else {
		M.norm = 1 / math.Sqrt(conf.AvgNumNeighbors)
	}
	var err error
	M.Radial, err = NewRadialEmbedding(conf.Cutoff, conf.NumBessel, conf.AvgRMin, conf.Envelope)
	if err != nil {
		return nil, err
	}
	M.Angular, err = NewSphericalHarmonics(conf.MaxL)
	if err != nil {
		return nil, err
	}

	reg := newParamReg()
	M.embedPth = "embedding"
	reg.add(M.embedPth, conf.NumSpecies, mul)
	if conf.LearnableAtomicEnergies {
		M.energies.path = "atomic_energies"
		reg.add(M.energies.path, conf.NumSpecies, 1)
	}
	polyCap := -1
	if conf.MaxPolyOrder != nil {
		polyCap = *conf.MaxPolyOrder
	}
	in := irreps.Irreps{{Mul: mul, Ir: irreps.Irrep{L: 0, P: irreps.Even}}}
	order := 0
	for li := 0; li < conf.NumLayers; li++ {
		path := layerPath(li)
		residual := li > 0
		inter, err := NewInteraction(path+"/interaction", in, mul, conf.MaxL,
			conf.Hidden, conf.NumSpecies, conf.NumBessel, conf.RadialHidden, conf.Activation, residual, reg)
		if err != nil {
			return nil, errDecorate(err, "goMace.New")
		}
		//the layer's truncation budget is the advanced tracker value, not
		//the raw cap: later layers start from an already-high input order
		//and must be allowed to grow beyond it.
		budget := NextPolyOrder(conf.Correlation, order, conf.MaxL, polyCap)
		prod, err := NewProductBasis(path+"/product", inter.Target, conf.Hidden,
			mul, conf.MaxL, conf.Correlation, order, budget, conf.NumSpecies, reg)
		if err != nil {
			return nil, errDecorate(err, "goMace.New")
		}
		var ro Readout
		if li == conf.NumLayers-1 {
			ro, err = NewNonlinearReadout(path+"/readout", conf.Hidden, conf.ReadoutHidden, conf.Activation, reg)
			if err != nil {
				return nil, errDecorate(err, "goMace.New")
			}
		} else {
			ro = NewLinearReadout(path+"/readout", conf.Hidden, reg)
		}
		M.layers = append(M.layers, layer{inter: inter, prod: prod, readout: ro})
		order = budget
		in = conf.Hidden
	}
	M.specs = reg.specs
	return M, nil
}

func layerPath(i int) string {
	return fmt.Sprintf("layer%d", i)
}

//Specs returns the ordered parameter specs of the model.
func (M *Model) Specs() []ParamSpec {
	return M.specs
}

//Init returns a fresh parameter tree, deterministic in the seed.
//Learnable atomic energies start at their configured values, not at
//random.
func (M *Model) Init(seed int64) *Params {
	P := initParams(M.specs, seed)
	if M.energies.path != "" {
		t := P.Tensors[M.energies.path]
		for s, e := range M.energies.E0 {
			t.Set(s, 0, e)
		}
	}
	return P
}

//CheckParams validates a parameter tree against the model's specs.
func (M *Model) CheckParams(P *Params) error {
	return checkParams(M.specs, P)
}

//NumLayers returns the number of message-passing layers.
func (M *Model) NumLayers() int {
	return len(M.layers)
}

//Forward runs the layer stack on one (possibly padded) graph and
//returns the raw per-node, per-layer energy contributions as a
//[nodes x NumLayers] tensor. vectors holds one displacement per edge,
//receiver minus sender position (plus the periodic shift, if any);
//species, senders and receivers index nodes. Scaling, reference
//energies, masking and graph reduction are the Evaluator's business.
func (M *Model) Forward(ps boundParams, vectors *ad.Tensor, species, senders, receivers []int) *ad.Tensor {
	lengths := ad.SafeRowNorm(vectors, 1e-10)
	unit := ad.DivCols(vectors, lengths)
	radial := M.Radial.Embed(lengths)
	sh := M.Angular.Embed(unit)
	pairIdx := make([]int, len(senders))
	for e := range senders {
		pairIdx[e] = species[senders[e]]*M.Conf.NumSpecies + species[receivers[e]]
	}
	feats := ad.Scale(1/math.Sqrt(float64(M.Conf.NumSpecies)), ad.Gather(ps[M.embedPth], species))
	cols := make([]*ad.Tensor, 0, len(M.layers))
	for _, ly := range M.layers {
		down, sc := ly.inter.Forward(ps, feats, sh, radial, species, senders, receivers,
			pairIdx, len(species), M.norm)
		feats = ly.prod.Forward(ps, down, species)
		if sc != nil {
			feats = ad.Add(feats, sc)
		}
		cols = append(cols, ly.readout.Apply(ps, feats))
	}
	if len(cols) == 1 {
		return cols[0]
	}
	return ad.ConcatCols(cols...)
}
