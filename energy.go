/*
 * energy.go, part of gomace.
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
	"gonum.org/v1/gonum/mat"
)

//Graph is one batch of atomic systems in padded graph form. Several
//systems share the node and edge arrays; NodeGraph says which system
//each node belongs to. Padding nodes (NodeMask false) must only be
//touched by padding edges, and padding edges must connect padding nodes
//to padding nodes; Pad in the batch package builds graphs that satisfy
//this.
type Graph struct {
	Positions *mat.Dense //[nodes x 3]
	Species   []int      //contiguous species index per node
	Senders   []int      //edge source node
	Receivers []int      //edge destination node
	Shifts    *mat.Dense //[edges x 3] unit-cell shift counts, nil for open boundaries
	Cell      *mat.Dense //[3 x 3] lattice vectors as rows, nil for open boundaries
	NodeGraph []int      //graph index per node, nil means a single graph
	NodeMask  []bool     //false marks padding, nil means no padding
	EdgeMask  []bool     //false marks padding edges
	NumGraphs int        //zero means one
}

func (g *Graph) numGraphs() int {
	if g.NumGraphs == 0 {
		return 1
	}
	return g.NumGraphs
}

func (g *Graph) nodeReal(i int) bool {
	return g.NodeMask == nil || g.NodeMask[i]
}

func (g *Graph) edgeReal(e int) bool {
	return g.EdgeMask == nil || g.EdgeMask[e]
}

//Result holds one evaluation: total energy per system, per-node
//energies, and the force on every atom (padding rows are zero).
type Result struct {
	Energies     []float64  //per graph
	NodeEnergies []float64  //per node, masked
	Forces       *mat.Dense //[nodes x 3]
}

//Evaluate computes energies and forces for a batch. Forces come from
//one reverse pass through the whole computation, as minus the gradient
//of the summed energy with respect to the positions; energies of
//different systems in the batch never mix, so the shared pass is exact.
func (M *Model) Evaluate(P *Params, g *Graph) (*Result, error) {
	res, _, err := M.evaluate(P, g)
	return res, err
}

//Gradients evaluates the batch and additionally returns the parameter
//gradients of the total energy, for training loops that fit energies.
func (M *Model) Gradients(P *Params, g *Graph) (*Result, map[string]*mat.Dense, error) {
	res, ps, err := M.evaluate(P, g)
	if err != nil {
		return nil, nil, err
	}
	return res, ps.Gradients(), nil
}

func (M *Model) evaluate(P *Params, g *Graph) (*Result, boundParams, error) {
	if err := M.checkGraph(g); err != nil {
		return nil, nil, err
	}
	nn := len(g.Species)
	ne := len(g.Senders)
	if ne == 0 {
		//no neighbors, nothing learned: every atom sits at its
		//reference energy plus the dataset shift.
		return M.noEdgeResult(P, g, nn), P.bind(), nil
	}
	pos := ad.NewTensor(mat.DenseCopyOf(g.Positions))
	vectors := ad.Sub(ad.Gather(pos, g.Receivers), ad.Gather(pos, g.Senders))
	if g.Shifts != nil && g.Cell != nil {
		disp := mat.NewDense(ne, 3, nil)
		disp.Mul(g.Shifts, g.Cell)
		vectors = ad.Add(vectors, ad.NewTensor(disp))
	}
	//two real atoms on top of each other have no meaningful potential
	//energy; refuse rather than return an envelope-smoothed artifact.
	for e := 0; e < ne; e++ {
		if !g.edgeReal(e) {
			continue
		}
		r := mat.Norm(vectors.Data.RowView(e), 2)
		if r < 1e-8 {
			return nil, nil, domainErrorf("goMace: atoms %d and %d are superimposed (r=%.2e)", g.Senders[e], g.Receivers[e], r)
		}
	}
	ps := P.bind()
	contrib := M.Forward(ps, vectors, g.Species, g.Senders, g.Receivers)
	nodeE := M.scaling.Apply(ad.SumRows(contrib))
	nodeE = ad.Add(nodeE, M.energies.Column(ps, g.Species))
	if g.NodeMask != nil {
		m := ad.Zeros(nn, 1)
		for i := 0; i < nn; i++ {
			if g.NodeMask[i] {
				m.Data.Set(i, 0, 1)
			}
		}
		nodeE = ad.ColScale(nodeE, m)
	}
	idx := g.NodeGraph
	if idx == nil {
		idx = make([]int, nn)
	}
	graphE := ad.ScatterSum(nodeE, idx, g.numGraphs())
	total := ad.SumAll(graphE)
	if err := ad.Backward(total); err != nil {
		return nil, nil, err
	}
	res := &Result{
		Energies:     make([]float64, g.numGraphs()),
		NodeEnergies: make([]float64, nn),
		Forces:       mat.NewDense(nn, 3, nil),
	}
	for i := range res.Energies {
		res.Energies[i] = graphE.Data.At(i, 0)
	}
	for i := 0; i < nn; i++ {
		res.NodeEnergies[i] = nodeE.Data.At(i, 0)
		if !g.nodeReal(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			res.Forces.Set(i, j, -pos.Grad.At(i, j))
		}
	}
	return res, ps, nil
}

func (M *Model) noEdgeResult(P *Params, g *Graph, nn int) *Result {
	res := &Result{
		Energies:     make([]float64, g.numGraphs()),
		NodeEnergies: make([]float64, nn),
		Forces:       mat.NewDense(nn, 3, nil),
	}
	for i := 0; i < nn; i++ {
		if !g.nodeReal(i) {
			continue
		}
		e := M.scaling.Shift + M.energies.value(P, g.Species[i])
		res.NodeEnergies[i] = e
		gi := 0
		if g.NodeGraph != nil {
			gi = g.NodeGraph[i]
		}
		res.Energies[gi] += e
	}
	return res
}

func (M *Model) checkGraph(g *Graph) error {
	nn := len(g.Species)
	pr, pc := g.Positions.Dims()
	if pr != nn || pc != 3 {
		return shapeErrorf("goMace: positions are %dx%d for %d nodes", pr, pc, nn)
	}
	if len(g.Senders) != len(g.Receivers) {
		return shapeErrorf("goMace: %d senders vs %d receivers", len(g.Senders), len(g.Receivers))
	}
	if g.EdgeMask != nil && len(g.EdgeMask) != len(g.Senders) {
		return shapeErrorf("goMace: edge mask has %d entries for %d edges", len(g.EdgeMask), len(g.Senders))
	}
	if g.NodeMask != nil && len(g.NodeMask) != nn {
		return shapeErrorf("goMace: node mask has %d entries for %d nodes", len(g.NodeMask), nn)
	}
	if g.NodeGraph != nil && len(g.NodeGraph) != nn {
		return shapeErrorf("goMace: node-graph index has %d entries for %d nodes", len(g.NodeGraph), nn)
	}
	if len(g.Senders) > 0 && (g.Shifts == nil) != (g.Cell == nil) {
		return shapeErrorf("goMace: periodic graphs need both Shifts and Cell")
	}
	if g.Shifts != nil {
		sr, sc := g.Shifts.Dims()
		if sr != len(g.Senders) || sc != 3 {
			return shapeErrorf("goMace: shifts are %dx%d for %d edges", sr, sc, len(g.Senders))
		}
	}
	for i, s := range g.Species {
		if s < 0 || s >= M.Conf.NumSpecies {
			return domainErrorf("goMace: node %d has species index %d outside [0,%d)", i, s, M.Conf.NumSpecies)
		}
	}
	for e := range g.Senders {
		if g.Senders[e] < 0 || g.Senders[e] >= nn || g.Receivers[e] < 0 || g.Receivers[e] >= nn {
			return shapeErrorf("goMace: edge %d references a node outside [0,%d)", e, nn)
		}
	}
	return nil
}
