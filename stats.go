/*
 * stats.go, part of gomace.
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

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//Dataset statistics feeding Config: the neighbor normalization, the
//per-species reference energies and the scale/shift of the learned
//contribution all come from the training data, not from the model.

//AvgNumNeighbors returns the average number of real incoming edges per
//real node over a set of graphs, for Config.AvgNumNeighbors.
func AvgNumNeighbors(graphs ...*Graph) float64 {
	nodes, edges := 0, 0
	for _, g := range graphs {
		for i := range g.Species {
			if g.nodeReal(i) {
				nodes++
			}
		}
		for e := range g.Senders {
			if g.edgeReal(e) {
				edges++
			}
		}
	}
	if nodes == 0 {
		return 0
	}
	return float64(edges) / float64(nodes)
}

//AvgMinNeighborDistance returns the mean, over real nodes with at least
//one real edge, of the distance to the nearest neighbor, for
//Config.AvgRMin.
func AvgMinNeighborDistance(graphs ...*Graph) float64 {
	acc, n := 0.0, 0
	for _, g := range graphs {
		min := make([]float64, len(g.Species))
		for i := range min {
			min[i] = math.Inf(1)
		}
		var disp *mat.Dense
		if g.Shifts != nil && g.Cell != nil {
			disp = mat.NewDense(len(g.Senders), 3, nil)
			disp.Mul(g.Shifts, g.Cell)
		}
		for e := range g.Senders {
			if !g.edgeReal(e) {
				continue
			}
			r2 := 0.0
			for j := 0; j < 3; j++ {
				v := g.Positions.At(g.Receivers[e], j) - g.Positions.At(g.Senders[e], j)
				if disp != nil {
					v += disp.At(e, j)
				}
				r2 += v * v
			}
			if r := math.Sqrt(r2); r < min[g.Receivers[e]] {
				min[g.Receivers[e]] = r
			}
		}
		for i, m := range min {
			if g.nodeReal(i) && !math.IsInf(m, 1) {
				acc += m
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return acc / float64(n)
}

//FitAtomicEnergies solves, in the least-squares sense, for the
//per-species energies that best reproduce the total energies from
//species counts alone. species holds the per-node species index of each
//system; energies its total energy. The fit needs at least as many
//systems as species, and enough compositional variety for the counts
//matrix to have full rank.
func FitAtomicEnergies(species [][]int, energies []float64, numSpecies int) ([]float64, error) {
	if len(species) != len(energies) {
		return nil, shapeErrorf("goMace: %d systems but %d energies", len(species), len(energies))
	}
	if len(species) < numSpecies {
		return nil, domainErrorf("goMace: %d systems cannot determine %d atomic energies", len(species), numSpecies)
	}
	counts := mat.NewDense(len(species), numSpecies, nil)
	for i, sys := range species {
		for _, s := range sys {
			if s < 0 || s >= numSpecies {
				return nil, domainErrorf("goMace: species index %d outside [0,%d)", s, numSpecies)
			}
			counts.Set(i, s, counts.At(i, s)+1)
		}
	}
	b := mat.NewDense(len(energies), 1, nil)
	for i, e := range energies {
		b.Set(i, 0, e)
	}
	var x mat.Dense
	if err := x.Solve(counts, b); err != nil {
		return nil, domainErrorf("goMace: atomic-energy fit is ill-conditioned: %v", err)
	}
	e0 := make([]float64, numSpecies)
	for s := range e0 {
		e0[s] = x.At(s, 0)
	}
	return e0, nil
}

//EnergyShift returns the mean per-atom residual energy after removing
//the reference energies, for Config.Shift.
func EnergyShift(species [][]int, energies []float64, e0 []float64) float64 {
	return stat.Mean(perAtomResiduals(species, energies, e0), nil)
}

//EnergyScale returns the standard deviation of the per-atom residual
//energies, for Config.Scale. Training against forces usually replaces
//this with the RMS force, which ForcesRMS computes.
func EnergyScale(species [][]int, energies []float64, e0 []float64) float64 {
	return stat.StdDev(perAtomResiduals(species, energies, e0), nil)
}

func perAtomResiduals(species [][]int, energies []float64, e0 []float64) []float64 {
	res := make([]float64, len(energies))
	for i, sys := range species {
		r := energies[i]
		for _, s := range sys {
			r -= e0[s]
		}
		res[i] = r / float64(len(sys))
	}
	return res
}

//ForcesRMS returns the root-mean-square force component over a set of
//[atoms x 3] force matrices.
func ForcesRMS(forces ...*mat.Dense) float64 {
	acc, n := 0.0, 0
	for _, f := range forces {
		r, c := f.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				v := f.At(i, j)
				acc += v * v
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(acc / float64(n))
}
