/*
 * doc.go, part of gomace.
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
 * goMace is currently developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

/*Package mace implements a rotation- and permutation-equivariant
message-passing neural network for machine-learned interatomic
potentials, in the spirit of the MACE family of models. Given the atoms
of one or several structures and their neighbor lists, it produces
per-atom and total potential energies, and the atomic forces as the
negative gradient of the total energy with respect to the positions.

The main pieces are:

	Bessel radial embedding of interatomic distances with smooth cutoff
	envelopes (a C-infinity envelope by default, polynomial envelopes
	with configurable vanishing derivatives as an option).

	Spherical-harmonic angular embedding of bond directions up to a
	configurable degree, with component normalization.

	A stack of equivariant interaction layers coupling node features
	with edge geometry through symmetry-restricted tensor products, with
	radial weights given by a per-species-pair feed-forward network.

	An equivariant product basis raising the body order of the node
	features to a configurable correlation order.

	Linear readouts for the intermediate layers and a gated nonlinear
	readout for the last one, plus per-species reference energies
	(fixed or learnable) and an affine scale/shift of the learned
	contribution.

	Forces through reverse-mode differentiation of the full energy
	expression (see the ad subpackage), so energies and forces always
	come from the same functional.

	Deterministic parameter initialization from a seed, explicit
	parameter trees (no hidden registries), persistence helpers, and
	calibration statistics from training data.

The neighbors subpackage builds neighbor lists with periodic boundary
conditions, the batch subpackage pads variable-size structures into
fixed-shape masked batches, and the irreps subpackage holds the symmetry
bookkeeping all feature tensors are labeled with.

All dense numeric work is done with gonum (gonum.org/v1/gonum/mat).*/
package mace
