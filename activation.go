/*
 * activation.go, part of gomace.
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
)

//Activation names the pointwise nonlinearity used in the radial networks
//and the final readout. Only scalar (0e) channels ever pass through it,
//so any of the choices preserves equivariance.
type Activation string

const (
	SiLU     Activation = "silu"
	ReLU     Activation = "relu"
	GELU     Activation = "gelu"
	Tanh     Activation = "tanh"
	Identity Activation = "identity"
)

func (a Activation) valid() bool {
	switch a {
	case SiLU, ReLU, GELU, Tanh, Identity:
		return true
	}
	return false
}

//apply runs the activation elementwise through the tape.
func (a Activation) apply(x *ad.Tensor) *ad.Tensor {
	switch a {
	case SiLU:
		return ad.SiLU(x)
	case ReLU:
		return ad.Apply(x, relu, drelu)
	case GELU:
		return ad.Apply(x, gelu, dgelu)
	case Tanh:
		return ad.Tanh(x)
	case Identity:
		return x
	}
	panic("goMace: unknown activation " + string(a)) //New validates; reaching this is a bug
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func drelu(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

//gelu is the tanh approximation 0.5x(1+tanh(c(x+0.044715x^3))),
//c=sqrt(2/pi), the form the usual NN frameworks default to.
func gelu(x float64) float64 {
	c := math.Sqrt(2 / math.Pi)
	return 0.5 * x * (1 + math.Tanh(c*(x+0.044715*x*x*x)))
}

func dgelu(x float64) float64 {
	c := math.Sqrt(2 / math.Pi)
	t := math.Tanh(c * (x + 0.044715*x*x*x))
	return 0.5*(1+t) + 0.5*x*(1-t*t)*c*(1+3*0.044715*x*x)
}
