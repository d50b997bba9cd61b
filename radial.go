/*
 * radial.go, part of gomace.
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

//Envelope is a smooth cutoff multiplier over interatomic distance. It
//must be exactly zero at and beyond the cutoff radius, so the model has
//a strict finite range. Deriv is the analytic derivative, needed for the
//force pass.
type Envelope interface {
	Eval(r float64) float64
	Deriv(r float64) float64
	Cutoff() float64
}

//SoftEnvelope is a C-infinity envelope: a scaled smooth unit step
//exp(-1/x) in the rescaled variable a*(1-r/rmax). All of its derivatives
//vanish at the cutoff.
type SoftEnvelope struct {
	RMax float64
	//ArgMultiplicator sharpens the step; ValueAtOrigin fixes the value at r=0.
	ArgMultiplicator float64
	ValueAtOrigin    float64
}

//NewSoftEnvelope returns the default envelope for rmax: multiplicator 2,
//value 1.2 at the origin.
func NewSoftEnvelope(rmax float64) *SoftEnvelope {
	return &SoftEnvelope{RMax: rmax, ArgMultiplicator: 2.0, ValueAtOrigin: 1.2}
}

//sus is the smooth unit step: exp(-1/x) for positive x, zero otherwise.
func sus(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Exp(-1 / x)
}

func (S *SoftEnvelope) Cutoff() float64 {
	return S.RMax
}

func (S *SoftEnvelope) Eval(r float64) float64 {
	if r >= S.RMax {
		return 0
	}
	c := S.ValueAtOrigin / sus(S.ArgMultiplicator)
	return c * sus(S.ArgMultiplicator*(1-r/S.RMax))
}

func (S *SoftEnvelope) Deriv(r float64) float64 {
	if r >= S.RMax {
		return 0
	}
	c := S.ValueAtOrigin / sus(S.ArgMultiplicator)
	u := S.ArgMultiplicator * (1 - r/S.RMax)
	//d sus/dx = sus(x)/x^2
	return c * sus(u) / (u * u) * (-S.ArgMultiplicator / S.RMax)
}

//PolyEnvelope is a polynomial envelope with NZero vanishing derivatives
//at the origin and NCut vanishing derivatives at the cutoff, on top of
//the value itself being zero there. In the rescaled variable x=r/rmax it
//is (1-x)^(NCut+1) * sum_k C(NCut+k,k) x^k, k=0..NZero.
type PolyEnvelope struct {
	RMax        float64
	NZero, NCut int
}

//NewPolyEnvelope builds a polynomial envelope. Negative derivative
//counts are a configuration error.
func NewPolyEnvelope(rmax float64, nzero, ncut int) (*PolyEnvelope, error) {
	if nzero < 0 || ncut < 0 {
		return nil, configErrorf("goMace: envelope derivative counts must be non-negative, got %d and %d", nzero, ncut)
	}
	return &PolyEnvelope{RMax: rmax, NZero: nzero, NCut: ncut}, nil
}

func binom(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r *= float64(n-k+i) / float64(i)
	}
	return r
}

func (P *PolyEnvelope) Cutoff() float64 {
	return P.RMax
}

func (P *PolyEnvelope) Eval(r float64) float64 {
	x := r / P.RMax
	if x >= 1 {
		return 0
	}
	s := 0.0
	for k := 0; k <= P.NZero; k++ {
		s += binom(P.NCut+k, k) * math.Pow(x, float64(k))
	}
	return math.Pow(1-x, float64(P.NCut+1)) * s
}

func (P *PolyEnvelope) Deriv(r float64) float64 {
	x := r / P.RMax
	if x >= 1 {
		return 0
	}
	var s, ds float64
	for k := 0; k <= P.NZero; k++ {
		c := binom(P.NCut+k, k)
		s += c * math.Pow(x, float64(k))
		if k > 0 {
			ds += c * float64(k) * math.Pow(x, float64(k-1))
		}
	}
	q := math.Pow(1-x, float64(P.NCut+1))
	dq := -float64(P.NCut+1) * math.Pow(1-x, float64(P.NCut))
	return (dq*s + q*ds) / P.RMax
}

//RadialEmbedding expands an edge length into NumBasis Bessel functions,
//each multiplied by the envelope. Everything here is fixed at
//construction; the layer has no learnable weights.
type RadialEmbedding struct {
	RMax     float64
	NumBasis int
	AvgRMin  float64 //basis normalization distance, 0 disables
	Env      Envelope

	normFactor float64
}

//NewRadialEmbedding builds the embedding. env may be nil, in which case
//the default soft envelope is used. A positive avgRMin (typically the
//average nearest-neighbor distance of the training set, see
//AvgMinNeighborDistance) rescales the whole basis so its mean square
//over [avgRMin, rmax] is one.
func NewRadialEmbedding(rmax float64, numBasis int, avgRMin float64, env Envelope) (*RadialEmbedding, error) {
	if rmax <= 0 {
		return nil, configErrorf("goMace: cutoff radius must be positive, got %g", rmax)
	}
	if numBasis < 1 {
		return nil, configErrorf("goMace: at least one radial basis function is needed, got %d", numBasis)
	}
	if avgRMin < 0 || avgRMin >= rmax {
		return nil, configErrorf("goMace: normalization distance %g outside [0,%g)", avgRMin, rmax)
	}
	if env == nil {
		env = NewSoftEnvelope(rmax)
	}
	R := &RadialEmbedding{RMax: rmax, NumBasis: numBasis, AvgRMin: avgRMin, Env: env, normFactor: 1}
	if avgRMin > 0 {
		const samples = 1000
		pref := math.Sqrt(2 / rmax)
		acc := 0.0
		for i := 0; i < samples; i++ {
			r := avgRMin + (rmax-avgRMin)*float64(i)/float64(samples-1)
			e := env.Eval(r)
			for n := 1; n <= numBasis; n++ {
				k := float64(n) * math.Pi / rmax
				v := pref * math.Sin(k*r) / r * e
				acc += v * v
			}
		}
		R.normFactor = 1 / math.Sqrt(acc/float64(samples*numBasis))
	}
	return R, nil
}

//Embed maps the single-column tensor of edge lengths to the
//[edges x NumBasis] tensor of enveloped basis values. Lengths are
//assumed positive (the driver floors them with a safe norm first).
func (R *RadialEmbedding) Embed(lengths *ad.Tensor) *ad.Tensor {
	cols := make([]*ad.Tensor, R.NumBasis)
	pref := R.normFactor * math.Sqrt(2/R.RMax)
	for n := 1; n <= R.NumBasis; n++ {
		k := float64(n) * math.Pi / R.RMax
		f := func(r float64) float64 {
			return pref * math.Sin(k*r) / r * R.Env.Eval(r)
		}
		df := func(r float64) float64 {
			b := pref * math.Sin(k*r) / r
			db := pref * (k*math.Cos(k*r)*r - math.Sin(k*r)) / (r * r)
			return db*R.Env.Eval(r) + b*R.Env.Deriv(r)
		}
		cols[n-1] = ad.Apply(lengths, f, df)
	}
	if len(cols) == 1 {
		return cols[0]
	}
	return ad.ConcatCols(cols...)
}
