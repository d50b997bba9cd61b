/*
 * params.go, part of gomace.
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
	"encoding/gob"
	"math/rand"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/gomace/ad"
	"gonum.org/v1/gonum/mat"
)

//The parameter-container pattern of the usual NN frameworks (implicit
//registration keyed by nested scopes) is replaced here by an explicit
//tree: construction collects a flat, ordered list of (path, shape)
//specs, Init fills them deterministically from a seed, and every
//forward pass receives the tree explicitly. No global registry.

//ParamSpec declares one learnable tensor: its path in the tree and its
//shape.
type ParamSpec struct {
	Path       string
	Rows, Cols int
}

//paramReg accumulates specs during model construction. Registration
//order is the initialization order, so it must be deterministic, which
//construction guarantees by wiring layers in a fixed sequence.
type paramReg struct {
	specs []ParamSpec
	seen  map[string]bool
}

func newParamReg() *paramReg {
	return &paramReg{seen: make(map[string]bool)}
}

func (r *paramReg) add(path string, rows, cols int) {
	if r.seen[path] {
		panic("goMace: duplicate parameter path " + path) //a bug in construction, not user error
	}
	r.seen[path] = true
	r.specs = append(r.specs, ParamSpec{Path: path, Rows: rows, Cols: cols})
}

//Params is a parameter tree: a mapping from layer path to tensor, plus
//the ordered specs it was built from. Forward and backward passes treat
//it as read-only; only an external optimizer updates the values.
type Params struct {
	Specs   []ParamSpec
	Tensors map[string]*mat.Dense
}

//Get returns the tensor at path, or nil if absent.
func (P *Params) Get(path string) *mat.Dense {
	return P.Tensors[path]
}

//boundParams is a per-evaluation view of the tree: the same underlying
//data wrapped as graph leaves, so one backward pass accumulates
//gradients without touching the shared values.
type boundParams map[string]*ad.Tensor

func (P *Params) bind() boundParams {
	b := make(boundParams, len(P.Specs))
	for _, s := range P.Specs {
		b[s.Path] = ad.NewTensor(P.Tensors[s.Path])
	}
	return b
}

//initParams fills a fresh tree with unit normal values, deterministically
//given the seed and the registration order.
func initParams(specs []ParamSpec, seed int64) *Params {
	rng := rand.New(rand.NewSource(seed))
	P := &Params{Specs: specs, Tensors: make(map[string]*mat.Dense, len(specs))}
	for _, s := range specs {
		d := make([]float64, s.Rows*s.Cols)
		for i := range d {
			d[i] = rng.NormFloat64()
		}
		P.Tensors[s.Path] = mat.NewDense(s.Rows, s.Cols, d)
	}
	return P
}

//checkParams verifies that a tree (typically one reloaded from disk)
//matches the given specs exactly: same paths, same shapes, nothing
//missing and nothing extra.
func checkParams(specs []ParamSpec, P *Params) error {
	if len(P.Specs) != len(specs) {
		return shapeErrorf("goMace: parameter tree has %d tensors, model needs %d", len(P.Specs), len(specs))
	}
	for i, s := range specs {
		got := P.Specs[i]
		if got.Path != s.Path {
			return shapeErrorf("goMace: parameter %d is %q, model needs %q", i, got.Path, s.Path)
		}
		t := P.Tensors[s.Path]
		if t == nil {
			return shapeErrorf("goMace: parameter %q missing from tree", s.Path)
		}
		r, c := t.Dims()
		if r != s.Rows || c != s.Cols {
			return shapeErrorf("goMace: parameter %q has shape %dx%d, model needs %dx%d", s.Path, r, c, s.Rows, s.Cols)
		}
	}
	return nil
}

//savedParam is the on-disk form of one tensor.
type savedParam struct {
	Path       string
	Rows, Cols int
	Data       []float64
}

//SaveParams writes the tree to a zstd-compressed gob file. Persistence
//of anything else (configuration, training state) belongs to the
//orchestration layer, not here.
func SaveParams(name string, P *Params) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	z, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	defer z.Close()
	saved := make([]savedParam, 0, len(P.Specs))
	for _, s := range P.Specs {
		t := P.Tensors[s.Path]
		raw := t.RawMatrix()
		d := make([]float64, len(raw.Data))
		copy(d, raw.Data)
		saved = append(saved, savedParam{Path: s.Path, Rows: s.Rows, Cols: s.Cols, Data: d})
	}
	return gob.NewEncoder(z).Encode(saved)
}

//LoadParams reads a tree written by SaveParams. The result is not yet
//validated against any model; use Model.CheckParams before trusting it.
func LoadParams(name string) (*Params, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	z, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer z.Close()
	var saved []savedParam
	if err := gob.NewDecoder(z).Decode(&saved); err != nil {
		return nil, err
	}
	P := &Params{Tensors: make(map[string]*mat.Dense, len(saved))}
	for _, s := range saved {
		if len(s.Data) != s.Rows*s.Cols {
			return nil, shapeErrorf("goMace: parameter %q has %d values for a %dx%d shape", s.Path, len(s.Data), s.Rows, s.Cols)
		}
		P.Specs = append(P.Specs, ParamSpec{Path: s.Path, Rows: s.Rows, Cols: s.Cols})
		P.Tensors[s.Path] = mat.NewDense(s.Rows, s.Cols, s.Data)
	}
	return P, nil
}

//Gradients returns, after a backward pass bound to b, the gradient of
//each parameter, keyed by path. Meant for external optimizers.
func (b boundParams) Gradients() map[string]*mat.Dense {
	g := make(map[string]*mat.Dense, len(b))
	for k, v := range b {
		g[k] = v.Grad
	}
	return g
}
