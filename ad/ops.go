package ad

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

//Elementary differentiable operations. Each returns a fresh tensor and
//registers a closure that routes the output gradient back to the inputs.

//Add returns a+b. Shapes must match.
func Add(a, b *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	d.Add(a.Data, b.Data)
	return FromOp(d, func(g *mat.Dense) {
		a.Grad.Add(a.Grad, g)
		b.Grad.Add(b.Grad, g)
	}, a, b)
}

//Sub returns a-b.
func Sub(a, b *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	d.Sub(a.Data, b.Data)
	return FromOp(d, func(g *mat.Dense) {
		a.Grad.Add(a.Grad, g)
		b.Grad.Sub(b.Grad, g)
	}, a, b)
}

//Scale returns s*a for a plain float s.
func Scale(s float64, a *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	d.Scale(s, a.Data)
	return FromOp(d, func(g *mat.Dense) {
		var tmp mat.Dense
		tmp.Scale(s, g)
		a.Grad.Add(a.Grad, &tmp)
	}, a)
}

//Shift returns a+s elementwise.
func Shift(s float64, a *Tensor) *Tensor {
	return Apply(a, func(x float64) float64 { return x + s }, func(x float64) float64 { return 1 })
}

//MulElem returns the elementwise product.
func MulElem(a, b *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	d.MulElem(a.Data, b.Data)
	return FromOp(d, func(g *mat.Dense) {
		var tmp mat.Dense
		tmp.MulElem(g, b.Data)
		a.Grad.Add(a.Grad, &tmp)
		tmp.MulElem(g, a.Data)
		b.Grad.Add(b.Grad, &tmp)
	}, a, b)
}

//MatMul returns the matrix product a*b.
func MatMul(a, b *Tensor) *Tensor {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	d := mat.NewDense(ar, bc, nil)
	d.Mul(a.Data, b.Data)
	return FromOp(d, func(g *mat.Dense) {
		var tmp mat.Dense
		tmp.Mul(g, b.Data.T())
		a.Grad.Add(a.Grad, &tmp)
		var tmp2 mat.Dense
		tmp2.Mul(a.Data.T(), g)
		b.Grad.Add(b.Grad, &tmp2)
	}, a, b)
}

//Apply returns f applied elementwise; df must be the derivative of f.
func Apply(a *Tensor, f, df func(float64) float64) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, f(a.Data.At(i, j)))
		}
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+df(a.Data.At(i, j))*g.At(i, j))
			}
		}
	}, a)
}

//SiLU returns x*sigmoid(x) elementwise.
func SiLU(a *Tensor) *Tensor {
	sig := func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	return Apply(a,
		func(x float64) float64 { return x * sig(x) },
		func(x float64) float64 {
			s := sig(x)
			return s * (1 + x*(1-s))
		})
}

//Tanh returns tanh elementwise.
func Tanh(a *Tensor) *Tensor {
	return Apply(a, math.Tanh, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})
}

//Gather returns the matrix whose row i is row idx[i] of a. Indices may
//repeat; the backward pass sums over repetitions.
func Gather(a *Tensor, idx []int) *Tensor {
	_, c := a.Dims()
	d := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		d.SetRow(i, a.Data.RawRowView(r))
	}
	return FromOp(d, func(g *mat.Dense) {
		for i, r := range idx {
			for j := 0; j < c; j++ {
				a.Grad.Set(r, j, a.Grad.At(r, j)+g.At(i, j))
			}
		}
	}, a)
}

//ScatterSum returns an n-row matrix where row idx[i] accumulates row i
//of a. It is the adjoint of Gather and the aggregation used to sum
//per-edge messages into nodes.
func ScatterSum(a *Tensor, idx []int, n int) *Tensor {
	ar, c := a.Dims()
	d := mat.NewDense(n, c, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < c; j++ {
			d.Set(idx[i], j, d.At(idx[i], j)+a.Data.At(i, j))
		}
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < ar; i++ {
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+g.At(idx[i], j))
			}
		}
	}, a)
}

//SliceCols returns columns [from,to) of a as a fresh tensor.
func SliceCols(a *Tensor, from, to int) *Tensor {
	r, _ := a.Dims()
	d := mat.NewDense(r, to-from, nil)
	d.Copy(a.Data.Slice(0, r, from, to))
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			for j := from; j < to; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+g.At(i, j-from))
			}
		}
	}, a)
}

//ConcatCols joins tensors with equal row counts side by side.
func ConcatCols(ts ...*Tensor) *Tensor {
	r, _ := ts[0].Dims()
	tot := 0
	for _, t := range ts {
		_, c := t.Dims()
		tot += c
	}
	d := mat.NewDense(r, tot, nil)
	off := 0
	for _, t := range ts {
		_, c := t.Dims()
		d.Slice(0, r, off, off+c).(*mat.Dense).Copy(t.Data)
		off += c
	}
	return FromOp(d, func(g *mat.Dense) {
		off := 0
		for _, t := range ts {
			_, c := t.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					t.Grad.Set(i, j, t.Grad.At(i, j)+g.At(i, off+j))
				}
			}
			off += c
		}
	}, ts...)
}

//ColScale multiplies every column of a elementwise by the single-column
//tensor s, broadcasting s across columns.
func ColScale(a, s *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		si := s.Data.At(i, 0)
		for j := 0; j < c; j++ {
			d.Set(i, j, a.Data.At(i, j)*si)
		}
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			si := s.Data.At(i, 0)
			acc := 0.0
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+g.At(i, j)*si)
				acc += g.At(i, j) * a.Data.At(i, j)
			}
			s.Grad.Set(i, 0, s.Grad.At(i, 0)+acc)
		}
	}, a, s)
}

//SumRows returns the single-column tensor of row sums.
func SumRows(a *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		acc := 0.0
		for j := 0; j < c; j++ {
			acc += a.Data.At(i, j)
		}
		d.Set(i, 0, acc)
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			gi := g.At(i, 0)
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+gi)
			}
		}
	}, a)
}

//SumAll reduces the whole tensor to a 1x1 scalar.
func SumAll(a *Tensor) *Tensor {
	r, c := a.Dims()
	acc := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			acc += a.Data.At(i, j)
		}
	}
	d := mat.NewDense(1, 1, []float64{acc})
	return FromOp(d, func(g *mat.Dense) {
		g00 := g.At(0, 0)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+g00)
			}
		}
	}, a)
}

//SafeRowNorm returns the Euclidean norm of each row as a single-column
//tensor. Rows with norm below eps are clamped to eps, and their gradient
//uses the clamped value, so a zero row produces a zero gradient instead
//of NaN.
func SafeRowNorm(a *Tensor, eps float64) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		acc := 0.0
		for j := 0; j < c; j++ {
			v := a.Data.At(i, j)
			acc += v * v
		}
		n := math.Sqrt(acc)
		if n < eps {
			n = eps
		}
		d.Set(i, 0, n)
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			gi := g.At(i, 0) / d.At(i, 0)
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+gi*a.Data.At(i, j))
			}
		}
	}, a)
}

//DivCols divides every column of a elementwise by the single-column
//tensor s (the reciprocal broadcast of ColScale).
func DivCols(a, s *Tensor) *Tensor {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		si := s.Data.At(i, 0)
		for j := 0; j < c; j++ {
			d.Set(i, j, a.Data.At(i, j)/si)
		}
	}
	return FromOp(d, func(g *mat.Dense) {
		for i := 0; i < r; i++ {
			si := s.Data.At(i, 0)
			acc := 0.0
			for j := 0; j < c; j++ {
				a.Grad.Set(i, j, a.Grad.At(i, j)+g.At(i, j)/si)
				acc -= g.At(i, j) * a.Data.At(i, j) / (si * si)
			}
			s.Grad.Set(i, 0, s.Grad.At(i, 0)+acc)
		}
	}, a, s)
}
