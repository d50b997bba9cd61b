//Package ad implements reverse-mode automatic differentiation over gonum
//dense matrices. A computation builds a graph of *Tensor values; calling
//Backward on a result walks the graph in reverse topological order and
//accumulates gradients into every tensor that participated. The package
//knows nothing about atoms or symmetry; domain operations with custom
//derivative rules are built on FromOp.
package ad

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//Tensor is a differentiable dense matrix. Data is set when the tensor is
//created and never mutated afterwards; Grad is accumulated into during
//Backward. Tensors created by operations keep references to their inputs
//so the graph can be walked.
type Tensor struct {
	Data   *mat.Dense
	Grad   *mat.Dense
	kids   []*Tensor
	backFn func()
}

//NewTensor wraps d as a graph leaf. The gradient starts at zero.
func NewTensor(d *mat.Dense) *Tensor {
	r, c := d.Dims()
	return &Tensor{Data: d, Grad: mat.NewDense(r, c, nil)}
}

//NewLeaf builds a leaf from a flat row-major slice.
func NewLeaf(r, c int, data []float64) *Tensor {
	return NewTensor(mat.NewDense(r, c, data))
}

//Zeros returns a zero-valued leaf of the given shape.
func Zeros(r, c int) *Tensor {
	return NewTensor(mat.NewDense(r, c, nil))
}

//Dims returns the shape of the tensor.
func (t *Tensor) Dims() (int, int) {
	return t.Data.Dims()
}

//At returns the value at (i,j).
func (t *Tensor) At(i, j int) float64 {
	return t.Data.At(i, j)
}

//FromOp creates a tensor computed by an operation defined outside this
//package. back receives the gradient of the output and must accumulate
//the corresponding gradients into the inputs' Grad fields. The inputs
//are recorded as graph children so Backward reaches them.
func FromOp(data *mat.Dense, back func(grad *mat.Dense), inputs ...*Tensor) *Tensor {
	out := NewTensor(data)
	out.kids = inputs
	out.backFn = func() { back(out.Grad) }
	return out
}

//Backward runs reverse-mode differentiation from root, which must be a
//1x1 tensor (a scalar result such as a total energy). Gradients
//accumulate; call ZeroGrad on leaves that are reused between passes.
func Backward(root *Tensor) error {
	if r, c := root.Dims(); r != 1 || c != 1 {
		return fmt.Errorf("goMace/ad: Backward needs a scalar root, got %dx%d", r, c)
	}
	topo := make([]*Tensor, 0, 128)
	visited := make(map[*Tensor]bool)
	var build func(t *Tensor)
	build = func(t *Tensor) {
		if visited[t] {
			return
		}
		visited[t] = true
		for _, k := range t.kids {
			build(k)
		}
		topo = append(topo, t)
	}
	build(root)
	root.Grad.Set(0, 0, 1)
	for i := len(topo) - 1; i >= 0; i-- {
		if topo[i].backFn != nil {
			topo[i].backFn()
		}
	}
	return nil
}

//ZeroGrad clears the accumulated gradient of the tensor.
func (t *Tensor) ZeroGrad() {
	t.Grad.Zero()
}
