//Package neighbors builds the directed neighbor lists that feed the
//potential: every ordered pair of atoms within the cutoff becomes one
//edge, in both directions, and under periodic boundaries an atom can be
//its own neighbor through a nonzero lattice shift. The pairwise search
//is quadratic in the number of atoms; it is meant for the system sizes
//a message-passing potential handles, not for whole proteins.
package neighbors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//List is a directed neighbor list. Shifts holds, per edge, the integer
//lattice-shift counts added to the receiver's position; it is nil for
//open boundaries.
type List struct {
	Senders   []int
	Receivers []int
	Shifts    *mat.Dense
	Cutoff    float64
}

//Len returns the number of edges.
func (L *List) Len() int {
	return len(L.Senders)
}

//Build lists all ordered pairs within the cutoff, open boundaries.
func Build(pos *mat.Dense, cutoff float64) (*List, error) {
	n, c := pos.Dims()
	if c != 3 {
		return nil, fmt.Errorf("neighbors: positions are %dx%d, need 3 columns", n, c)
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("neighbors: cutoff must be positive, got %g", cutoff)
	}
	L := &List{Cutoff: cutoff}
	c2 := cutoff * cutoff
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d2 := 0.0
			for k := 0; k < 3; k++ {
				d := pos.At(j, k) - pos.At(i, k)
				d2 += d * d
			}
			if d2 < c2 {
				L.Senders = append(L.Senders, i, j)
				L.Receivers = append(L.Receivers, j, i)
			}
		}
	}
	return L, nil
}

//BuildPeriodic lists all ordered pairs within the cutoff under periodic
//boundaries. cell holds the lattice vectors as rows; positions may lie
//anywhere, they are not wrapped. Pairs with i==j and a zero shift are
//excluded, an atom interacting with its own periodic image is not.
func BuildPeriodic(pos, cell *mat.Dense, cutoff float64) (*List, error) {
	n, c := pos.Dims()
	if c != 3 {
		return nil, fmt.Errorf("neighbors: positions are %dx%d, need 3 columns", n, c)
	}
	if cutoff <= 0 {
		return nil, fmt.Errorf("neighbors: cutoff must be positive, got %g", cutoff)
	}
	var inv mat.Dense
	if err := inv.Inverse(cell); err != nil {
		return nil, fmt.Errorf("neighbors: singular cell: %v", err)
	}
	//the number of images to scan along lattice vector k follows from
	//the spacing between the (k) lattice planes, 1/|column k of inv|.
	nmax := [3]int{}
	for k := 0; k < 3; k++ {
		g := math.Hypot(math.Hypot(inv.At(0, k), inv.At(1, k)), inv.At(2, k))
		nmax[k] = int(math.Ceil(cutoff * g))
	}
	L := &List{Cutoff: cutoff}
	var shifts []float64
	c2 := cutoff * cutoff
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for sa := -nmax[0]; sa <= nmax[0]; sa++ {
				for sb := -nmax[1]; sb <= nmax[1]; sb++ {
					for sc := -nmax[2]; sc <= nmax[2]; sc++ {
						if i == j && sa == 0 && sb == 0 && sc == 0 {
							continue
						}
						d2 := 0.0
						for k := 0; k < 3; k++ {
							d := pos.At(j, k) - pos.At(i, k) +
								float64(sa)*cell.At(0, k) +
								float64(sb)*cell.At(1, k) +
								float64(sc)*cell.At(2, k)
							d2 += d * d
						}
						if d2 < c2 {
							L.Senders = append(L.Senders, i)
							L.Receivers = append(L.Receivers, j)
							shifts = append(shifts, float64(sa), float64(sb), float64(sc))
						}
					}
				}
			}
		}
	}
	if len(shifts) > 0 {
		L.Shifts = mat.NewDense(len(shifts)/3, 3, shifts)
	}
	return L, nil
}

//Counts returns the number of incoming edges per atom.
func (L *List) Counts(n int) []int {
	counts := make([]int, n)
	for _, r := range L.Receivers {
		counts[r]++
	}
	return counts
}
