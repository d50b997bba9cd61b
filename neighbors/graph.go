package neighbors

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/mat"
)

//A gonum graph view of a neighbor list, so the usual graph algorithms
//(connected components, shortest paths to probe the receptive field of
//an n-layer model) run directly on an atomic system.

//Atom is one node of the topology.
type Atom struct {
	Idx int
}

func (A *Atom) ID() int64 {
	return int64(A.Idx)
}

//Contact is one within-cutoff pair, weighted by its distance.
type Contact struct {
	At1, At2 *Atom
	Dist     float64
}

func (C *Contact) From() graph.Node {
	return C.At1
}

func (C *Contact) To() graph.Node {
	return C.At2
}

func (C *Contact) ReversedEdge() graph.Edge {
	return &Contact{At1: C.At2, At2: C.At1, Dist: C.Dist}
}

func (C *Contact) Weight() float64 {
	return C.Dist
}

//Atoms implements graph.Nodes over a slice.
type Atoms struct {
	atoms []*Atom
	curr  int
}

func (A *Atoms) Len() int {
	return len(A.atoms) - A.curr
}

func (A *Atoms) Reset() {
	A.curr = 0
}

func (A *Atoms) Next() bool {
	if A.curr < len(A.atoms) {
		A.curr++
		return true
	}
	return false
}

func (A *Atoms) Node() graph.Node {
	return A.atoms[A.curr-1]
}

//Topology is a neighbor list as a gonum weighted undirected graph.
type Topology struct {
	atoms []*Atom
	adj   map[int64]map[int64]*Contact
}

//NewTopology builds the graph view of a list over the positions it was
//built from. Under periodic boundaries an atom bonded only to its own
//images gets a self-contact, which gonum graphs ignore; minimum-image
//distances are kept for everything else.
func NewTopology(pos *mat.Dense, cell *mat.Dense, L *List) *Topology {
	n, _ := pos.Dims()
	T := &Topology{adj: make(map[int64]map[int64]*Contact, n)}
	for i := 0; i < n; i++ {
		T.atoms = append(T.atoms, &Atom{Idx: i})
	}
	for e := range L.Senders {
		i, j := L.Senders[e], L.Receivers[e]
		if i == j {
			continue
		}
		d2 := 0.0
		for k := 0; k < 3; k++ {
			d := pos.At(j, k) - pos.At(i, k)
			if L.Shifts != nil && cell != nil {
				d += L.Shifts.At(e, 0)*cell.At(0, k) +
					L.Shifts.At(e, 1)*cell.At(1, k) +
					L.Shifts.At(e, 2)*cell.At(2, k)
			}
			d2 += d * d
		}
		dist := math.Sqrt(d2)
		if T.adj[int64(i)] == nil {
			T.adj[int64(i)] = make(map[int64]*Contact)
		}
		prev := T.adj[int64(i)][int64(j)]
		if prev == nil || dist < prev.Dist {
			T.adj[int64(i)][int64(j)] = &Contact{At1: T.atoms[i], At2: T.atoms[j], Dist: dist}
		}
	}
	return T
}

func (T *Topology) Node(id int64) graph.Node {
	if id < 0 || id >= int64(len(T.atoms)) {
		return nil
	}
	return T.atoms[id]
}

func (T *Topology) Nodes() graph.Nodes {
	return &Atoms{atoms: T.atoms}
}

func (T *Topology) From(id int64) graph.Nodes {
	var out []*Atom
	for j := range T.adj[id] {
		out = append(out, T.atoms[j])
	}
	return &Atoms{atoms: out}
}

func (T *Topology) HasEdgeBetween(xid, yid int64) bool {
	return T.adj[xid][yid] != nil
}

func (T *Topology) Edge(uid, vid int64) graph.Edge {
	c := T.adj[uid][vid]
	if c == nil {
		return nil
	}
	return c
}

func (T *Topology) WeightedEdge(uid, vid int64) graph.WeightedEdge {
	c := T.adj[uid][vid]
	if c == nil {
		return nil
	}
	return c
}

//Weight returns the contact distance, or +Inf for non-neighbors, per
//the gonum weighted-graph convention.
func (T *Topology) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if c := T.adj[xid][yid]; c != nil {
		return c.Dist, true
	}
	return math.Inf(1), false
}
