//Package batch assembles atomic systems into the padded multi-graph
//form the potential evaluates. Padding keeps every batch at a fixed
//node and edge count, so evaluation allocates identically regardless of
//how full the batch is; padded entries are masked out of the energies
//and never touch a real atom.
package batch

import (
	"fmt"

	"github.com/rmera/gomace"
	"github.com/rmera/gomace/neighbors"
	"gonum.org/v1/gonum/mat"
)

//System is one atomic configuration plus its neighbor list.
type System struct {
	Positions *mat.Dense //[atoms x 3]
	Species   []int      //contiguous species indices
	List      *neighbors.List
	Cell      *mat.Dense //nil for open boundaries
}

//Pad merges the systems into one Graph with exactly maxNodes nodes and
//maxEdges edges. Padding nodes carry species 0 and sit at the origin;
//padding edges are self-loops on the first padding node, so they only
//ever connect padding to padding. Mixing periodic and open systems in
//one batch is not supported.
func Pad(systems []System, maxNodes, maxEdges int) (*mace.Graph, error) {
	if len(systems) == 0 {
		return nil, fmt.Errorf("batch: nothing to pad")
	}
	nodes, edges := 0, 0
	periodic := systems[0].Cell != nil
	for i, s := range systems {
		nodes += len(s.Species)
		edges += s.List.Len()
		if (s.Cell != nil) != periodic {
			return nil, fmt.Errorf("batch: system %d mixes boundary conditions within the batch", i)
		}
	}
	if nodes > maxNodes {
		return nil, fmt.Errorf("batch: %d atoms exceed the %d-node budget", nodes, maxNodes)
	}
	if edges > maxEdges {
		return nil, fmt.Errorf("batch: %d edges exceed the %d-edge budget", edges, maxEdges)
	}
	if nodes == maxNodes && edges < maxEdges {
		return nil, fmt.Errorf("batch: %d padding edges need at least one padding node", maxEdges-edges)
	}
	g := &mace.Graph{
		Positions: mat.NewDense(maxNodes, 3, nil),
		Species:   make([]int, maxNodes),
		Senders:   make([]int, maxEdges),
		Receivers: make([]int, maxEdges),
		NodeGraph: make([]int, maxNodes),
		NodeMask:  make([]bool, maxNodes),
		EdgeMask:  make([]bool, maxEdges),
		NumGraphs: len(systems),
	}
	var shifts *mat.Dense
	if periodic {
		shifts = mat.NewDense(maxEdges, 3, nil)
		g.Cell = systems[0].Cell
	}
	nodeOff, edgeOff := 0, 0
	for gi, s := range systems {
		n := len(s.Species)
		for i := 0; i < n; i++ {
			g.Positions.SetRow(nodeOff+i, s.Positions.RawRowView(i))
			g.Species[nodeOff+i] = s.Species[i]
			g.NodeGraph[nodeOff+i] = gi
			g.NodeMask[nodeOff+i] = true
		}
		for e := 0; e < s.List.Len(); e++ {
			g.Senders[edgeOff+e] = nodeOff + s.List.Senders[e]
			g.Receivers[edgeOff+e] = nodeOff + s.List.Receivers[e]
			g.EdgeMask[edgeOff+e] = true
			if periodic {
				shifts.SetRow(edgeOff+e, s.List.Shifts.RawRowView(e))
			}
		}
		nodeOff += n
		edgeOff += s.List.Len()
	}
	//padding: self-loops on the first padding node. They produce
	//zero-length displacements, which the model treats safely, and
	//their energy is masked away.
	for e := edgeOff; e < maxEdges; e++ {
		g.Senders[e] = nodeOff
		g.Receivers[e] = nodeOff
	}
	if periodic {
		g.Shifts = shifts
	}
	return g, nil
}

//Single wraps one system as an unpadded graph.
func Single(s System) *mace.Graph {
	g := &mace.Graph{
		Positions: s.Positions,
		Species:   s.Species,
		Senders:   s.List.Senders,
		Receivers: s.List.Receivers,
		NumGraphs: 1,
	}
	if s.Cell != nil {
		g.Cell = s.Cell
		g.Shifts = s.List.Shifts
	}
	return g
}
