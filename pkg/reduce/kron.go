package reduce

import (
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/gridtools/gridfold/pkg/admittance"
	"github.com/gridtools/gridfold/pkg/network"
)

// degenerateTol bounds the self-admittance magnitude below which a node
// cannot be eliminated. Dividing by a smaller pivot amplifies noise past any
// physical meaning.
const degenerateTol = 1e-12

// fillTol is the smallest off-diagonal change treated as a real equivalent
// branch rather than float round-off.
const fillTol = 1e-12

// eliminate performs sequential Kron elimination of targets on m.
//
// Targets are processed in ascending internal index regardless of input
// order, so a given case always reduces identically. Eliminating node k
// applies the star-mesh transform to every unordered pair of its neighbors,
// including the diagonal:
//
//	w'(m,n) = w(m,n) − w(k,m)·w(k,n)/w(k,k)
//
// and then removes k and its incident entries.
//
// Nodes with no remaining neighbors, or with |w(k,k)| at or below the
// degeneracy threshold, are skipped and returned rather than silently
// dropped: eliminating them is structurally or numerically ill-defined.
//
// loads, when non-nil, is a per-index active-load vector that is cascaded
// during elimination: an eliminated node hands its accumulated load to its
// neighbors in proportion to coupling magnitude, so load reaching a retained
// node stays there. This keeps total load conserved by construction.
func eliminate(m *admittance.Model, targets []int, loads []float64, logger *log.Logger) (skipped []int) {
	order := slices.Clone(targets)
	slices.Sort(order)

	for _, k := range order {
		if !m.Alive(k) {
			continue
		}
		nbrs := m.Neighbors(k)
		wkk := m.Diag(k)

		if len(nbrs) == 0 {
			logger.Warn("skipping elimination: node has no neighbors", "index", k)
			skipped = append(skipped, k)
			continue
		}
		if math.Abs(wkk) <= degenerateTol {
			logger.Warn("skipping elimination: degenerate self-admittance", "index", k, "diag", wkk)
			skipped = append(skipped, k)
			continue
		}

		weights := make([]float64, len(nbrs))
		for a, na := range nbrs {
			weights[a] = m.Off(k, na)
		}

		for a := 0; a < len(nbrs); a++ {
			for b := a; b < len(nbrs); b++ {
				delta := weights[a] * weights[b] / wkk
				if a == b {
					m.AddDiag(nbrs[a], -delta)
				} else {
					m.AddOff(nbrs[a], nbrs[b], -delta)
				}
			}
		}

		if loads != nil {
			spreadLoad(k, nbrs, weights, loads)
		}
		m.Remove(k)
	}
	return skipped
}

// spreadLoad hands node k's accumulated load to its neighbors in proportion
// to |w(k,m)|. Neighbors later eliminated pass it on in turn.
func spreadLoad(k int, nbrs []int, weights []float64, loads []float64) {
	if loads[k] == 0 {
		return
	}
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}
	if total == 0 {
		return
	}
	for a, nb := range nbrs {
		loads[nb] += loads[k] * math.Abs(weights[a]) / total
	}
	loads[k] = 0
}

// equivalentEdges extracts the branches synthesized by elimination from the
// reduced model.
//
// For every surviving node pair, the difference between the current
// off-diagonal entry and the value originally stamped is the contribution
// created (or strengthened) by elimination. A pair with no original circuits
// yields an Equivalent edge carrying the sentinel circuit id; a pair that
// original circuits already connect yields a Parallel edge with the next free
// circuit id — the synthesized susceptance is never folded into an existing
// circuit's value.
func equivalentEdges(m *admittance.Model, idx *network.Index) []EquivalentEdge {
	var edges []EquivalentEdge
	for _, p := range m.SurvivingPairs() {
		fill := m.Off(p.Lo, p.Hi) - m.StampedOff(p.Lo, p.Hi)
		if math.Abs(fill) <= fillTol {
			continue
		}
		e := EquivalentEdge{
			FromBus: idx.BusID(p.Lo),
			ToBus:   idx.BusID(p.Hi),
			B:       fill,
			X:       -1 / fill,
		}
		if circuits := m.Contributors(p.Lo, p.Hi); len(circuits) > 0 {
			e.Tag = CircuitTag{Kind: TagParallel, Circuit: m.MaxCircuit(p.Lo, p.Hi) + 1, Synthesized: true}
		} else {
			e.Tag = CircuitTag{Kind: TagEquivalent, Circuit: EquivalentCircuit, Synthesized: true}
		}
		edges = append(edges, e)
	}
	return edges
}
