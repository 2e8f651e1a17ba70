// Package admittance builds and holds the sparse nodal admittance structure
// of a transmission case under the DC approximation.
//
// The model is a weighted undirected graph stored arena-style: nodes are
// dense indices into flat slices, neighbors live in per-row maps. This keeps
// elimination order and ownership unambiguous and gives O(1)-amortized
// updates when the elimination engine adds, modifies, or removes entries.
//
// A Model instance is owned by exactly one reduction pass. Passes never share
// a mutated instance; each rebuilds from the source case via Build.
package admittance

import (
	"math"
	"slices"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// dominanceTol absorbs float rounding in the row-dominance check.
const dominanceTol = 1e-9

// Pair is an unordered node pair, normalized so Lo < Hi.
type Pair struct {
	Lo, Hi int
}

// MakePair normalizes (i, j) into a Pair.
func MakePair(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{Lo: i, Hi: j}
}

// Model is the sparse, symmetric nodal admittance structure.
//
// Off-diagonal entries hold −Σ 1/x over the branches stamping the pair;
// diagonal entries hold the row sum of branch susceptances plus shunts.
// The contributor map remembers which original circuits stamped each pair so
// equivalent edges can later be tagged as original, parallel, or synthesized.
type Model struct {
	n     int
	diag  []float64
	off   []map[int]float64
	alive []bool

	contrib map[Pair][]int    // original circuit ids per stamped pair
	stamped map[Pair]float64  // off-diagonal value as originally stamped
}

// New creates an empty model over n nodes.
func New(n int) *Model {
	m := &Model{
		n:       n,
		diag:    make([]float64, n),
		off:     make([]map[int]float64, n),
		alive:   make([]bool, n),
		contrib: make(map[Pair][]int),
		stamped: make(map[Pair]float64),
	}
	for i := range m.off {
		m.off[i] = make(map[int]float64)
		m.alive[i] = true
	}
	return m
}

// Len returns the number of nodes the model was built over, including
// eliminated ones.
func (m *Model) Len() int { return m.n }

// Alive reports whether node i has not been eliminated.
func (m *Model) Alive(i int) bool { return m.alive[i] }

// Diag returns the self-admittance of node i.
func (m *Model) Diag(i int) float64 { return m.diag[i] }

// Off returns the off-diagonal entry for (i, j), 0 when absent.
func (m *Model) Off(i, j int) float64 { return m.off[i][j] }

// Neighbors returns the nodes coupled to i, sorted ascending.
// Sorting keeps every elimination step deterministic.
func (m *Model) Neighbors(i int) []int {
	out := make([]int, 0, len(m.off[i]))
	for j := range m.off[i] {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

// Degree returns the number of neighbors of node i.
func (m *Model) Degree(i int) int { return len(m.off[i]) }

// AddDiag adds delta to the diagonal entry of node i.
func (m *Model) AddDiag(i int, delta float64) { m.diag[i] += delta }

// AddOff adds delta to both off-diagonal positions of (i, j), keeping the
// structure symmetric. Entries that cancel to exactly zero are kept; dropping
// them would erase the record that elimination touched the pair.
func (m *Model) AddOff(i, j int, delta float64) {
	m.off[i][j] += delta
	m.off[j][i] = m.off[i][j]
}

// Remove eliminates node k from the structure: its row, its column entries
// in all neighbor rows, and its diagonal.
func (m *Model) Remove(k int) {
	for j := range m.off[k] {
		delete(m.off[j], k)
	}
	m.off[k] = make(map[int]float64)
	m.diag[k] = 0
	m.alive[k] = false
}

// SurvivingPairs returns all off-diagonal pairs between alive nodes, sorted
// by (Lo, Hi) for deterministic traversal.
func (m *Model) SurvivingPairs() []Pair {
	var pairs []Pair
	for i := 0; i < m.n; i++ {
		if !m.alive[i] {
			continue
		}
		for j := range m.off[i] {
			if j > i && m.alive[j] {
				pairs = append(pairs, Pair{Lo: i, Hi: j})
			}
		}
	}
	slices.SortFunc(pairs, func(a, b Pair) int {
		if a.Lo != b.Lo {
			return a.Lo - b.Lo
		}
		return a.Hi - b.Hi
	})
	return pairs
}

// Contributors returns the original circuit ids stamped on (i, j), sorted
// ascending, or nil when no original branch connects the pair.
func (m *Model) Contributors(i, j int) []int {
	return m.contrib[MakePair(i, j)]
}

// StampedOff returns the off-diagonal value (i, j) had right after Build,
// before any elimination. Zero for pairs with no original branch.
func (m *Model) StampedOff(i, j int) float64 {
	return m.stamped[MakePair(i, j)]
}

// MaxCircuit returns the largest circuit id stamped on (i, j), 0 when none.
func (m *Model) MaxCircuit(i, j int) int {
	var max int
	for _, c := range m.contrib[MakePair(i, j)] {
		if c > max {
			max = c
		}
	}
	return max
}

// stampBranch records one in-service branch: off-diagonal −w, diagonals +w,
// and the contributing circuit for later tagging.
func (m *Model) stampBranch(i, j int, w float64, circuit int) {
	m.AddOff(i, j, -w)
	m.diag[i] += w
	m.diag[j] += w

	p := MakePair(i, j)
	m.contrib[p] = append(m.contrib[p], circuit)
	slices.Sort(m.contrib[p])
	m.stamped[p] = m.off[i][j]
}

// Validate checks structural sanity of the freshly built model: every row
// must be diagonally dominant (diagonal ≥ sum of off-diagonal magnitudes,
// within tolerance). Under lossless DC stamping with non-negative shunts this
// holds by construction; a violation indicates malformed input and is
// reported with the offending node, never silently tolerated.
func (m *Model) Validate(idx *network.Index) error {
	for i := 0; i < m.n; i++ {
		if !m.alive[i] {
			continue
		}
		var rowSum float64
		for _, w := range m.off[i] {
			rowSum += math.Abs(w)
		}
		if m.diag[i]+dominanceTol < rowSum {
			return errors.New(errors.ErrCodeInvalidCase,
				"admittance row for bus %d is not diagonally dominant (diag=%g, row=%g)",
				idx.BusID(i), m.diag[i], rowSum)
		}
	}
	return nil
}
