package admittance

import (
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// Build constructs the nodal admittance model for a case under the DC
// approximation: each in-service branch with reactance x contributes
// susceptance w = 1/x (off-diagonal entries get −w, both diagonals +w), and
// each bus shunt adds directly to its diagonal.
//
// Build fails with CONFIG_INVALID_CASE on branches the DC model cannot
// express: zero reactance, self loops, endpoints missing from the index, or
// duplicate (from, to, circuit) triples.
func Build(n *network.Network, idx *network.Index) (*Model, error) {
	m := New(idx.Len())
	seen := make(map[branchKey]bool)

	for _, br := range n.Branches {
		if !br.InService {
			continue
		}
		i, ok := idx.Internal(br.From)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"branch %d-%d circuit %d references unknown bus %d", br.From, br.To, br.Circuit, br.From)
		}
		j, ok := idx.Internal(br.To)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"branch %d-%d circuit %d references unknown bus %d", br.From, br.To, br.Circuit, br.To)
		}
		if i == j {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"branch %d-%d circuit %d is a self loop", br.From, br.To, br.Circuit)
		}
		if br.X == 0 {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"branch %d-%d circuit %d has zero reactance", br.From, br.To, br.Circuit)
		}

		key := branchKey{pair: MakePair(i, j), circuit: br.Circuit}
		if seen[key] {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"duplicate branch %d-%d circuit %d", br.From, br.To, br.Circuit)
		}
		seen[key] = true

		m.stampBranch(i, j, 1/br.X, br.Circuit)
	}

	for _, b := range n.Buses {
		if b.ShuntB == 0 {
			continue
		}
		i, ok := idx.Internal(b.ID)
		if !ok {
			continue // index built from the same bus list; unreachable in practice
		}
		m.AddDiag(i, b.ShuntB)
	}

	if err := m.Validate(idx); err != nil {
		return nil, err
	}
	return m, nil
}

type branchKey struct {
	pair    Pair
	circuit int
}
