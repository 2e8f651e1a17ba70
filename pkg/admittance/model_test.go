package admittance

import (
	"math"
	"testing"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

const tol = 1e-12

func almostEqual(a, b float64) bool { return math.Abs(a-b) < tol }

func buildToy(t *testing.T, n *network.Network) (*Model, *network.Index) {
	t.Helper()
	idx := network.NewIndex(n.Buses)
	m, err := Build(n, idx)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m, idx
}

func TestBuildStamping(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3, ShuntB: 0.5}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.5, InService: true},  // w = 2
			{From: 2, To: 3, Circuit: 1, X: 0.25, InService: true}, // w = 4
			{From: 1, To: 3, Circuit: 1, X: 1.0, InService: false}, // ignored
		},
	}
	m, idx := buildToy(t, n)

	i1, _ := idx.Internal(1)
	i2, _ := idx.Internal(2)
	i3, _ := idx.Internal(3)

	if got := m.Off(i1, i2); !almostEqual(got, -2) {
		t.Errorf("off(1,2) = %v, want -2", got)
	}
	if got := m.Off(i2, i1); !almostEqual(got, -2) {
		t.Errorf("off(2,1) = %v, want -2 (symmetry)", got)
	}
	if got := m.Off(i1, i3); got != 0 {
		t.Errorf("off(1,3) = %v, want 0 (out of service)", got)
	}
	if got := m.Diag(i1); !almostEqual(got, 2) {
		t.Errorf("diag(1) = %v, want 2", got)
	}
	if got := m.Diag(i2); !almostEqual(got, 6) {
		t.Errorf("diag(2) = %v, want 6", got)
	}
	// Diagonal of bus 3: branch w=4 plus shunt 0.5.
	if got := m.Diag(i3); !almostEqual(got, 4.5) {
		t.Errorf("diag(3) = %v, want 4.5", got)
	}
}

func TestBuildParallelCircuits(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.5, InService: true},
			{From: 1, To: 2, Circuit: 2, X: 0.5, InService: true},
		},
	}
	m, idx := buildToy(t, n)
	i1, _ := idx.Internal(1)
	i2, _ := idx.Internal(2)

	if got := m.Off(i1, i2); !almostEqual(got, -4) {
		t.Errorf("off = %v, want -4 (two parallel w=2 branches)", got)
	}
	circuits := m.Contributors(i1, i2)
	if len(circuits) != 2 || circuits[0] != 1 || circuits[1] != 2 {
		t.Errorf("Contributors() = %v, want [1 2]", circuits)
	}
	if got := m.MaxCircuit(i1, i2); got != 2 {
		t.Errorf("MaxCircuit() = %d, want 2", got)
	}
}

func TestBuildZeroReactance(t *testing.T) {
	n := &network.Network{
		Buses:    []network.Bus{{ID: 1}, {ID: 2}},
		Branches: []network.Branch{{From: 1, To: 2, Circuit: 1, X: 0, InService: true}},
	}
	_, err := Build(n, network.NewIndex(n.Buses))
	if !errors.Is(err, errors.ErrCodeInvalidCase) {
		t.Errorf("Build() with zero reactance: got %v, want CONFIG_INVALID_CASE", err)
	}
}

func TestBuildSelfLoop(t *testing.T) {
	n := &network.Network{
		Buses:    []network.Bus{{ID: 1}},
		Branches: []network.Branch{{From: 1, To: 1, Circuit: 1, X: 0.1, InService: true}},
	}
	_, err := Build(n, network.NewIndex(n.Buses))
	if !errors.Is(err, errors.ErrCodeInvalidCase) {
		t.Errorf("Build() with self loop: got %v, want CONFIG_INVALID_CASE", err)
	}
}

func TestBuildDuplicateCircuit(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
			{From: 2, To: 1, Circuit: 1, X: 0.2, InService: true},
		},
	}
	_, err := Build(n, network.NewIndex(n.Buses))
	if !errors.Is(err, errors.ErrCodeInvalidCase) {
		t.Errorf("Build() with duplicate circuit: got %v, want CONFIG_INVALID_CASE", err)
	}
}

func TestRemove(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 1, InService: true},
			{From: 2, To: 3, Circuit: 1, X: 1, InService: true},
		},
	}
	m, idx := buildToy(t, n)
	i2, _ := idx.Internal(2)
	i1, _ := idx.Internal(1)

	m.Remove(i2)

	if m.Alive(i2) {
		t.Error("node should be dead after Remove")
	}
	if m.Degree(i1) != 0 {
		t.Errorf("neighbor row still references removed node: %v", m.Neighbors(i1))
	}
	if m.Diag(i2) != 0 {
		t.Errorf("diag of removed node = %v, want 0", m.Diag(i2))
	}
}

func TestSurvivingPairsDeterministic(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3}},
		Branches: []network.Branch{
			{From: 2, To: 3, Circuit: 1, X: 1, InService: true},
			{From: 1, To: 3, Circuit: 1, X: 1, InService: true},
			{From: 1, To: 2, Circuit: 1, X: 1, InService: true},
		},
	}
	m, _ := buildToy(t, n)

	pairs := m.SurvivingPairs()
	want := []Pair{{0, 1}, {0, 2}, {1, 2}}
	if len(pairs) != len(want) {
		t.Fatalf("SurvivingPairs() = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair[%d] = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestValidateRejectsNegativeShuntDominanceBreak(t *testing.T) {
	n := &network.Network{
		Buses: []network.Bus{{ID: 1, ShuntB: -5}, {ID: 2}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 1, InService: true},
		},
	}
	_, err := Build(n, network.NewIndex(n.Buses))
	if !errors.Is(err, errors.ErrCodeInvalidCase) {
		t.Errorf("Build() with dominance break: got %v, want CONFIG_INVALID_CASE", err)
	}
}
