package preprocess

import (
	"slices"
	"testing"

	"github.com/gridtools/gridfold/pkg/network"
)

func TestCleanKeepsConnectedCase(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
			{From: 2, To: 3, Circuit: 1, X: 0.1, InService: true},
		},
	}

	res := Clean(net, []int{2})
	if len(res.Network.Buses) != 3 || len(res.Network.Branches) != 2 {
		t.Errorf("connected case was modified: %d buses, %d branches",
			len(res.Network.Buses), len(res.Network.Branches))
	}
	if len(res.RemovedBuses) != 0 || res.RemovedBranches != 0 {
		t.Errorf("removed %v buses, %d branches from a clean case",
			res.RemovedBuses, res.RemovedBranches)
	}
	if !slices.Equal(res.External, []int{2}) {
		t.Errorf("external = %v, want [2]", res.External)
	}
}

func TestCleanDropsOutOfServiceBranches(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
			{From: 2, To: 3, Circuit: 1, X: 0.1, InService: true},
			{From: 1, To: 3, Circuit: 1, X: 0.2, InService: false},
		},
	}

	res := Clean(net, nil)
	if len(res.Network.Branches) != 2 {
		t.Errorf("got %d branches, want 2 (out-of-service dropped)", len(res.Network.Branches))
	}
	for _, br := range res.Network.Branches {
		if !br.InService {
			t.Errorf("out-of-service branch survived: %+v", br)
		}
	}
	if res.RemovedBranches != 1 {
		t.Errorf("RemovedBranches = %d, want 1", res.RemovedBranches)
	}
}

// A branch that only exists out of service must not keep its island alive.
func TestCleanPrunesDeadIsland(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{
			{ID: 1}, {ID: 2}, {ID: 3},
			{ID: 10}, {ID: 11},
		},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
			{From: 2, To: 3, Circuit: 1, X: 0.1, InService: true},
			{From: 10, To: 11, Circuit: 1, X: 0.1, InService: true},
			{From: 3, To: 10, Circuit: 1, X: 0.1, InService: false},
		},
		Generators: []network.Generator{
			{ID: "g1", Bus: 1, PMW: 50},
			{ID: "g10", Bus: 10, PMW: 20},
		},
		DCLines: []network.DCLine{
			{ID: "dc1", FromBus: 10, ToBus: 11},
		},
	}

	res := Clean(net, []int{2, 11})

	if !slices.Equal(res.RemovedBuses, []int{10, 11}) {
		t.Errorf("RemovedBuses = %v, want [10 11]", res.RemovedBuses)
	}
	if len(res.Network.Buses) != 3 {
		t.Errorf("got %d buses, want 3", len(res.Network.Buses))
	}
	if len(res.Network.Generators) != 1 || res.Network.Generators[0].ID != "g1" {
		t.Errorf("generators = %+v, want only g1", res.Network.Generators)
	}
	if len(res.Network.DCLines) != 0 {
		t.Errorf("DC line on pruned island survived: %+v", res.Network.DCLines)
	}
	if !slices.Equal(res.External, []int{2}) {
		t.Errorf("external = %v, want [2] (pruned bus dropped)", res.External)
	}
}

// On an island-size tie the component holding the lowest bus id wins.
func TestCleanTieBreaksToLowestID(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 8}, {ID: 9}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
			{From: 8, To: 9, Circuit: 1, X: 0.1, InService: true},
		},
	}

	res := Clean(net, nil)
	if !slices.Equal(res.RemovedBuses, []int{8, 9}) {
		t.Errorf("RemovedBuses = %v, want [8 9]", res.RemovedBuses)
	}
}

// Ids never present in the case pass through so the reducer can report
// them as unknown instead of them vanishing silently.
func TestCleanKeepsUnknownExternalIDs(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
		},
	}

	res := Clean(net, []int{2, 999})
	if !slices.Equal(res.External, []int{2, 999}) {
		t.Errorf("external = %v, want [2 999]", res.External)
	}
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	net := &network.Network{
		Buses: []network.Bus{{ID: 1}, {ID: 2}, {ID: 3}},
		Branches: []network.Branch{
			{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
		},
	}

	Clean(net, []int{3})
	if len(net.Buses) != 3 || len(net.Branches) != 1 {
		t.Error("Clean mutated its input case")
	}
}
