// Package preprocess prepares a raw case for reduction: it removes
// out-of-service branches, prunes buses left dangling outside the main
// island, and trims the external list to the surviving buses.
//
// The reduction engine assumes a single connected component; feeding it the
// raw case with dead islands would make every island bus structurally
// uneliminable. Preprocessing is its own stage so the reducer can stay a
// pure graph algorithm.
package preprocess

import (
	"slices"

	"github.com/gridtools/gridfold/pkg/network"
)

// Result is a cleaned case plus what was removed to get there.
type Result struct {
	Network  *network.Network
	External []int // external list restricted to surviving buses

	RemovedBuses    []int
	RemovedBranches int
}

// Clean returns a copy of net containing only in-service branches and the
// buses of the main island (largest connected component; ties break to the
// component holding the lowest bus id). The input case is not modified.
//
// Generators and DC lines on pruned buses are dropped with their buses, and
// external ids pointing at pruned buses are dropped from the external list.
func Clean(net *network.Network, external []int) *Result {
	adj := make(map[int][]int)
	for _, br := range net.Branches {
		if !br.InService {
			continue
		}
		adj[br.From] = append(adj[br.From], br.To)
		adj[br.To] = append(adj[br.To], br.From)
	}

	keep := mainIsland(net.Buses, adj)

	out := &network.Network{Name: net.Name, Meta: net.Meta}
	var removed []int
	for _, b := range net.Buses {
		if keep[b.ID] {
			out.Buses = append(out.Buses, b)
		} else {
			removed = append(removed, b.ID)
		}
	}
	for _, br := range net.Branches {
		if br.InService && keep[br.From] && keep[br.To] {
			out.Branches = append(out.Branches, br)
		}
	}
	for _, g := range net.Generators {
		if keep[g.Bus] {
			out.Generators = append(out.Generators, g)
		}
	}
	for _, dc := range net.DCLines {
		if keep[dc.FromBus] && keep[dc.ToBus] {
			out.DCLines = append(out.DCLines, dc)
		}
	}

	// Drop externals whose bus was pruned. Ids that never were in the case
	// pass through so the reducer reports them as unknown.
	known := make(map[int]bool, len(net.Buses))
	for _, b := range net.Buses {
		known[b.ID] = true
	}
	var ext []int
	for _, id := range external {
		if keep[id] || !known[id] {
			ext = append(ext, id)
		}
	}

	slices.Sort(removed)
	return &Result{
		Network:         out,
		External:        ext,
		RemovedBuses:    removed,
		RemovedBranches: len(net.Branches) - len(out.Branches),
	}
}

// mainIsland returns the bus set of the largest connected component.
// Components are explored from buses in ascending id order, so on a size tie
// the component containing the lowest bus id wins.
func mainIsland(buses []network.Bus, adj map[int][]int) map[int]bool {
	ids := make([]int, len(buses))
	for i, b := range buses {
		ids[i] = b.ID
	}
	slices.Sort(ids)

	visited := make(map[int]bool)
	var best []int
	for _, start := range ids {
		if visited[start] {
			continue
		}
		comp := component(start, adj, visited)
		if len(comp) > len(best) {
			best = comp
		}
	}

	keep := make(map[int]bool, len(best))
	for _, id := range best {
		keep[id] = true
	}
	return keep
}

// component collects the connected component of start with an iterative DFS.
func component(start int, adj map[int][]int, visited map[int]bool) []int {
	var comp []int
	stack := []int{start}
	visited[start] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, id)
		for _, nb := range adj[id] {
			if !visited[nb] {
				visited[nb] = true
				stack = append(stack, nb)
			}
		}
	}
	return comp
}
