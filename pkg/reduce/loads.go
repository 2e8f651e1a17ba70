package reduce

import (
	"context"
	"math"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// applyProportionalLoads writes the cascaded pass-A load vector onto the
// retained buses. Conservation holds by construction: every unit of load
// either stayed on its bus or was handed along elimination steps until it
// reached a survivor.
func applyProportionalLoads(reduced *network.Network, idx *network.Index, loads []float64) {
	for bi := range reduced.Buses {
		if i, ok := idx.Internal(reduced.Buses[bi].ID); ok {
			reduced.Buses[bi].LoadMW = loads[i]
		}
	}
}

// applyFlowFidelityLoads sets retained loads so that the reduced case,
// subjected to the relocated generation, reproduces the full case's flows on
// retained branches.
//
// The full case is solved once for bus angles. Evaluating the reduced branch
// set against those boundary angles gives the injection each retained bus
// must provide for the reduced case to carry the same flows; the load is
// whatever generation exceeds that requirement. The float residue against
// the full case's total load is rebalanced proportionally so conservation
// holds exactly.
//
// Requires the DC flow collaborator: a nil or failing solver is
// SERVICE_UNAVAILABLE, never a silent fall back to proportional mode.
func (r *Reducer) applyFlowFidelityLoads(ctx context.Context, full, reduced *network.Network, links []Link) error {
	if r.opts.Flow == nil {
		return errors.New(errors.ErrCodeServiceUnavailable,
			"flow-fidelity redistribution requested but no dc flow solver is configured")
	}

	injections := make(map[int]float64, len(full.Buses))
	for _, b := range full.Buses {
		injections[b.ID] -= b.LoadMW
	}
	for _, g := range full.Generators {
		injections[g.Bus] += g.PMW
	}

	sol, err := r.opts.Flow.Solve(ctx, full, injections)
	if err != nil {
		return errors.Wrap(errors.ErrCodeServiceUnavailable, err, "dc flow solve of full case failed")
	}

	// Injection each retained bus must supply under the full case's angles.
	required := make(map[int]float64, len(reduced.Buses))
	for _, br := range reduced.Branches {
		if !br.InService || br.X == 0 {
			continue
		}
		flow := (sol.Angles[br.From] - sol.Angles[br.To]) / br.X
		required[br.From] += flow
		required[br.To] -= flow
	}

	generation := make(map[int]float64, len(reduced.Buses))
	for _, g := range reduced.Generators {
		generation[g.Bus] += g.PMW
	}

	var total float64
	for bi := range reduced.Buses {
		id := reduced.Buses[bi].ID
		reduced.Buses[bi].LoadMW = generation[id] - required[id]
		total += reduced.Buses[bi].LoadMW
	}

	rebalance(reduced, full.TotalLoadMW()-total)
	return nil
}

// rebalance spreads the conservation residue over the retained buses in
// proportion to load magnitude, falling back to an even split when the
// reduced case carries no load at all.
func rebalance(reduced *network.Network, residue float64) {
	if residue == 0 || len(reduced.Buses) == 0 {
		return
	}
	var scale float64
	for _, b := range reduced.Buses {
		scale += math.Abs(b.LoadMW)
	}
	if scale == 0 {
		share := residue / float64(len(reduced.Buses))
		for bi := range reduced.Buses {
			reduced.Buses[bi].LoadMW += share
		}
		return
	}
	for bi := range reduced.Buses {
		reduced.Buses[bi].LoadMW += residue * math.Abs(reduced.Buses[bi].LoadMW) / scale
	}
}
