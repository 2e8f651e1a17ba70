package reduce

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/gridtools/gridfold/pkg/network"
)

// filterEquivalents removes synthesized branches whose reactance magnitude
// exceeds factor × the largest reactance of the original full case. Such
// branches are numerical near-open-circuits left over from chains of weakly
// coupled eliminated nodes, not physically meaningful couplings. Tags are
// dropped in lockstep so the vector stays aligned with the branch list.
//
// Original branches are never filtered. Returns the number of branches
// removed.
func filterEquivalents(reduced *network.Network, tags *[]CircuitTag, maxX, factor float64, logger *log.Logger) int {
	if maxX <= 0 {
		return 0
	}
	threshold := factor * maxX

	kept := reduced.Branches[:0]
	keptTags := (*tags)[:0]
	var removed int
	for i, br := range reduced.Branches {
		t := (*tags)[i]
		if t.Synthesized && math.Abs(br.X) > threshold {
			logger.Debug("dropping spurious equivalent branch",
				"from", br.From, "to", br.To, "x", br.X, "threshold", threshold)
			removed++
			continue
		}
		kept = append(kept, br)
		keptTags = append(keptTags, t)
	}
	reduced.Branches = kept
	*tags = keptTags
	return removed
}
