package reduce

import (
	"time"

	"github.com/gridtools/gridfold/pkg/network"
)

// TagKind classifies a branch of the reduced case.
type TagKind string

const (
	// TagOriginal marks a branch carried over from the input case.
	TagOriginal TagKind = "original"
	// TagParallel marks a branch that parallels other circuits on the same
	// bus pair, either an original circuit with id > 1 or a synthesized one.
	TagParallel TagKind = "parallel"
	// TagEquivalent marks a branch synthesized by elimination on a bus pair
	// the input case did not connect.
	TagEquivalent TagKind = "equivalent"
)

// EquivalentCircuit is the sentinel circuit id for synthesized branches on
// previously unconnected bus pairs.
const EquivalentCircuit = 99

// CircuitTag describes the provenance of one branch in the reduced case.
type CircuitTag struct {
	Kind        TagKind `json:"kind" bson:"kind"`
	Circuit     int     `json:"circuit" bson:"circuit"`
	Synthesized bool    `json:"synthesized,omitempty" bson:"synthesized,omitempty"`
}

// EquivalentEdge is a branch synthesized by the elimination engine.
type EquivalentEdge struct {
	FromBus, ToBus int
	B              float64 // off-diagonal susceptance contribution
	X              float64 // equivalent reactance, −1/B
	Tag            CircuitTag
}

// Link maps a generator's original bus to its relocation destination.
// Identity (FromBus == ToBus) when the generator's bus survives reduction.
type Link struct {
	Generator string `json:"generator" bson:"generator"`
	FromBus   int    `json:"from_bus" bson:"from_bus"`
	ToBus     int    `json:"to_bus" bson:"to_bus"`
}

// Identity reports whether the link leaves the generator in place.
func (l Link) Identity() bool { return l.FromBus == l.ToBus }

// Stats carries reduction size and timing information.
type Stats struct {
	InputBuses      int           `json:"input_buses" bson:"input_buses"`
	ReducedBuses    int           `json:"reduced_buses" bson:"reduced_buses"`
	EquivalentEdges int           `json:"equivalent_edges" bson:"equivalent_edges"`
	FilteredEdges   int           `json:"filtered_edges" bson:"filtered_edges"`
	Elapsed         time.Duration `json:"elapsed_ns" bson:"elapsed_ns"`
}

// Result is the complete outcome of a reduction run.
type Result struct {
	// RunID identifies this reduction run.
	RunID string `json:"run_id" bson:"run_id"`

	// Reduced is the case over the retained buses, in the same structural
	// shape as the input so it can be fed back through the pipeline.
	Reduced *network.Network `json:"reduced" bson:"reduced"`

	// Links maps every generator in the input case to its destination bus,
	// including identity entries for generators that did not move.
	Links []Link `json:"links" bson:"links"`

	// Tags is aligned index-for-index with Reduced.Branches.
	Tags []CircuitTag `json:"tags" bson:"tags"`

	// Skipped lists external bus ids that could not be eliminated
	// (degenerate self-admittance or no remaining neighbors). They stay in
	// the reduced case and are reported rather than dropped.
	Skipped []int `json:"skipped,omitempty" bson:"skipped,omitempty"`

	// Unchanged is set when the external set was empty and the result is
	// the input case as-is. Informational, not an error.
	Unchanged bool `json:"unchanged,omitempty" bson:"unchanged,omitempty"`

	Stats Stats `json:"stats" bson:"stats"`
}
