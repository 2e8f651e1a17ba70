package reduce

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gridtools/gridfold/pkg/admittance"
	"github.com/gridtools/gridfold/pkg/dcflow"
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// LoadMode selects how load on eliminated buses is redistributed.
type LoadMode string

const (
	// LoadProportional cascades each eliminated bus's load to its nearest
	// retained neighbors in proportion to coupling strength.
	LoadProportional LoadMode = "proportional"
	// LoadFlowFidelity sets retained loads so that flows on retained
	// branches match the full case, using the DC flow collaborator.
	LoadFlowFidelity LoadMode = "flowfidelity"
)

// DefaultFilterFactor is the post-filter threshold multiplier: equivalent
// branches with |X| beyond factor × max original reactance are discarded as
// numerically spurious near-open circuits.
const DefaultFilterFactor = 10.0

// Options configures a Reducer.
type Options struct {
	// Mode selects the load redistribution strategy. Default proportional.
	Mode LoadMode

	// FilterFactor overrides DefaultFilterFactor when > 0.
	FilterFactor float64

	// Flow is the DC power-flow collaborator. Required for
	// LoadFlowFidelity; unused otherwise.
	Flow dcflow.Solver

	// Logger receives pass progress and degeneracy warnings.
	// Defaults to a discard logger.
	Logger *log.Logger
}

// Reducer runs Ward reductions with a fixed configuration.
type Reducer struct {
	opts Options
}

// New creates a Reducer, validating the configured mode.
func New(opts Options) (*Reducer, error) {
	if opts.Mode == "" {
		opts.Mode = LoadProportional
	}
	if opts.Mode != LoadProportional && opts.Mode != LoadFlowFidelity {
		return nil, errors.New(errors.ErrCodeInvalidMode, "unknown load mode %q", opts.Mode)
	}
	if opts.FilterFactor <= 0 {
		opts.FilterFactor = DefaultFilterFactor
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Reducer{opts: opts}, nil
}

// pass holds the outcome of one independent elimination run.
type pass struct {
	model   *admittance.Model
	loads   []float64 // dense per-index active load after cascading (pass A only)
	skipped []int
	err     error
}

// Reduce computes the boundary equivalent of net with the given external
// buses eliminated.
//
// An empty external list is not an error: the result is the input case
// unchanged, flagged Unchanged, with identity links for every generator.
// Any fatal condition aborts the whole reduction; no partial result is
// returned.
func (r *Reducer) Reduce(ctx context.Context, net *network.Network, external []int) (*Result, error) {
	start := time.Now()
	logger := r.opts.Logger

	if len(external) == 0 {
		return r.unchangedResult(net, start), nil
	}

	extSet := make(map[int]bool, len(external))
	for _, id := range external {
		extSet[id] = true
	}

	for _, dc := range net.DCLines {
		if extSet[dc.FromBus] || extSet[dc.ToBus] {
			return nil, errors.New(errors.ErrCodeDCTerminal,
				"dc line %s terminates at an external bus (%d-%d); hvdc terminal elimination is unsupported",
				dc.ID, dc.FromBus, dc.ToBus)
		}
	}

	idx := network.NewIndex(net.Buses)
	extAll, err := idx.Translate(sortedKeys(extSet))
	if err != nil {
		return nil, err
	}

	// Pass B keeps external generator buses so relocation can read their
	// couplings onto the pass-A retained set.
	genBuses := make(map[int]bool)
	for _, id := range net.GeneratorBuses() {
		genBuses[id] = true
	}
	var extNonGen []int
	for _, i := range extAll {
		if !genBuses[idx.BusID(i)] {
			extNonGen = append(extNonGen, i)
		}
	}

	// The two passes eliminate independently from the same source case:
	// each builds its own model, and neither sees the other's mutations.
	passA := pass{loads: denseLoads(net, idx)}
	passB := pass{}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		passA.model, passA.err = admittance.Build(net, idx)
		if passA.err == nil {
			passA.skipped = eliminate(passA.model, extAll, passA.loads, logger)
		}
	}()
	go func() {
		defer wg.Done()
		passB.model, passB.err = admittance.Build(net, idx)
		if passB.err == nil {
			passB.skipped = eliminate(passB.model, extNonGen, nil, logger)
		}
	}()
	wg.Wait()

	if passA.err != nil {
		return nil, passA.err
	}
	if passB.err != nil {
		return nil, passB.err
	}
	logger.Debug("elimination passes complete",
		"retainedA", aliveCount(passA.model), "retainedB", aliveCount(passB.model))

	links, err := relocate(net, idx, passA.model, passB.model)
	if err != nil {
		return nil, err
	}

	reduced, tags, equivCount := assemble(net, idx, passA.model)
	applyLinks(reduced, links)

	switch r.opts.Mode {
	case LoadProportional:
		applyProportionalLoads(reduced, idx, passA.loads)
	case LoadFlowFidelity:
		if err := r.applyFlowFidelityLoads(ctx, net, reduced, links); err != nil {
			return nil, err
		}
	}

	filtered := filterEquivalents(reduced, &tags, net.MaxReactance(), r.opts.FilterFactor, logger)

	result := &Result{
		RunID:   uuid.NewString(),
		Reduced: reduced,
		Links:   links,
		Tags:    tags,
		Skipped: busIDs(idx, passA.skipped),
		Stats: Stats{
			InputBuses:      len(net.Buses),
			ReducedBuses:    len(reduced.Buses),
			EquivalentEdges: equivCount - filtered,
			FilteredEdges:   filtered,
			Elapsed:         time.Since(start),
		},
	}
	logger.Info("reduction complete",
		"buses", result.Stats.ReducedBuses, "equivalent", result.Stats.EquivalentEdges,
		"filtered", result.Stats.FilteredEdges, "skipped", len(result.Skipped))
	return result, nil
}

// unchangedResult surfaces the empty-external-set case as an informational
// result: the input case as-is with identity links.
func (r *Reducer) unchangedResult(net *network.Network, start time.Time) *Result {
	reduced := net.Clone()
	links := make([]Link, len(net.Generators))
	for i, g := range net.Generators {
		links[i] = Link{Generator: g.ID, FromBus: g.Bus, ToBus: g.Bus}
	}
	tags := make([]CircuitTag, len(reduced.Branches))
	for i, br := range reduced.Branches {
		tags[i] = originalTag(br.Circuit)
	}
	return &Result{
		RunID:     uuid.NewString(),
		Reduced:   reduced,
		Links:     links,
		Tags:      tags,
		Unchanged: true,
		Stats: Stats{
			InputBuses:   len(net.Buses),
			ReducedBuses: len(net.Buses),
			Elapsed:      time.Since(start),
		},
	}
}

// assemble builds the reduced case skeleton from the pass-A model: retained
// buses, surviving original branches, synthesized equivalent branches, and
// the aligned tag vector. Loads are filled in by the redistribution step.
func assemble(net *network.Network, idx *network.Index, m *admittance.Model) (*network.Network, []CircuitTag, int) {
	retained := make(map[int]bool)
	for i := 0; i < m.Len(); i++ {
		if m.Alive(i) {
			retained[idx.BusID(i)] = true
		}
	}

	reduced := &network.Network{Name: net.Name, Meta: net.Meta}
	for _, b := range net.Buses {
		if retained[b.ID] {
			reduced.Buses = append(reduced.Buses, b)
		}
	}

	var tags []CircuitTag
	for _, br := range net.Branches {
		if retained[br.From] && retained[br.To] {
			reduced.Branches = append(reduced.Branches, br)
			tags = append(tags, originalTag(br.Circuit))
		}
	}

	equiv := equivalentEdges(m, idx)
	for _, e := range equiv {
		reduced.Branches = append(reduced.Branches, network.Branch{
			From:      e.FromBus,
			To:        e.ToBus,
			Circuit:   e.Tag.Circuit,
			X:         e.X,
			InService: true,
		})
		tags = append(tags, e.Tag)
	}

	reduced.Generators = slices.Clone(net.Generators)
	reduced.DCLines = slices.Clone(net.DCLines)
	return reduced, tags, len(equiv)
}

// originalTag classifies an input branch: circuit 1 is the original circuit
// of its pair, higher circuits are parallels.
func originalTag(circuit int) CircuitTag {
	if circuit > 1 {
		return CircuitTag{Kind: TagParallel, Circuit: circuit}
	}
	return CircuitTag{Kind: TagOriginal, Circuit: circuit}
}

func denseLoads(net *network.Network, idx *network.Index) []float64 {
	loads := make([]float64, idx.Len())
	for _, b := range net.Buses {
		if i, ok := idx.Internal(b.ID); ok {
			loads[i] = b.LoadMW
		}
	}
	return loads
}

func aliveCount(m *admittance.Model) int {
	var n int
	for i := 0; i < m.Len(); i++ {
		if m.Alive(i) {
			n++
		}
	}
	return n
}

func busIDs(idx *network.Index, dense []int) []int {
	if len(dense) == 0 {
		return nil
	}
	out := make([]int, len(dense))
	for i, d := range dense {
		out[i] = idx.BusID(d)
	}
	slices.Sort(out)
	return out
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
