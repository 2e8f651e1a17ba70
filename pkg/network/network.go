package network

import (
	"slices"
)

// Bus is an electrical connection point (node) in the network.
type Bus struct {
	ID     int            `json:"id" bson:"id"`
	Name   string         `json:"name,omitempty" bson:"name,omitempty"`
	ShuntB float64        `json:"shunt_b,omitempty" bson:"shunt_b,omitempty"` // shunt susceptance, p.u.
	LoadMW float64        `json:"load_mw,omitempty" bson:"load_mw,omitempty"`
	Meta   map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Branch is a transmission line or transformer connecting two buses.
// Circuit disambiguates parallel branches between the same bus pair.
type Branch struct {
	From      int            `json:"from" bson:"from"`
	To        int            `json:"to" bson:"to"`
	Circuit   int            `json:"circuit" bson:"circuit"`
	X         float64        `json:"x" bson:"x"` // series reactance, p.u.
	R         float64        `json:"r,omitempty" bson:"r,omitempty"`
	InService bool           `json:"in_service" bson:"in_service"`
	Meta      map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Generator is a power injection attached to a bus.
type Generator struct {
	ID   string         `json:"id" bson:"id"`
	Bus  int            `json:"bus" bson:"bus"`
	PMW  float64        `json:"p_mw,omitempty" bson:"p_mw,omitempty"`
	Meta map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// DCLine is an HVDC link. Its terminals may never be eliminated.
type DCLine struct {
	ID      string         `json:"id" bson:"id"`
	FromBus int            `json:"from_bus" bson:"from_bus"`
	ToBus   int            `json:"to_bus" bson:"to_bus"`
	Meta    map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Network is a full transmission case. It is the input and output shape of
// the reduction pipeline: a reduced Network can be fed back through the same
// tooling.
type Network struct {
	Name       string         `json:"name,omitempty" bson:"name,omitempty"`
	Buses      []Bus          `json:"buses" bson:"buses"`
	Branches   []Branch       `json:"branches" bson:"branches"`
	Generators []Generator    `json:"generators,omitempty" bson:"generators,omitempty"`
	DCLines    []DCLine       `json:"dc_lines,omitempty" bson:"dc_lines,omitempty"`
	Meta       map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Bus returns the bus with the given id and true, or a zero Bus and false.
func (n *Network) Bus(id int) (Bus, bool) {
	for _, b := range n.Buses {
		if b.ID == id {
			return b, true
		}
	}
	return Bus{}, false
}

// HasBus reports whether a bus with the given id exists.
func (n *Network) HasBus(id int) bool {
	_, ok := n.Bus(id)
	return ok
}

// TotalLoadMW returns the sum of active load over all buses.
func (n *Network) TotalLoadMW() float64 {
	var total float64
	for _, b := range n.Buses {
		total += b.LoadMW
	}
	return total
}

// MaxReactance returns the largest |X| over in-service branches, or 0 for a
// network without in-service branches. Used by the post-filter threshold.
func (n *Network) MaxReactance() float64 {
	var max float64
	for _, br := range n.Branches {
		if !br.InService {
			continue
		}
		x := br.X
		if x < 0 {
			x = -x
		}
		if x > max {
			max = x
		}
	}
	return max
}

// GeneratorBuses returns the sorted set of bus ids carrying at least one
// generator.
func (n *Network) GeneratorBuses() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, g := range n.Generators {
		if !seen[g.Bus] {
			seen[g.Bus] = true
			ids = append(ids, g.Bus)
		}
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy of the network. Meta maps are copied shallowly
// per element, which is sufficient because GridFold never mutates Meta values.
func (n *Network) Clone() *Network {
	out := &Network{
		Name:       n.Name,
		Buses:      slices.Clone(n.Buses),
		Branches:   slices.Clone(n.Branches),
		Generators: slices.Clone(n.Generators),
		DCLines:    slices.Clone(n.DCLines),
		Meta:       copyMeta(n.Meta),
	}
	for i := range out.Buses {
		out.Buses[i].Meta = copyMeta(out.Buses[i].Meta)
	}
	for i := range out.Branches {
		out.Branches[i].Meta = copyMeta(out.Branches[i].Meta)
	}
	for i := range out.Generators {
		out.Generators[i].Meta = copyMeta(out.Generators[i].Meta)
	}
	for i := range out.DCLines {
		out.DCLines[i].Meta = copyMeta(out.DCLines[i].Meta)
	}
	return out
}

// copyMeta creates a shallow copy of metadata to avoid mutation.
func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
