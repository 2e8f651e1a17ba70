package reduce

import (
	"math"

	"github.com/gridtools/gridfold/pkg/admittance"
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// tieTol is the coupling-magnitude band within which two candidate
// destinations count as tied.
const tieTol = 1e-12

// relocate builds the full link table: one entry per generator in the input
// case, identity when the generator's bus survives pass A, otherwise the
// pass-A retained bus most strongly coupled to the generator's bus in the
// pass-B model.
//
// Ties in coupling magnitude break to the lowest bus id. Neighbors are
// visited in ascending dense index, which is ascending bus id, so the first
// candidate seen at a given magnitude wins.
func relocate(net *network.Network, idx *network.Index, passA, passB *admittance.Model) ([]Link, error) {
	links := make([]Link, len(net.Generators))
	for gi, g := range net.Generators {
		src, ok := idx.Internal(g.Bus)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"generator %s references unknown bus %d", g.ID, g.Bus)
		}

		if passA.Alive(src) {
			links[gi] = Link{Generator: g.ID, FromBus: g.Bus, ToBus: g.Bus}
			continue
		}

		dst, err := relocateOne(g, src, passA, passB)
		if err != nil {
			return nil, err
		}
		links[gi] = Link{Generator: g.ID, FromBus: g.Bus, ToBus: idx.BusID(dst)}
	}
	return links, nil
}

// applyLinks rewrites the bus of every relocated generator in the reduced
// case to its link destination.
func applyLinks(reduced *network.Network, links []Link) {
	dest := make(map[string]int, len(links))
	for _, l := range links {
		dest[l.Generator] = l.ToBus
	}
	for gi := range reduced.Generators {
		if to, ok := dest[reduced.Generators[gi].ID]; ok {
			reduced.Generators[gi].Bus = to
		}
	}
}

// relocateOne picks the destination for one eliminated generator bus: the
// pass-A retained neighbor with the largest |coupling| in the pass-B model.
func relocateOne(g network.Generator, src int, passA, passB *admittance.Model) (int, error) {
	best := -1
	var bestW float64
	for _, nb := range passB.Neighbors(src) {
		if !passA.Alive(nb) {
			continue
		}
		w := math.Abs(passB.Off(src, nb))
		if best == -1 || w > bestW+tieTol {
			best, bestW = nb, w
		}
	}
	if best == -1 {
		return 0, errors.New(errors.ErrCodeDegenerateNode,
			"generator %s on bus %d has no retained neighbor to relocate to", g.ID, g.Bus)
	}
	return best, nil
}
