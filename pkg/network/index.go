package network

import (
	"slices"

	"github.com/gridtools/gridfold/pkg/errors"
)

// Index is a bijection between bus ids and dense internal indices [0..N).
// Elimination order and admittance indexing require compact indices; bus ids
// in real cases are arbitrary (and sparse).
//
// Index is pure and stateless: it is built once from a bus list and never
// mutated. Buses are indexed in ascending id order so that the mapping is
// deterministic for a given case.
type Index struct {
	ids  []int       // internal index -> bus id
	byID map[int]int // bus id -> internal index
}

// NewIndex builds the bijection for the given buses.
func NewIndex(buses []Bus) *Index {
	ids := make([]int, len(buses))
	for i, b := range buses {
		ids[i] = b.ID
	}
	slices.Sort(ids)

	byID := make(map[int]int, len(ids))
	for i, id := range ids {
		byID[id] = i
	}
	return &Index{ids: ids, byID: byID}
}

// Len returns the number of indexed buses.
func (x *Index) Len() int { return len(x.ids) }

// Internal returns the dense index for a bus id and true, or 0 and false if
// the id is not part of the case.
func (x *Index) Internal(busID int) (int, bool) {
	i, ok := x.byID[busID]
	return i, ok
}

// BusID returns the bus id for a dense index. It panics if i is out of
// range, which indicates a bookkeeping bug rather than bad input.
func (x *Index) BusID(i int) int { return x.ids[i] }

// Translate maps a list of bus ids to dense indices. It fails with
// CONFIG_UNKNOWN_BUS on the first id that does not exist in the case, so
// callers get an actionable identifier.
func (x *Index) Translate(busIDs []int) ([]int, error) {
	out := make([]int, len(busIDs))
	for i, id := range busIDs {
		idx, ok := x.byID[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownBus, "external bus %d not in case", id)
		}
		out[i] = idx
	}
	return out, nil
}
