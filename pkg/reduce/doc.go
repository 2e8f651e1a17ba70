// Package reduce implements Ward/Kron reduction of a transmission case: the
// sequential elimination engine, the dual-pass reducer, generator relocation,
// load redistribution, and the equivalent-edge post-filter.
//
// The entry point is [Reducer.Reduce]. It consumes a full case plus the list
// of external bus ids and produces a [Result]: a reduced case over the
// retained buses whose DC behavior at those buses matches the full case, a
// link table describing generator relocation, and a circuit-tag vector
// aligned with the reduced branch list.
package reduce
