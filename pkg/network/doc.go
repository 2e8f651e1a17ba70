// Package network defines the transmission network case model used throughout
// GridFold: buses, branches, generators and DC lines, plus the dense index
// bijection and the JSON case format.
//
// The case format is an external data contract. Fields GridFold does not
// interpret ride along in per-element Meta maps so that import → reduce →
// export preserves them losslessly.
package network
