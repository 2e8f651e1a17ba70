// Package dcflow provides the DC power-flow collaborator consumed by
// flow-fidelity load redistribution.
//
// The solve is the standard linearized lossless model: bus angles satisfy
// B·θ = P with B assembled from branch susceptances (1/x), one slack bus
// pinned to angle zero, and branch flows recovered as (θi − θj)/x. Callers
// depend on the [Solver] interface so a remote flow service can stand in for
// the local implementation.
package dcflow

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
)

// BranchFlow is the active-power flow on one branch, oriented From→To.
type BranchFlow struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Circuit int     `json:"circuit"`
	MW      float64 `json:"mw"`
}

// Solution is a complete DC flow result. There are no partial solutions:
// either every angle and flow is present or the solve failed.
type Solution struct {
	// Angles maps bus id to voltage angle in radians; the slack bus is 0.
	Angles map[int]float64 `json:"angles"`
	// Flows holds one entry per in-service branch.
	Flows []BranchFlow `json:"flows"`
}

// Solver computes DC flow solutions. Implementations must be safe for
// concurrent use.
type Solver interface {
	// Solve returns branch flows and bus angles for the given case and
	// per-bus injections (generation minus load, MW). Injections for buses
	// missing from the map are zero; any imbalance is absorbed by the
	// slack bus.
	Solve(ctx context.Context, net *network.Network, injections map[int]float64) (*Solution, error)
}

// LinearSolver solves the DC system with a dense LU factorization.
// The zero value is ready to use.
type LinearSolver struct{}

// NewSolver returns a LinearSolver.
func NewSolver() *LinearSolver { return &LinearSolver{} }

// Solve implements [Solver]. The slack is the lowest-numbered bus.
func (s *LinearSolver) Solve(ctx context.Context, net *network.Network, injections map[int]float64) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(net.Buses)
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidCase, "dc flow: case has no buses")
	}

	idx := network.NewIndex(net.Buses)

	// Nodal susceptance matrix over all buses.
	b := mat.NewDense(n, n, nil)
	for _, br := range net.Branches {
		if !br.InService {
			continue
		}
		if br.X == 0 {
			return nil, errors.New(errors.ErrCodeInvalidCase,
				"dc flow: branch %d-%d circuit %d has zero reactance", br.From, br.To, br.Circuit)
		}
		i, ok := idx.Internal(br.From)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCase, "dc flow: unknown bus %d", br.From)
		}
		j, ok := idx.Internal(br.To)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidCase, "dc flow: unknown bus %d", br.To)
		}
		w := 1 / br.X
		b.Set(i, i, b.At(i, i)+w)
		b.Set(j, j, b.At(j, j)+w)
		b.Set(i, j, b.At(i, j)-w)
		b.Set(j, i, b.At(j, i)-w)
	}

	// Pin the slack (dense index 0, the lowest bus id) by solving the
	// system with its row and column removed.
	theta := make([]float64, n)
	if n > 1 {
		sub := mat.NewDense(n-1, n-1, nil)
		rhs := mat.NewVecDense(n-1, nil)
		for i := 1; i < n; i++ {
			rhs.SetVec(i-1, injections[idx.BusID(i)])
			for j := 1; j < n; j++ {
				sub.Set(i-1, j-1, b.At(i, j))
			}
		}

		var lu mat.LU
		lu.Factorize(sub)
		sol := mat.NewVecDense(n-1, nil)
		if err := lu.SolveVecTo(sol, false, rhs); err != nil {
			return nil, errors.Wrap(errors.ErrCodeServiceUnavailable, err,
				"dc flow: nodal system is singular (islanded case?)")
		}
		for i := 1; i < n; i++ {
			theta[i] = sol.AtVec(i - 1)
		}
	}

	out := &Solution{Angles: make(map[int]float64, n)}
	for i := 0; i < n; i++ {
		out.Angles[idx.BusID(i)] = theta[i]
	}
	for _, br := range net.Branches {
		if !br.InService {
			continue
		}
		out.Flows = append(out.Flows, BranchFlow{
			From:    br.From,
			To:      br.To,
			Circuit: br.Circuit,
			MW:      (out.Angles[br.From] - out.Angles[br.To]) / br.X,
		})
	}
	return out, nil
}
