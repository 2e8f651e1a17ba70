// Package pipeline provides the complete reduction pipeline shared by the
// CLI and the API service.
//
// The pipeline consists of three stages:
//
//  1. Clean: drop out-of-service equipment and dead islands
//  2. Reduce: eliminate the external buses and build the equivalent
//  3. Render: generate output artifacts (JSON, DOT, SVG)
//
// Centralizing the stages keeps caching and validation behavior identical
// across entry points.
//
// Usage:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    External: []int{104, 105},
//	    Mode:     "proportional",
//	    Formats:  []string{"json", "svg"},
//	}
//	result, err := runner.Execute(ctx, net, opts)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/reduce"
)

// Format constants for output artifacts.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// Options contains all configuration for the reduction pipeline.
// The struct supports JSON serialization for API requests.
type Options struct {
	// External lists the bus ids to eliminate.
	External []int `json:"external"`

	// Mode selects load redistribution: "proportional" or "flowfidelity".
	Mode string `json:"mode,omitempty"`

	// FilterFactor scales the spurious-equivalent reactance threshold.
	// Zero means the default.
	FilterFactor float64 `json:"filter_factor,omitempty"`

	// Formats lists the artifacts to produce. Defaults to ["json"].
	Formats []string `json:"formats,omitempty"`

	// Detailed adds reactance and load labels to rendered diagrams.
	Detailed bool `json:"detailed,omitempty"`

	// Refresh bypasses the cache and recomputes.
	Refresh bool `json:"refresh,omitempty"`

	// Logger is set by the runner when nil.
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks option consistency and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Mode == "" {
		o.Mode = string(reduce.LoadProportional)
	}
	mode := reduce.LoadMode(o.Mode)
	if mode != reduce.LoadProportional && mode != reduce.LoadFlowFidelity {
		return errors.New(errors.ErrCodeInvalidMode, "unknown load mode %q", o.Mode)
	}
	if o.FilterFactor == 0 {
		o.FilterFactor = reduce.DefaultFilterFactor
	}
	if o.FilterFactor < 0 {
		return errors.New(errors.ErrCodeInvalidCase, "filter factor must be positive")
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	for _, f := range o.Formats {
		if !ValidFormats[f] {
			return errors.New(errors.ErrCodeInvalidCase, "unknown output format %q", f)
		}
	}
	return nil
}

// Stats captures per-stage timings and sizes for one pipeline run.
type Stats struct {
	CleanTime  time.Duration `json:"clean_time"`
	ReduceTime time.Duration `json:"reduce_time"`
	RenderTime time.Duration `json:"render_time"`

	RemovedBuses    int `json:"removed_buses"`
	RemovedBranches int `json:"removed_branches"`
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	ReduceHit bool `json:"reduce_hit"`
	RenderHit bool `json:"render_hit"`
}

// Result is the output of a complete pipeline run.
type Result struct {
	Reduction *reduce.Result    `json:"reduction"`
	Artifacts map[string][]byte `json:"-"`

	// CaseHash is the SHA-256 of the input case, usable as a stable id.
	CaseHash string `json:"case_hash"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache_info"`
}
