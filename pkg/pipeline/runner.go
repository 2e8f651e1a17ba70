package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gridtools/gridfold/pkg/cache"
	"github.com/gridtools/gridfold/pkg/dcflow"
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/preprocess"
	"github.com/gridtools/gridfold/pkg/reduce"
	"github.com/gridtools/gridfold/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs the complete clean → reduce → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, net *network.Network, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	caseData, err := network.MarshalCase(net)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCase, err, "serialize case")
	}
	result.CaseHash = cache.Hash(caseData)

	// Stage 1: Clean
	cleanStart := time.Now()
	cleaned := preprocess.Clean(net, opts.External)
	result.Stats.CleanTime = time.Since(cleanStart)
	result.Stats.RemovedBuses = len(cleaned.RemovedBuses)
	result.Stats.RemovedBranches = cleaned.RemovedBranches
	if len(cleaned.RemovedBuses) > 0 {
		opts.Logger.Warn("pruned buses outside the main island",
			"buses", cleaned.RemovedBuses)
	}

	// Stage 2: Reduce
	reduceStart := time.Now()
	red, reduceHit, err := r.reduceWithCache(ctx, cleaned.Network, cleaned.External, opts)
	if err != nil {
		return nil, err
	}
	result.Reduction = red
	result.Stats.ReduceTime = time.Since(reduceStart)
	result.CacheInfo.ReduceHit = reduceHit

	opts.Logger.Info("reduced case",
		"buses", len(red.Reduced.Buses),
		"branches", len(red.Reduced.Branches),
		"equivalents", red.Stats.EquivalentEdges,
		"cached", reduceHit,
		"duration", result.Stats.ReduceTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.renderWithCache(ctx, red, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	return result, nil
}

// reduceWithCache runs the reduction, serving and populating the cache.
func (r *Runner) reduceWithCache(ctx context.Context, net *network.Network, external []int, opts Options) (*reduce.Result, bool, error) {
	caseData, err := network.MarshalCase(net)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidCase, err, "serialize case")
	}
	key := r.Keyer.ReductionKey(cache.Hash(caseData), cache.ReductionKeyOpts{
		External:     external,
		Mode:         opts.Mode,
		FilterFactor: opts.FilterFactor,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached reduce.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, true, nil
			}
			// Undecodable entry: recompute and overwrite.
		}
	}

	reducer, err := reduce.New(reduce.Options{
		Mode:         reduce.LoadMode(opts.Mode),
		FilterFactor: opts.FilterFactor,
		Flow:         dcflow.NewSolver(),
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, false, err
	}
	red, err := reducer.Reduce(ctx, net, external)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(red); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.TTLReduction)
	}
	return red, false, nil
}

// renderWithCache produces the requested artifacts, serving rendered
// diagrams from cache when the reduction result is unchanged.
func (r *Runner) renderWithCache(ctx context.Context, red *reduce.Result, opts Options) (map[string][]byte, bool, error) {
	resultData, err := json.Marshal(red)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize result")
	}
	resultHash := cache.Hash(resultData)

	artifacts := make(map[string][]byte)
	cacheable := 0
	hits := 0
	for _, format := range opts.Formats {
		if format == FormatJSON {
			// JSON is the result itself, never cached separately.
			continue
		}
		cacheable++
		key := r.Keyer.ArtifactKey(resultHash, format)
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit && !opts.Refresh {
			artifacts[format] = data
			hits++
		}
	}

	var dot string
	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		switch format {
		case FormatJSON:
			data, err := json.MarshalIndent(red, "", "  ")
			if err != nil {
				return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode result")
			}
			artifacts[format] = data
		case FormatDOT:
			if dot == "" {
				dot = render.ToDOT(red, render.Options{Detailed: opts.Detailed})
			}
			artifacts[format] = []byte(dot)
		case FormatSVG:
			if dot == "" {
				dot = render.ToDOT(red, render.Options{Detailed: opts.Detailed})
			}
			svg, err := render.RenderSVG(dot)
			if err != nil {
				return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
			}
			artifacts[format] = svg
		}
		if format != FormatJSON {
			key := r.Keyer.ArtifactKey(resultHash, format)
			_ = r.Cache.Set(ctx, key, artifacts[format], cache.TTLArtifact)
		}
	}

	return artifacts, cacheable > 0 && hits == cacheable, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
