package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gridtools/gridfold/pkg/cache"
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/pipeline"
	"github.com/gridtools/gridfold/pkg/store"
)

// reduceOpts holds the command-line flags for the reduce command.
type reduceOpts struct {
	job          string // TOML job file; flags override its values
	external     string // comma-separated bus ids to eliminate
	mode         string // load redistribution mode
	filterFactor float64
	formats      string
	output       string // output base path; "-" writes JSON to stdout
	refresh      bool
	detailed     bool
	noCache      bool
}

// newReduceCmd creates the reduce command.
func newReduceCmd() *cobra.Command {
	var opts reduceOpts

	cmd := &cobra.Command{
		Use:   "reduce [case]",
		Short: "Build a reduced equivalent of a network case",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var casePath string
			if len(args) == 1 {
				casePath = args[0]
			}
			return runReduce(cmd.Context(), casePath, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.job, "job", "", "TOML job file (flags override file values)")
	cmd.Flags().StringVarP(&opts.external, "external", "e", "", "comma-separated bus ids to eliminate")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "load redistribution: proportional (default), flowfidelity")
	cmd.Flags().Float64Var(&opts.filterFactor, "filter-factor", 0, "spurious-equivalent reactance threshold multiplier")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): json (default), dot, svg (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path; - writes JSON to stdout")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache and recompute")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label reactance and load in diagrams")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")

	return cmd
}

func runReduce(ctx context.Context, casePath string, opts *reduceOpts) error {
	logger := loggerFromContext(ctx)

	var cfg JobConfig
	if opts.job != "" {
		loaded, err := LoadJobConfig(opts.job)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	mergeReduceFlags(&cfg, casePath, opts)

	if cfg.Case == "" {
		return errors.New(errors.ErrCodeInvalidCase, "no case file given (argument or job file)")
	}
	external := cfg.External
	if opts.external != "" {
		parsed, err := parseBusList(opts.external)
		if err != nil {
			return err
		}
		external = parsed
	}

	net, err := network.ReadCaseFile(cfg.Case)
	if err != nil {
		return err
	}
	logger.Info("loaded case",
		"file", cfg.Case,
		"buses", len(net.Buses),
		"branches", len(net.Branches))

	c, err := openCache(ctx, cfg.Cache, opts.noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(c, nil, logger)
	defer runner.Close()

	p := newProgress(logger)
	res, err := runner.Execute(ctx, net, pipeline.Options{
		External:     external,
		Mode:         cfg.Mode,
		FilterFactor: cfg.FilterFactor,
		Formats:      cfg.Formats,
		Detailed:     opts.detailed,
		Refresh:      opts.refresh,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Reduced %d to %d buses",
		len(net.Buses), len(res.Reduction.Reduced.Buses)))

	if cfg.Store.URI != "" {
		if err := archiveResult(ctx, cfg.Store, cfg.Mode, external, res); err != nil {
			logger.Warn("archive failed", "err", err)
		}
	}

	return writeArtifacts(res, cfg.Output, logger)
}

// mergeReduceFlags overlays explicit flags onto the job config.
func mergeReduceFlags(cfg *JobConfig, casePath string, opts *reduceOpts) {
	if casePath != "" {
		cfg.Case = casePath
	}
	if opts.mode != "" {
		cfg.Mode = opts.mode
	}
	if opts.filterFactor != 0 {
		cfg.FilterFactor = opts.filterFactor
	}
	if opts.formats != "" {
		cfg.Formats = strings.Split(opts.formats, ",")
	}
	if opts.output != "" {
		cfg.Output = opts.output
	}
}

// openCache selects the cache backend per config, defaulting to the file
// cache in the user cache directory.
func openCache(ctx context.Context, cfg CacheConfig, disabled bool) (cache.Cache, error) {
	if disabled || cfg.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisURL != "" {
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	}
	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// archiveResult saves the run to MongoDB when a store is configured.
func archiveResult(ctx context.Context, cfg StoreConfig, mode string, external []int, res *pipeline.Result) error {
	db := cfg.Database
	if db == "" {
		db = "gridfold"
	}
	s, err := store.Connect(ctx, cfg.URI, db)
	if err != nil {
		return err
	}
	defer s.Close(ctx)
	return s.Save(ctx, res.CaseHash, mode, external, res.Reduction)
}

// writeArtifacts writes each produced artifact next to the output base path.
// With no output path, or "-", the JSON artifact goes to stdout.
func writeArtifacts(res *pipeline.Result, output string, logger *log.Logger) error {
	if output == "" || output == "-" {
		if data, ok := res.Artifacts[pipeline.FormatJSON]; ok {
			fmt.Println(string(data))
		}
		for format := range res.Artifacts {
			if format != pipeline.FormatJSON {
				return errors.New(errors.ErrCodeInvalidCase,
					"format %s needs --output", format)
			}
		}
		return nil
	}

	for format, data := range res.Artifacts {
		path := output + "." + format
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		logger.Info("wrote artifact", "path", path)
	}
	return nil
}
