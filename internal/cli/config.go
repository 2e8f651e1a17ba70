package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gridtools/gridfold/pkg/errors"
)

// JobConfig is a TOML description of a reduction job, an alternative to
// spelling everything out in flags. Flags override file values.
//
// Example:
//
//	case = "cases/winter-peak.json"
//	external = [104, 105, 106]
//	mode = "flowfidelity"
//	filter_factor = 8.0
//	formats = ["json", "svg"]
//	output = "out/winter-peak"
type JobConfig struct {
	Case         string   `toml:"case"`
	External     []int    `toml:"external"`
	Mode         string   `toml:"mode"`
	FilterFactor float64  `toml:"filter_factor"`
	Formats      []string `toml:"formats"`
	Output       string   `toml:"output"`

	Cache CacheConfig `toml:"cache"`
	Store StoreConfig `toml:"store"`
}

// CacheConfig selects the cache backend for a job.
type CacheConfig struct {
	// Dir enables the file cache in the given directory.
	Dir string `toml:"dir"`
	// RedisURL enables the Redis cache. Takes precedence over Dir.
	RedisURL string `toml:"redis_url"`
	// Disabled turns caching off entirely.
	Disabled bool `toml:"disabled"`
}

// StoreConfig enables archiving results to MongoDB.
type StoreConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// LoadJobConfig reads and validates a TOML job file. Relative paths in the
// file resolve against the file's directory.
func LoadJobConfig(path string) (*JobConfig, error) {
	var cfg JobConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCase, err, "parse job file %s", path)
	}

	base := filepath.Dir(path)
	if cfg.Case != "" && !filepath.IsAbs(cfg.Case) {
		cfg.Case = filepath.Join(base, cfg.Case)
	}
	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(base, cfg.Output)
	}
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(base, cfg.Cache.Dir)
	}
	return &cfg, nil
}

// parseBusList parses a comma-separated bus id list ("104,105,106").
func parseBusList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New(errors.ErrCodeUnknownBus, "invalid bus id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// cacheDir returns the default file cache directory under the user cache root.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gridfold"), nil
}
