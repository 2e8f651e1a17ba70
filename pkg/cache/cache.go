// Package cache provides pluggable result caching for reduction runs.
// Backends share one interface so the CLI (file cache), the service
// (Redis) and tests (null cache) are interchangeable.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry class. Reduction results are pure functions of
// the case and options, so they could live forever; the TTLs just bound
// disk and Redis growth.
const (
	// TTLReduction applies to cached reduction results.
	TTLReduction = 7 * 24 * time.Hour

	// TTLArtifact applies to rendered diagrams (SVG, DOT).
	TTLArtifact = 24 * time.Hour
)

// Cache is the storage interface shared by all backends.
//
// Get returns (data, hit, error): a miss is (nil, false, nil), never an
// error. Set with ttl <= 0 stores without expiration.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// ReductionKey identifies a reduction result by the case content hash
	// and the options that shaped it.
	ReductionKey(caseHash string, opts ReductionKeyOpts) string

	// ArtifactKey identifies a rendered artifact by the result content
	// hash and the output format.
	ArtifactKey(resultHash string, format string) string
}

// ReductionKeyOpts are the option fields that change the reduction output.
// Anything not listed here must not influence the result.
type ReductionKeyOpts struct {
	External     []int   `json:"external"`
	Mode         string  `json:"mode"`
	FilterFactor float64 `json:"filter_factor"`
}

// DefaultKeyer namespaces keys by stage and hashes option structs so that
// key length stays bounded regardless of the external list size.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ReductionKey generates a key for reduction result caching.
func (k *DefaultKeyer) ReductionKey(caseHash string, opts ReductionKeyOpts) string {
	return hashKey("reduction:"+caseHash, opts)
}

// ArtifactKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) ArtifactKey(resultHash string, format string) string {
	return hashKey("artifact:"+resultHash, format)
}

// ScopedKeyer wraps a Keyer with a prefix so multiple tenants or
// deployments can share one Redis without key collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ReductionKey generates a prefixed reduction key.
func (k *ScopedKeyer) ReductionKey(caseHash string, opts ReductionKeyOpts) string {
	return k.prefix + k.inner.ReductionKey(caseHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(resultHash string, format string) string {
	return k.prefix + k.inner.ArtifactKey(resultHash, format)
}
