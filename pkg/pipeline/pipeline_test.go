package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/gridtools/gridfold/pkg/cache"
	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/reduce"
)

func testRunner(t *testing.T, c cache.Cache) *Runner {
	t.Helper()
	return NewRunner(c, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

// Five-bus ring with buses 4 and 5 external.
func testCase() *network.Network {
	net := &network.Network{Name: "ring5"}
	for i := 1; i <= 5; i++ {
		net.Buses = append(net.Buses, network.Bus{ID: i, LoadMW: 20})
	}
	for i := 1; i <= 5; i++ {
		net.Branches = append(net.Branches, network.Branch{
			From: i, To: i%5 + 1, Circuit: 1, X: 0.1, InService: true,
		})
	}
	net.Generators = []network.Generator{{ID: "g1", Bus: 1, PMW: 100}}
	return net
}

func TestExecute(t *testing.T) {
	r := testRunner(t, nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), testCase(), Options{
		External: []int{4, 5},
		Formats:  []string{FormatJSON, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if res.Reduction == nil || len(res.Reduction.Reduced.Buses) != 3 {
		t.Fatalf("reduction did not shrink the case: %+v", res.Reduction)
	}
	if res.CaseHash == "" {
		t.Error("CaseHash not set")
	}
	if res.CacheInfo.ReduceHit {
		t.Error("first run should not be a cache hit")
	}

	// Load conservation through the whole pipeline.
	var total float64
	for _, b := range res.Reduction.Reduced.Buses {
		total += b.LoadMW
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("total load = %v, want 100", total)
	}

	// JSON artifact decodes back to the same result.
	data, ok := res.Artifacts[FormatJSON]
	if !ok {
		t.Fatal("json artifact missing")
	}
	var decoded reduce.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json artifact does not decode: %v", err)
	}
	if decoded.RunID != res.Reduction.RunID {
		t.Error("decoded artifact run id mismatch")
	}

	dot, ok := res.Artifacts[FormatDOT]
	if !ok || !strings.Contains(string(dot), "graph reduced") {
		t.Errorf("dot artifact missing or malformed: %q", dot)
	}
}

func TestExecuteUsesReductionCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r := testRunner(t, c)
	defer r.Close()

	opts := Options{External: []int{4, 5}}
	ctx := context.Background()

	first, err := r.Execute(ctx, testCase(), opts)
	if err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	second, err := r.Execute(ctx, testCase(), opts)
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}

	if first.CacheInfo.ReduceHit {
		t.Error("first run should miss")
	}
	if !second.CacheInfo.ReduceHit {
		t.Error("second run should hit the reduction cache")
	}
	// Cached result is byte-identical, run id included.
	if first.Reduction.RunID != second.Reduction.RunID {
		t.Error("cached result should carry the original run id")
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	r := testRunner(t, c)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Execute(ctx, testCase(), Options{External: []int{4}}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	res, err := r.Execute(ctx, testCase(), Options{External: []int{4}, Refresh: true})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.CacheInfo.ReduceHit {
		t.Error("refresh run must not serve from cache")
	}
}

func TestExecutePrunesDeadIsland(t *testing.T) {
	net := testCase()
	// Island behind an out-of-service tie.
	net.Buses = append(net.Buses, network.Bus{ID: 10}, network.Bus{ID: 11})
	net.Branches = append(net.Branches,
		network.Branch{From: 10, To: 11, Circuit: 1, X: 0.1, InService: true},
		network.Branch{From: 3, To: 10, Circuit: 1, X: 0.1, InService: false},
	)

	r := testRunner(t, nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), net, Options{External: []int{4, 10}})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Stats.RemovedBuses != 2 {
		t.Errorf("RemovedBuses = %d, want 2", res.Stats.RemovedBuses)
	}
	for _, b := range res.Reduction.Reduced.Buses {
		if b.ID == 10 || b.ID == 11 {
			t.Errorf("island bus %d survived", b.ID)
		}
	}
}

func TestExecuteInvalidOptions(t *testing.T) {
	r := testRunner(t, nil)
	defer r.Close()

	cases := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"bad mode", Options{Mode: "magic"}, errors.ErrCodeInvalidMode},
		{"bad format", Options{Formats: []string{"png3d"}}, errors.ErrCodeInvalidCase},
		{"negative factor", Options{FilterFactor: -1}, errors.ErrCodeInvalidCase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), testCase(), tc.opts)
			if !errors.Is(err, tc.code) {
				t.Errorf("error = %v, want code %s", err, tc.code)
			}
		})
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if opts.Mode != string(reduce.LoadProportional) {
		t.Errorf("Mode = %q, want proportional default", opts.Mode)
	}
	if opts.FilterFactor != reduce.DefaultFilterFactor {
		t.Errorf("FilterFactor = %v, want %v", opts.FilterFactor, reduce.DefaultFilterFactor)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("Formats = %v, want [json]", opts.Formats)
	}
}
