package render

import (
	"strings"
	"testing"

	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/reduce"
)

func sampleResult() *reduce.Result {
	return &reduce.Result{
		Reduced: &network.Network{
			Buses: []network.Bus{
				{ID: 1, Name: "north", LoadMW: 40},
				{ID: 2},
				{ID: 3},
			},
			Branches: []network.Branch{
				{From: 1, To: 2, Circuit: 1, X: 0.1, InService: true},
				{From: 1, To: 3, Circuit: 99, X: 0.3, InService: true},
			},
			Generators: []network.Generator{{ID: "g1", Bus: 2, PMW: 50}},
		},
		Tags: []reduce.CircuitTag{
			{Kind: reduce.TagOriginal, Circuit: 1},
			{Kind: reduce.TagEquivalent, Circuit: 99, Synthesized: true},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleResult(), Options{})

	if !strings.HasPrefix(dot, "graph reduced {") {
		t.Errorf("DOT should open an undirected graph, got %q", dot[:30])
	}
	for _, want := range []string{"1 --", "-- 2", "-- 3"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	// The synthesized equivalent draws dashed; the original does not.
	if !strings.Contains(dot, "style=dashed") {
		t.Errorf("synthesized edge should be dashed:\n%s", dot)
	}
	if strings.Count(dot, "style=dashed") != 1 {
		t.Errorf("exactly one dashed edge expected:\n%s", dot)
	}
	// Generator bus gets the doubled outline.
	if !strings.Contains(dot, "shape=doublecircle") {
		t.Errorf("generator bus should use doublecircle:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleResult(), Options{Detailed: true})

	if !strings.Contains(dot, "x=0.1") {
		t.Errorf("detailed DOT should label reactance:\n%s", dot)
	}
	if !strings.Contains(dot, "40.0 MW") {
		t.Errorf("detailed DOT should label load:\n%s", dot)
	}
	if !strings.Contains(dot, "g1") {
		t.Errorf("detailed DOT should name generators:\n%s", dot)
	}
}

func TestToDOTBusName(t *testing.T) {
	dot := ToDOT(sampleResult(), Options{})
	if !strings.Contains(dot, "north") {
		t.Errorf("bus name should appear in label:\n%s", dot)
	}
}
