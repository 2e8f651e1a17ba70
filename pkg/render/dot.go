// Package render draws reduced networks as one-line diagrams.
// DOT is the source format; SVG rendering goes through Graphviz.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/gridtools/gridfold/pkg/network"
	"github.com/gridtools/gridfold/pkg/reduce"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes reactance and load values in labels.
	// When false, only bus ids and generator names are shown.
	Detailed bool
}

// ToDOT converts a reduction result to Graphviz DOT format.
// Original branches draw solid, synthesized equivalents dashed; buses that
// host a generator get a doubled outline. The resulting DOT string can be
// rendered with [RenderSVG].
func ToDOT(res *reduce.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph reduced {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	genBuses := make(map[int][]string)
	for _, g := range res.Reduced.Generators {
		genBuses[g.Bus] = append(genBuses[g.Bus], g.ID)
	}

	for _, b := range res.Reduced.Buses {
		attrs := []string{fmt.Sprintf("label=%q", busLabel(b, genBuses[b.ID], opts.Detailed))}
		if len(genBuses[b.ID]) > 0 {
			attrs = append(attrs, "shape=doublecircle")
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", b.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i, br := range res.Reduced.Branches {
		attrs := []string{}
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=\"x=%.4g\"", br.X))
		}
		if i < len(res.Tags) && res.Tags[i].Synthesized {
			attrs = append(attrs, "style=dashed", "color=grey40")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %d -- %d [%s];\n", br.From, br.To, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %d -- %d;\n", br.From, br.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func busLabel(b network.Bus, gens []string, detailed bool) string {
	label := fmt.Sprintf("%d", b.ID)
	if b.Name != "" {
		label = fmt.Sprintf("%d\n%s", b.ID, b.Name)
	}
	if !detailed {
		return label
	}
	if b.LoadMW != 0 {
		label += fmt.Sprintf("\n%.1f MW", b.LoadMW)
	}
	if len(gens) > 0 {
		label += "\n" + strings.Join(gens, ",")
	}
	return label
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
