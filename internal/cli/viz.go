package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridtools/gridfold/pkg/errors"
	"github.com/gridtools/gridfold/pkg/reduce"
	"github.com/gridtools/gridfold/pkg/render"
)

// newVizCmd creates the viz command, which renders a saved reduction
// result (the JSON artifact of the reduce command) as a one-line diagram.
func newVizCmd() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "viz [result]",
		Short: "Render a reduction result as a one-line diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var res reduce.Result
			if err := json.Unmarshal(data, &res); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidCase, err, "parse result %s", args[0])
			}
			if res.Reduced == nil {
				return errors.New(errors.ErrCodeInvalidCase, "result %s has no reduced case", args[0])
			}

			dot := render.ToDOT(&res, render.Options{Detailed: detailed})

			var out []byte
			switch format {
			case "dot":
				out = []byte(dot)
			case "svg":
				svg, err := render.RenderSVG(dot)
				if err != nil {
					return err
				}
				out = svg
			default:
				return errors.New(errors.ErrCodeInvalidCase, "unknown format %q", format)
			}

			if output == "" || output == "-" {
				fmt.Print(string(out))
				return nil
			}
			if err := os.WriteFile(output, out, 0644); err != nil {
				return err
			}
			logger.Info("wrote diagram", "path", output, "format", format)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; - writes to stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg (default), dot")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label reactance and load")

	return cmd
}
