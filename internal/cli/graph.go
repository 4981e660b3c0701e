package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/graphdef"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/presentation"
)

type GraphOptions struct {
	*RootOptions
	Graph  string
	Format string
}

// NewGraphCommand validates a graph without running it.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Compile a graph and print it as Mermaid or as its execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := graphdef.Load(opts.Graph)
			if err != nil {
				return WrapExitError(app.ExitFatal, "failed to load graph", err)
			}
			plan, err := orchestrator.Compile(def)
			if err != nil {
				return WrapExitError(app.ExitFatal, "invalid graph", err)
			}

			out := cmd.OutOrStdout()
			switch opts.Format {
			case "mermaid":
				fmt.Fprint(out, presentation.Mermaid(plan))
			case "order":
				for i, id := range plan.Order() {
					fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, id, plan.Role(id))
				}
				fmt.Fprintf(out, "sinks\t%s\n", strings.Join(plan.Sinks(), ","))
			default:
				return NewExitError(app.ExitFatal, fmt.Sprintf("invalid format %q: must be mermaid or order", opts.Format))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "graph definition file (required)")
	cmd.Flags().StringVar(&opts.Format, "format", "mermaid", "output format (mermaid|order)")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}
