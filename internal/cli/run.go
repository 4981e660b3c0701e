package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/graphdef"
)

// RunOptions holds the flags shared by chain, parallel and dag.
type RunOptions struct {
	*RootOptions
	Roles    []string
	Payload  string
	Provider string
	Policies []string
	Strict   bool
	Output   string
	Graph    string
}

func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Run roles in sequence, each output feeding the next role",
		Example: `  orchestrate chain --roles planner,writer --payload '{"topic":"go"}'
  orchestrate chain --roles extract,summarize --payload @doc.json --policies length,audit --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, opts, app.ModeChain)
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.Roles, "roles", nil, "comma-separated roles (required)")
	_ = cmd.MarkFlagRequired("roles")
	return cmd
}

func NewParallelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "parallel",
		Short: "Run roles concurrently against the same payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, opts, app.ModeParallel)
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.Roles, "roles", nil, "comma-separated roles (required)")
	_ = cmd.MarkFlagRequired("roles")
	return cmd
}

func NewDAGCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Run a graph of roles in topological order",
		Long: `Run a graph of roles in topological order. The graph file may be JSON,
YAML or DOT, chosen by extension. The report's outputs are the sink nodes'
results.`,
		Example: `  orchestrate dag --graph review.yaml --payload @draft.json --policies no_secrets`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, opts, app.ModeDAG)
		},
	}
	addRunFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "graph definition file (required)")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "JSON payload, or @path to read it from a file")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "provider name (default from ORCH_DEFAULT_PROVIDER)")
	cmd.Flags().StringSliceVar(&opts.Policies, "policies", nil, "comma-separated policies to enforce")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 2 when a policy reports violations")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the report to this file instead of stdout")
}

func runMode(cmd *cobra.Command, opts *RunOptions, mode app.Mode) error {
	payload, err := readPayload(opts.Payload)
	if err != nil {
		return WrapExitError(app.ExitFatal, "invalid --payload", err)
	}
	options, err := opts.providerOptions()
	if err != nil {
		return err
	}
	runOpts := app.RunOptions{
		Provider: opts.Provider,
		Policies: opts.Policies,
		Strict:   opts.Strict,
		Options:  options,
	}

	rt, err := opts.bootstrap(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var rep *app.Report
	switch mode {
	case app.ModeChain:
		rep, err = rt.Service.RunChain(ctx, app.ChainRequest{Roles: opts.Roles, Payload: payload, RunOptions: runOpts})
	case app.ModeParallel:
		rep, err = rt.Service.RunParallel(ctx, app.ParallelRequest{Roles: opts.Roles, Payload: payload, RunOptions: runOpts})
	case app.ModeDAG:
		def, loadErr := graphdef.Load(opts.Graph)
		if loadErr != nil {
			return WrapExitError(app.ExitFatal, "failed to load graph", loadErr)
		}
		rep, err = rt.Service.RunDAG(ctx, app.DAGRequest{Graph: def, Payload: payload, RunOptions: runOpts})
	}

	if rep != nil {
		if writeErr := writeReport(cmd.OutOrStdout(), opts.Output, rep); writeErr != nil {
			return WrapExitError(app.ExitFatal, "failed to write report", writeErr)
		}
	}

	switch app.ExitCode(rep, err) {
	case app.ExitFatal:
		return WrapExitError(app.ExitFatal, fmt.Sprintf("%s run failed", mode), err)
	case app.ExitViolation:
		return NewExitError(app.ExitViolation, fmt.Sprintf("%d policy violation(s)", len(rep.Policy.Violations)))
	}
	return nil
}

// readPayload accepts inline JSON, @path, or plain text. Text that is not
// valid JSON is passed through as a string.
func readPayload(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data), nil
	}
	return v, nil
}

func writeReport(stdout io.Writer, path string, rep *app.Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "" {
		_, err = stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
