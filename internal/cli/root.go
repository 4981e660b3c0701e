// Package cli implements the orchestrate command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/app"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/config"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/logging"
	"github.com/awmpietro/golang-llm-orchestration-case/internal/provider"
)

// RootOptions holds the global flags. Unset flags fall back to the
// environment (see config.Load).
type RootOptions struct {
	LogLevel   string
	AuditLog   string
	PolicyFile string
	Options    []string
}

var validLevels = []string{"debug", "info", "warn", "error"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Run LLM role chains, parallel batches and DAGs",
		Long: `orchestrate drives roles through a provider as a chain, a parallel
batch or a DAG, checks the outputs against policies and prints a JSON report.

Exit status is 0 on success, 1 on a fatal error and 2 when --strict is set and
a policy reported violations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogLevel != "" && !isValidLevel(opts.LogLevel) {
				return NewExitError(app.ExitFatal, fmt.Sprintf("invalid log level %q: must be one of %v", opts.LogLevel, validLevels))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.AuditLog, "audit-log", "", "audit log path")
	cmd.PersistentFlags().StringVar(&opts.PolicyFile, "policy-file", "", "YAML file with expression policies")
	cmd.PersistentFlags().StringArrayVar(&opts.Options, "option", nil, "provider/policy option k=v (repeatable)")

	cmd.AddCommand(NewChainCommand(opts))
	cmd.AddCommand(NewParallelCommand(opts))
	cmd.AddCommand(NewDAGCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewProvidersCommand(opts))
	cmd.AddCommand(NewPoliciesCommand(opts))

	return cmd
}

func isValidLevel(level string) bool {
	for _, l := range validLevels {
		if strings.EqualFold(l, level) {
			return true
		}
	}
	return false
}

// bootstrap wires a runtime from the environment with the global flags
// applied on top. Logs go to the command's stderr.
func (o *RootOptions) bootstrap(cmd *cobra.Command) (*app.Runtime, error) {
	cfg := config.Load()
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.AuditLog != "" {
		cfg.AuditLogPath = o.AuditLog
	}
	if o.PolicyFile != "" {
		cfg.PolicyFile = o.PolicyFile
	}

	logger := logging.NewTo(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))
	rt, err := app.Bootstrap(cfg, logger)
	if err != nil {
		return nil, WrapExitError(app.ExitFatal, "bootstrap failed", err)
	}
	return rt, nil
}

func (o *RootOptions) providerOptions() (provider.Options, error) {
	opts, err := provider.ParseOptions(o.Options)
	if err != nil {
		return nil, WrapExitError(app.ExitFatal, "invalid --option", err)
	}
	return opts, nil
}
