package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewProvidersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			for _, name := range rt.Service.Providers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func NewPoliciesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List builtin and file-loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			for _, name := range rt.Service.Policies() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
