package app

import (
	"fmt"

	"github.com/spf13/cobra"

	clierr "github.com/larivera/evm-agent/internal/errors"
)

func (s *runtimeState) newNetworksCommand() *cobra.Command {
	root := &cobra.Command{Use: "networks", Short: "Configured chains"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.reg.Networks().Networks(), nil)
		},
	}
	root.AddCommand(listCmd)

	root.AddCommand(s.newNetworkToggleCommand("enable", true))
	root.AddCommand(s.newNetworkToggleCommand("disable", false))
	return root
}

func (s *runtimeState) newNetworkToggleCommand(use string, enabled bool) *cobra.Command {
	var chainID int64
	cmd := &cobra.Command{
		Use:   use,
		Short: use + " a network for this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if chainID <= 0 {
				return clierr.New(clierr.CodeUsage, "--id is required")
			}
			if !s.reg.Networks().SetEnabled(chainID, enabled) {
				return clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %d is not configured", chainID))
			}
			meta, _ := s.reg.Networks().Network(chainID)
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), meta, nil)
		},
	}
	cmd.Flags().Int64Var(&chainID, "id", 0, "Chain id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
