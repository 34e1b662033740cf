package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/larivera/evm-agent/internal/errors"
)

func (s *runtimeState) newPortfolioCommand() *cobra.Command {
	var wallet string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Read a wallet's balances and total value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wallet == "" {
				return clierr.New(clierr.CodeUsage, "--wallet is required")
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			client, err := s.dial(ctx, s.chainID())
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := s.portfolioAggregator().Portfolio(ctx, client, s.chainID(), wallet)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet address")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}
