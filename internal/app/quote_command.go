package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/quote"
	"github.com/larivera/evm-agent/internal/swap"
)

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	var tokenIn, tokenOut, amount string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute an expected swap output without committing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenIn == "" || tokenOut == "" || amount == "" {
				return clierr.New(clierr.CodeUsage, "--from, --to and --amount are required")
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			chainID := s.chainID()
			in, err := swap.ResolveToken(s.reg, chainID, tokenIn)
			if err != nil {
				return err
			}
			outToken, err := swap.ResolveToken(s.reg, chainID, tokenOut)
			if err != nil {
				return err
			}

			client, err := s.dial(ctx, chainID)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := s.engine.Quote(ctx, client, quote.Request{
				ChainID:       chainID,
				TokenIn:       in,
				TokenOut:      outToken,
				AmountDecimal: amount,
			})
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	cmd.Flags().StringVar(&tokenIn, "from", "", "Input token symbol or address")
	cmd.Flags().StringVar(&tokenOut, "to", "", "Output token symbol or address")
	cmd.Flags().StringVar(&amount, "amount", "", "Human-readable input amount (e.g. 1.5)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
