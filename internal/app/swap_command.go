package app

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/larivera/evm-agent/internal/chain"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/execution"
	"github.com/larivera/evm-agent/internal/id"
	"github.com/larivera/evm-agent/internal/model"
	"github.com/larivera/evm-agent/internal/signer"
	"github.com/larivera/evm-agent/internal/swap"
)

type swapResult struct {
	Trade    execution.Trade           `json:"trade"`
	Tx       model.PreparedTransaction `json:"tx"`
	Quote    model.SwapQuote           `json:"quote"`
	MinOut   string                    `json:"min_out"`
	Deadline int64                     `json:"deadline"`
	Function string                    `json:"function"`
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	var tokenIn, tokenOut, amount, recipient string
	var slippageBps int64
	var execute, noSimulate bool
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Build (and optionally execute) a token swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenIn == "" || tokenOut == "" || amount == "" {
				return clierr.New(clierr.CodeUsage, "--from, --to and --amount are required")
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			chainID := s.chainID()
			client, err := s.dial(ctx, chainID)
			if err != nil {
				return err
			}
			defer client.Close()

			if recipient == "" && execute {
				txSigner, err := signer.NewLocalSignerFromEnv()
				if err != nil {
					return clierr.Wrap(clierr.CodeSigner, "load signing key", err)
				}
				recipient = txSigner.Address().Hex()
			}
			if recipient == "" {
				return clierr.New(clierr.CodeUsage, "--recipient is required unless executing with a configured signer")
			}

			planned, err := s.builder.BuildSwap(ctx, client, swap.SwapRequest{
				ChainID:       chainID,
				TokenIn:       tokenIn,
				TokenOut:      tokenOut,
				AmountDecimal: amount,
				Recipient:     recipient,
				SlippageBps:   slippageBps,
			})
			if err != nil {
				return err
			}

			trade := execution.Trade{
				TradeID:   execution.NewTradeID(),
				Kind:      "swap",
				Status:    execution.TradeStatusPlanned,
				ChainID:   chainID,
				Wallet:    recipient,
				TokenIn:   strings.ToUpper(strings.TrimSpace(tokenIn)),
				TokenOut:  strings.ToUpper(strings.TrimSpace(tokenOut)),
				AmountIn:  planned.Quote.AmountIn,
				AmountOut: planned.Quote.AmountOut,
				ValueUSD:  s.tradeValueUSD(ctx, chainID, tokenOut, planned.Quote.AmountOut),
			}
			trade.Touch(s.runner.now())

			result := swapResult{
				Trade:    trade,
				Tx:       planned.Tx,
				Quote:    planned.Quote,
				MinOut:   planned.MinOut,
				Deadline: planned.Deadline,
				Function: planned.Function,
			}
			if !execute {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
			}

			finished, err := s.executeTrade(ctx, client, trade, planned.Tx, noSimulate)
			if err != nil {
				return err
			}
			result.Trade = finished
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), result, nil)
		},
	}
	cmd.Flags().StringVar(&tokenIn, "from", "", "Input token symbol or address")
	cmd.Flags().StringVar(&tokenOut, "to", "", "Output token symbol or address")
	cmd.Flags().StringVar(&amount, "amount", "", "Human-readable input amount")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient wallet (defaults to signer address when executing)")
	cmd.Flags().Int64Var(&slippageBps, "slippage-bps", 0, "Slippage tolerance in basis points (default 50)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Sign and broadcast the swap")
	cmd.Flags().BoolVar(&noSimulate, "no-simulate", false, "Skip the eth_call dry run before broadcasting")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newTransferCommand() *cobra.Command {
	var token, amount, recipient string
	var execute, noSimulate bool
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Build (and optionally execute) a native or ERC20 transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" || amount == "" || recipient == "" {
				return clierr.New(clierr.CodeUsage, "--token, --amount and --to are required")
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			chainID := s.chainID()
			client, err := s.dial(ctx, chainID)
			if err != nil {
				return err
			}
			defer client.Close()

			prepared, err := s.builder.BuildTransfer(ctx, client, swap.TransferRequest{
				ChainID:       chainID,
				Token:         token,
				AmountDecimal: amount,
				Recipient:     recipient,
			})
			if err != nil {
				return err
			}

			trade := execution.Trade{
				TradeID:  execution.NewTradeID(),
				Kind:     "transfer",
				Status:   execution.TradeStatusPlanned,
				ChainID:  chainID,
				Wallet:   recipient,
				TokenIn:  strings.ToUpper(strings.TrimSpace(token)),
				AmountIn: amount,
			}
			trade.Touch(s.runner.now())

			if !execute {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
					"trade": trade,
					"tx":    prepared,
				}, nil)
			}
			finished, err := s.executeTrade(ctx, client, trade, prepared, noSimulate)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"trade": finished,
				"tx":    prepared,
			}, nil)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token symbol, address, or the native placeholder")
	cmd.Flags().StringVar(&amount, "amount", "", "Human-readable amount")
	cmd.Flags().StringVar(&recipient, "to", "", "Recipient wallet address")
	cmd.Flags().BoolVar(&execute, "execute", false, "Sign and broadcast the transfer")
	cmd.Flags().BoolVar(&noSimulate, "no-simulate", false, "Skip the eth_call dry run before broadcasting")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// executeTrade runs the full submission lifecycle and records every
// status transition in the trade store. Failures after broadcast are
// persisted before being returned; a reverted swap is still history.
func (s *runtimeState) executeTrade(ctx context.Context, backend chain.Backend, trade execution.Trade, prepared model.PreparedTransaction, noSimulate bool) (execution.Trade, error) {
	store, err := s.openStore()
	if err != nil {
		return trade, err
	}
	if err := store.Save(trade); err != nil {
		return trade, clierr.Wrap(clierr.CodeInternal, "record trade", err)
	}

	txSigner, err := signer.NewLocalSignerFromEnv()
	if err != nil {
		return trade, clierr.Wrap(clierr.CodeSigner, "load signing key", err)
	}

	opts := execution.DefaultOptions()
	opts.Simulate = !noSimulate
	executor := execution.NewExecutor(s.log)

	txHash, err := executor.Submit(ctx, backend, txSigner, prepared, opts)
	if err != nil {
		trade.Status = execution.TradeStatusFailed
		trade.Error = err.Error()
		trade.Touch(s.runner.now())
		_ = store.Save(trade)
		return trade, err
	}
	trade.Status = execution.TradeStatusSubmitted
	trade.TxHash = txHash.Hex()
	trade.Touch(s.runner.now())
	if err := store.Save(trade); err != nil {
		return trade, clierr.Wrap(clierr.CodeInternal, "record trade", err)
	}
	s.log.Info("trade submitted", zap.String("trade_id", trade.TradeID), zap.String("tx_hash", trade.TxHash))

	if _, err := executor.WaitConfirmed(ctx, backend, txHash, opts); err != nil {
		trade.Status = execution.TradeStatusFailed
		trade.Error = err.Error()
		trade.Touch(s.runner.now())
		_ = store.Save(trade)
		return trade, err
	}
	trade.Status = execution.TradeStatusConfirmed
	trade.Error = ""
	trade.Touch(s.runner.now())
	if err := store.Save(trade); err != nil {
		return trade, clierr.Wrap(clierr.CodeInternal, "record trade", err)
	}
	return trade, nil
}

// tradeValueUSD estimates the USD size of a swap from the quoted output
// and the output token's price id. Best effort only; bookkeeping, not
// accounting.
func (s *runtimeState) tradeValueUSD(ctx context.Context, chainID int64, tokenOut, amountOut string) float64 {
	meta, ok := s.reg.Tokens().Token(tokenOut, chainID)
	if !ok || meta.PriceID == "" {
		return 0
	}
	fetched, err := s.priceAPI.USDPrices(ctx, []string{meta.PriceID})
	if err != nil {
		return 0
	}
	price, ok := fetched[meta.PriceID]
	if !ok {
		return 0
	}
	baseUnits, err := id.ParseBaseUnits(amountOut)
	if err != nil {
		return 0
	}
	amount, err := strconv.ParseFloat(id.FormatUnits(baseUnits, meta.Decimals), 64)
	if err != nil {
		return 0
	}
	return amount * price
}
