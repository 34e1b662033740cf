package app

import (
	"strings"

	"github.com/spf13/cobra"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/registry"
	"github.com/larivera/evm-agent/internal/swap"
)

func (s *runtimeState) newTokenCommand() *cobra.Command {
	root := &cobra.Command{Use: "token", Short: "Token metadata and security data"}

	var reportToken string
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate contract, holder and dex data for a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportToken == "" {
				return clierr.New(clierr.CodeUsage, "--token is required")
			}
			ctx, cancel := s.commandContext()
			defer cancel()

			chainID := s.chainID()
			address, err := swap.ResolveToken(s.reg, chainID, reportToken)
			if err != nil {
				return err
			}
			if registry.IsNative(address) {
				return clierr.New(clierr.CodeUsage, "the native currency has no token contract to report on")
			}
			report, err := s.securityService().Report(ctx, chainID, address)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), report, nil)
		},
	}
	reportCmd.Flags().StringVar(&reportToken, "token", "", "Token symbol or contract address")
	_ = reportCmd.MarkFlagRequired("token")
	root.AddCommand(reportCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tokens registered for the active chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.reg.Tokens().NetworkTokens(s.chainID()), nil)
		},
	}
	root.AddCommand(listCmd)

	var addSymbol, addAddress, addName, addFeed, addPriceID string
	var addDecimals int
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a token for the active chain (process-local)",
		RunE: func(cmd *cobra.Command, args []string) error {
			accepted := s.reg.Tokens().Register(registry.TokenMetadata{
				ChainID:   s.chainID(),
				Symbol:    addSymbol,
				Address:   addAddress,
				Decimals:  addDecimals,
				Name:      addName,
				PriceFeed: addFeed,
				PriceID:   addPriceID,
			})
			if !accepted {
				return clierr.New(clierr.CodeUsage, "token needs a symbol and an address")
			}
			meta, _ := s.reg.Tokens().Token(addSymbol, s.chainID())
			warnings := []string{"registrations are in-memory and last for this process only; add the token to the config file to persist it"}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), meta, warnings)
		},
	}
	addCmd.Flags().StringVar(&addSymbol, "symbol", "", "Token symbol")
	addCmd.Flags().StringVar(&addAddress, "address", "", "Token contract address")
	addCmd.Flags().IntVar(&addDecimals, "decimals", 18, "Token decimals")
	addCmd.Flags().StringVar(&addName, "name", "", "Token display name")
	addCmd.Flags().StringVar(&addFeed, "price-feed", "", "Chainlink-style aggregator address")
	addCmd.Flags().StringVar(&addPriceID, "price-id", "", "Price API identifier")
	_ = addCmd.MarkFlagRequired("symbol")
	_ = addCmd.MarkFlagRequired("address")
	root.AddCommand(addCmd)

	var removeSymbol string
	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a token registration from the active chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.reg.Tokens().Remove(removeSymbol, s.chainID()) {
				return clierr.New(clierr.CodeUnknownToken, "token "+strings.ToUpper(removeSymbol)+" is not registered")
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"symbol":  strings.ToUpper(removeSymbol),
				"removed": true,
			}, nil)
		},
	}
	removeCmd.Flags().StringVar(&removeSymbol, "symbol", "", "Token symbol")
	_ = removeCmd.MarkFlagRequired("symbol")
	root.AddCommand(removeCmd)

	return root
}

func (s *runtimeState) newTrustCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Score a token from the local trade history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return clierr.New(clierr.CodeUsage, "--token is required")
			}
			scorer, err := s.trustScorer()
			if err != nil {
				return err
			}
			score, err := scorer.Score(s.chainID(), token)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), score, nil)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token symbol")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (s *runtimeState) newTradesCommand() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recorded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := s.openStore()
			if err != nil {
				return err
			}
			trades, err := store.List(status, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list trades", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), trades, nil)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (planned, submitted, confirmed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum trades to return")
	return cmd
}
