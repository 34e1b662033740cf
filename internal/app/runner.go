package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/larivera/evm-agent/internal/chain"
	"github.com/larivera/evm-agent/internal/config"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/execution"
	"github.com/larivera/evm-agent/internal/httpx"
	"github.com/larivera/evm-agent/internal/model"
	"github.com/larivera/evm-agent/internal/out"
	"github.com/larivera/evm-agent/internal/policy"
	"github.com/larivera/evm-agent/internal/portfolio"
	"github.com/larivera/evm-agent/internal/prices"
	"github.com/larivera/evm-agent/internal/quote"
	"github.com/larivera/evm-agent/internal/registry"
	"github.com/larivera/evm-agent/internal/schema"
	"github.com/larivera/evm-agent/internal/security"
	"github.com/larivera/evm-agent/internal/swap"
	"github.com/larivera/evm-agent/internal/trust"
	"github.com/larivera/evm-agent/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	reg         *registry.Context
	log         *zap.Logger
	http        *httpx.Client
	engine      *quote.Engine
	builder     *swap.Builder
	priceAPI    *prices.Client
	store       *execution.Store
	root        *cobra.Command
	lastCommand string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := normalizeRunError(root.Execute())
	if state.store != nil {
		_ = state.store.Close()
	}
	if state.log != nil {
		_ = state.log.Sync()
	}
	if err == nil {
		return 0
	}
	state.renderError(err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Agent-first EVM portfolio and swap CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())
			if err := policy.CheckCommandAllowed(settings.EnableCommands, s.lastCommand); err != nil {
				return err
			}

			reg, err := settings.BuildRegistry()
			if err != nil {
				return clierr.Wrap(clierr.CodeConfig, "build registries", err)
			}
			s.reg = reg
			s.log = newLogger(s.runner.stderr, settings.Verbose)
			s.http = httpx.New(settings.Timeout, settings.Retries)
			s.engine = quote.NewEngine(reg, s.log)
			s.builder = swap.NewBuilder(reg, s.engine, s.log)
			s.priceAPI = prices.NewClient(s.http, settings.PriceAPIBaseURL, settings.PriceAPIKey, s.log)
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().Int64Var(&s.flags.Chain, "chain", 0, "Chain id (default from config)")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Remote request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per HTTP request")
	cmd.PersistentFlags().BoolVarP(&s.flags.Verbose, "verbose", "v", false, "Log progress to stderr")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated)")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newPortfolioCommand())
	cmd.AddCommand(s.newQuoteCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newTransferCommand())
	cmd.AddCommand(s.newTokenCommand())
	cmd.AddCommand(s.newTrustCommand())
	cmd.AddCommand(s.newTradesCommand())
	cmd.AddCommand(s.newNetworksCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())

	s.root = cmd
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Describe(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(writerSyncer{w}), level)
	return zap.New(core)
}

type writerSyncer struct{ io.Writer }

func (writerSyncer) Sync() error { return nil }

// chainID resolves the effective chain for a command: the --chain flag
// if set, otherwise the configured default.
func (s *runtimeState) chainID() int64 {
	return s.settings.DefaultChainID
}

func (s *runtimeState) dial(ctx context.Context, chainID int64) (*chain.Client, error) {
	meta, ok := s.reg.Networks().Network(chainID)
	if !ok {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %d is not configured", chainID))
	}
	if !meta.Enabled {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %d is disabled", chainID))
	}
	return chain.Dial(ctx, meta, s.log)
}

func (s *runtimeState) openStore() (*execution.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	store, err := execution.OpenStore(s.settings.TradeStorePath, s.settings.TradeLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open trade store", err)
	}
	s.store = store
	return store, nil
}

func (s *runtimeState) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.settings.Timeout)
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings.OutputMode)
}

func (s *runtimeState) renderError(err error) {
	commandPath := s.lastCommand
	if commandPath == "" {
		commandPath = version.CLIName
	}
	code := clierr.ExitCode(err)
	typ := "internal_error"
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		switch cErr.Code {
		case clierr.CodeUsage:
			typ = "usage_error"
		case clierr.CodeAuth:
			typ = "auth_error"
		case clierr.CodeRateLimited:
			typ = "rate_limited"
		case clierr.CodeUnavailable:
			typ = "unavailable"
		case clierr.CodeConfig:
			typ = "config_error"
		case clierr.CodeUnknownToken:
			typ = "unknown_token"
		case clierr.CodeQuote:
			typ = "quote_unavailable"
		case clierr.CodeTxFailed:
			typ = "transaction_failed"
		case clierr.CodeTimeout:
			typ = "timeout"
		case clierr.CodeSigner:
			typ = "signer_error"
		case clierr.CodeBlocked:
			typ = "command_blocked"
		}
	}

	mode := s.settings.OutputMode
	if mode == "" {
		mode = "json"
	}
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	_ = out.Render(s.runner.stderr, env, mode)
}

func (s *runtimeState) securityService() *security.Service {
	return security.NewService(s.http, security.Endpoints{
		ExplorerURL: s.settings.ExplorerAPIURL,
		HoldersURL:  s.settings.HoldersAPIURL,
		DexURL:      s.settings.DexAPIURL,
		ExplorerKey: s.settings.ExplorerAPIKey,
	}, s.log)
}

func (s *runtimeState) trustScorer() (*trust.Scorer, error) {
	store, err := s.openStore()
	if err != nil {
		return nil, err
	}
	return trust.NewScorer(store, s.log), nil
}

func (s *runtimeState) portfolioAggregator() *portfolio.Aggregator {
	return portfolio.NewAggregator(s.reg, s.priceAPI, s.log)
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
