package quote

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/larivera/evm-agent/internal/chain"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/id"
	"github.com/larivera/evm-agent/internal/model"
	"github.com/larivera/evm-agent/internal/registry"
)

var (
	v2RouterABI = chain.MustABI(registry.V2RouterABI)
	v3QuoterABI = chain.MustABI(registry.V3QuoterV2ABI)
)

// Engine computes expected swap outputs without committing anything
// on-chain. Every quote is freshly computed; AMM prices are
// time-varying, so results are never cached or reused.
type Engine struct {
	reg *registry.Context
	log *zap.Logger
	now func() time.Time
}

func NewEngine(reg *registry.Context, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{reg: reg, log: log, now: time.Now}
}

type Request struct {
	ChainID       int64
	TokenIn       string
	TokenOut      string
	AmountDecimal string
}

// quoteExactInputSingleParams mirrors the QuoterV2 tuple argument.
type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

func (e *Engine) Quote(ctx context.Context, caller chain.Caller, req Request) (model.SwapQuote, error) {
	meta, ok := e.reg.Networks().Network(req.ChainID)
	if !ok {
		return model.SwapQuote{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no network registered for chain %d", req.ChainID))
	}
	cfg, ok := e.reg.Networks().ProtocolConfig(req.ChainID)
	if !ok {
		return model.SwapQuote{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no protocol config registered for chain %d", req.ChainID))
	}

	tokenIn, decimalsIn, err := e.resolveInput(ctx, caller, meta, req.TokenIn)
	if err != nil {
		return model.SwapQuote{}, err
	}
	tokenOut := common.HexToAddress(req.TokenOut)
	if registry.IsNative(req.TokenOut) {
		tokenOut = common.HexToAddress(meta.Native.Wrapped)
	}

	amountIn, err := id.ToBaseUnits(req.AmountDecimal, decimalsIn)
	if err != nil {
		return model.SwapQuote{}, err
	}
	if amountIn.Sign() <= 0 {
		return model.SwapQuote{}, clierr.New(clierr.CodeUsage, "swap amount must be positive")
	}

	var amountOut *big.Int
	switch cfg.Version {
	case registry.ProtocolV3:
		amountOut, err = e.quoteV3(ctx, caller, cfg, tokenIn, tokenOut, amountIn)
	default:
		amountOut, err = e.quoteV2(ctx, caller, cfg, tokenIn, tokenOut, amountIn)
	}
	if err != nil {
		return model.SwapQuote{}, err
	}

	e.log.Debug("quote computed",
		zap.Int64("chain_id", req.ChainID),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()))

	return model.SwapQuote{
		ChainID:        req.ChainID,
		AmountIn:       amountIn.String(),
		AmountOut:      amountOut.String(),
		PriceImpactPct: priceImpactPct(amountIn, amountOut),
		Route:          []string{tokenIn.Hex(), tokenOut.Hex()},
		FetchedAt:      e.now().UTC().Format(time.RFC3339),
	}, nil
}

func (e *Engine) resolveInput(ctx context.Context, caller chain.Caller, meta registry.NetworkMetadata, raw string) (common.Address, int, error) {
	if registry.IsNative(raw) {
		return common.HexToAddress(meta.Native.Wrapped), meta.Native.Decimals, nil
	}
	if !common.IsHexAddress(strings.TrimSpace(raw)) {
		return common.Address{}, 0, clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("invalid token address %q", raw))
	}
	addr := common.HexToAddress(raw)
	decimals, err := chain.ERC20Decimals(ctx, caller, addr)
	if err != nil {
		return common.Address{}, 0, clierr.Wrap(clierr.CodeQuote, "read token decimals", err)
	}
	return addr, decimals, nil
}

func (e *Engine) quoteV2(ctx context.Context, caller chain.Caller, cfg registry.ProtocolConfig, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	amounts, err := RouterAmountsOut(ctx, caller, common.HexToAddress(cfg.Router), amountIn, []common.Address{tokenIn, tokenOut})
	if err != nil {
		return nil, err
	}
	if len(amounts) < 2 {
		return nil, clierr.New(clierr.CodeQuote, "router returned malformed amounts")
	}
	return amounts[1], nil
}

// RouterAmountsOut queries a v2 router's getAmountsOut along a path.
// Shared with the portfolio pricing fallback.
func RouterAmountsOut(ctx context.Context, caller chain.Caller, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := chain.CallView(ctx, caller, v2RouterABI, router, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeQuote, "router getAmountsOut", err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeQuote, "router returned malformed amounts")
	}
	return amounts, nil
}

func (e *Engine) quoteV3(ctx context.Context, caller chain.Caller, cfg registry.ProtocolConfig, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	if cfg.Quoter == "" {
		return nil, clierr.New(clierr.CodeConfig, "v3 protocol config has no quoter address")
	}
	quoter := common.HexToAddress(cfg.Quoter)
	params := quoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               ProtocolFee(cfg.FeeBps),
		SqrtPriceLimitX96: big.NewInt(0),
	}
	out, err := chain.CallView(ctx, caller, v3QuoterABI, quoter, "quoteExactInputSingle", params)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeQuote, "quoter quoteExactInputSingle", err)
	}
	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeQuote, "quoter returned malformed output")
	}
	return amountOut, nil
}

// ProtocolFee converts a basis-point fee into the pool fee units the
// v3 contracts expect (hundredths of a basis point).
func ProtocolFee(feeBps int64) *big.Int {
	return big.NewInt(feeBps * 100)
}

// priceImpactPct reproduces the documented |in-out|/in formula. It is a
// rough proxy, not impact against a reference market price.
// TODO: compare amountOut against an off-chain reference price before
// using this figure for trade gating.
func priceImpactPct(amountIn, amountOut *big.Int) float64 {
	if amountIn.Sign() == 0 {
		return 0
	}
	diff := new(big.Float).SetInt(new(big.Int).Abs(new(big.Int).Sub(amountIn, amountOut)))
	in := new(big.Float).SetInt(amountIn)
	pct, _ := new(big.Float).Quo(diff, in).Float64()
	return pct * 100
}
