package swap

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
	"github.com/larivera/evm-agent/internal/quote"
	"github.com/larivera/evm-agent/internal/registry"
)

const (
	// DefaultSlippageBps is the output shortfall tolerance applied when
	// a request does not set its own.
	DefaultSlippageBps = 50
	// DeadlineSeconds bounds how long a built swap stays valid.
	DeadlineSeconds = 1200
)

var (
	v2RouterABI = chain.MustABI(registry.V2RouterABI)
	v3RouterABI = chain.MustABI(registry.V3RouterABI)
)

// Builder turns a swap or transfer intent into submittable call data.
type Builder struct {
	reg    *registry.Context
	engine *quote.Engine
	log    *zap.Logger
	now    func() time.Time
}

func NewBuilder(reg *registry.Context, engine *quote.Engine, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{reg: reg, engine: engine, log: log, now: time.Now}
}

type SwapRequest struct {
	ChainID       int64
	TokenIn       string
	TokenOut      string
	AmountDecimal string
	Recipient     string
	SlippageBps   int64
}

// PlannedSwap is the builder's full result; Tx alone is what crosses
// the submission boundary.
type PlannedSwap struct {
	Tx       model.PreparedTransaction
	Quote    model.SwapQuote
	MinOut   string
	Deadline int64
	Function string
}

// exactInputSingleParams mirrors the v3 router tuple argument.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// ResolveToken maps a symbol or address to a token address. The native
// placeholder and hex addresses pass through untouched; anything else
// is a registry symbol lookup.
func ResolveToken(reg *registry.Context, chainID int64, raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if registry.IsNative(clean) || common.IsHexAddress(clean) {
		return clean, nil
	}
	meta, ok := reg.Tokens().Token(clean, chainID)
	if !ok {
		return "", clierr.New(clierr.CodeUnknownToken, fmt.Sprintf("token %q is not registered for chain %d", clean, chainID))
	}
	return meta.Address, nil
}

func (b *Builder) BuildSwap(ctx context.Context, caller chain.Caller, req SwapRequest) (PlannedSwap, error) {
	cfg, ok := b.reg.Networks().ProtocolConfig(req.ChainID)
	if !ok {
		return PlannedSwap{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no protocol config registered for chain %d", req.ChainID))
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Recipient)) {
		return PlannedSwap{}, clierr.New(clierr.CodeUsage, "recipient must be a valid address")
	}
	recipient := common.HexToAddress(req.Recipient)

	tokenIn, err := ResolveToken(b.reg, req.ChainID, req.TokenIn)
	if err != nil {
		return PlannedSwap{}, err
	}
	tokenOut, err := ResolveToken(b.reg, req.ChainID, req.TokenOut)
	if err != nil {
		return PlannedSwap{}, err
	}
	nativeIn := registry.IsNative(tokenIn)
	nativeOut := registry.IsNative(tokenOut)

	// A build never reuses an earlier quote; prices move underneath us.
	quoted, err := b.engine.Quote(ctx, caller, quote.Request{
		ChainID:       req.ChainID,
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		AmountDecimal: req.AmountDecimal,
	})
	if err != nil {
		return PlannedSwap{}, err
	}
	amountIn, _ := new(big.Int).SetString(quoted.AmountIn, 10)
	amountOut, _ := new(big.Int).SetString(quoted.AmountOut, 10)

	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = DefaultSlippageBps
	}
	minOut := applySlippage(amountOut, slippage)
	deadline := b.now().Unix() + DeadlineSeconds

	pathIn := common.HexToAddress(quoted.Route[0])
	pathOut := common.HexToAddress(quoted.Route[1])

	var (
		function string
		data     []byte
	)
	switch {
	case cfg.Version == registry.ProtocolV3:
		function = "exactInputSingle"
		data, err = v3RouterABI.Pack(function, exactInputSingleParams{
			TokenIn:           pathIn,
			TokenOut:          pathOut,
			Fee:               quote.ProtocolFee(cfg.FeeBps),
			Recipient:         recipient,
			Deadline:          big.NewInt(deadline),
			AmountIn:          amountIn,
			AmountOutMinimum:  minOut,
			SqrtPriceLimitX96: big.NewInt(0),
		})
	case nativeIn:
		function = "swapExactETHForTokens"
		data, err = v2RouterABI.Pack(function, minOut, []common.Address{pathIn, pathOut}, recipient, big.NewInt(deadline))
	case nativeOut:
		function = "swapExactTokensForETH"
		data, err = v2RouterABI.Pack(function, amountIn, minOut, []common.Address{pathIn, pathOut}, recipient, big.NewInt(deadline))
	default:
		function = "swapExactTokensForTokens"
		data, err = v2RouterABI.Pack(function, amountIn, minOut, []common.Address{pathIn, pathOut}, recipient, big.NewInt(deadline))
	}
	if err != nil {
		return PlannedSwap{}, clierr.Wrap(clierr.CodeInternal, "pack swap calldata", err)
	}

	tx := model.PreparedTransaction{
		To:   common.HexToAddress(cfg.Router).Hex(),
		Data: "0x" + common.Bytes2Hex(data),
	}
	if nativeIn {
		tx.Value = amountIn.String()
	}

	b.log.Debug("swap built",
		zap.Int64("chain_id", req.ChainID),
		zap.String("function", function),
		zap.String("min_out", minOut.String()))

	return PlannedSwap{
		Tx:       tx,
		Quote:    quoted,
		MinOut:   minOut.String(),
		Deadline: deadline,
		Function: function,
	}, nil
}

type TransferRequest struct {
	ChainID       int64
	Token         string
	AmountDecimal string
	Recipient     string
}

// BuildTransfer produces a native value transfer or an ERC20 transfer
// call. Native transfers carry empty calldata and the full amount as
// value.
func (b *Builder) BuildTransfer(ctx context.Context, caller chain.Caller, req TransferRequest) (model.PreparedTransaction, error) {
	meta, ok := b.reg.Networks().Network(req.ChainID)
	if !ok {
		return model.PreparedTransaction{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("no network registered for chain %d", req.ChainID))
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Recipient)) {
		return model.PreparedTransaction{}, clierr.New(clierr.CodeUsage, "recipient must be a valid address")
	}
	recipient := common.HexToAddress(req.Recipient)

	token, err := ResolveToken(b.reg, req.ChainID, req.Token)
	if err != nil {
		return model.PreparedTransaction{}, err
	}

	if registry.IsNative(token) {
		amount, err := id.ToBaseUnits(req.AmountDecimal, meta.Native.Decimals)
		if err != nil {
			return model.PreparedTransaction{}, err
		}
		return model.PreparedTransaction{To: recipient.Hex(), Data: "0x", Value: amount.String()}, nil
	}

	tokenAddr := common.HexToAddress(token)
	decimals, err := b.tokenDecimals(ctx, caller, req.ChainID, tokenAddr)
	if err != nil {
		return model.PreparedTransaction{}, err
	}
	amount, err := id.ToBaseUnits(req.AmountDecimal, decimals)
	if err != nil {
		return model.PreparedTransaction{}, err
	}
	data, err := chain.ERC20TransferData(recipient, amount)
	if err != nil {
		return model.PreparedTransaction{}, err
	}
	return model.PreparedTransaction{To: tokenAddr.Hex(), Data: "0x" + common.Bytes2Hex(data)}, nil
}

func (b *Builder) tokenDecimals(ctx context.Context, caller chain.Caller, chainID int64, token common.Address) (int, error) {
	for _, meta := range b.reg.Tokens().NetworkTokens(chainID) {
		if strings.EqualFold(meta.Address, token.Hex()) {
			return meta.Decimals, nil
		}
	}
	decimals, err := chain.ERC20Decimals(ctx, caller, token)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeQuote, "read token decimals", err)
	}
	return decimals, nil
}

// applySlippage computes out * (10000 - bps) / 10000 in integer
// arithmetic; truncation is deliberate, never rounding up.
func applySlippage(amountOut *big.Int, slippageBps int64) *big.Int {
	factor := big.NewInt(10000 - slippageBps)
	scaled := new(big.Int).Mul(amountOut, factor)
	return scaled.Quo(scaled, big.NewInt(10000))
}
