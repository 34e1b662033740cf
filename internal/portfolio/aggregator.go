package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/larivera/evm-agent/internal/chain"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/id"
	"github.com/larivera/evm-agent/internal/model"
	"github.com/larivera/evm-agent/internal/prices"
	"github.com/larivera/evm-agent/internal/quote"
	"github.com/larivera/evm-agent/internal/registry"
)

// PriceAPI is the HTTP fallback for tokens with no on-chain source.
type PriceAPI interface {
	USDPrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// Aggregator reads a wallet's balances and values them. Price lookup
// failures degrade to a zero price for that token; a partial portfolio
// beats no portfolio. Quote-path pricing never uses this leniency.
type Aggregator struct {
	reg *registry.Context
	api PriceAPI
	log *zap.Logger
	now func() time.Time
}

func NewAggregator(reg *registry.Context, api PriceAPI, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{reg: reg, api: api, log: log, now: time.Now}
}

var _ PriceAPI = (*prices.Client)(nil)

func (a *Aggregator) Portfolio(ctx context.Context, caller chain.Caller, chainID int64, wallet string) (model.Portfolio, error) {
	if !common.IsHexAddress(strings.TrimSpace(wallet)) {
		return model.Portfolio{}, clierr.New(clierr.CodeUsage, "invalid wallet address")
	}
	network, ok := a.reg.Networks().Network(chainID)
	if !ok {
		return model.Portfolio{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("chain %d is not configured", chainID))
	}
	owner := common.HexToAddress(wallet)

	nativeBalance, err := caller.BalanceAt(ctx, owner, nil)
	if err != nil {
		return model.Portfolio{}, clierr.Wrap(clierr.CodeUnavailable, "read native balance", err)
	}

	tokens := a.reg.Tokens().NetworkTokens(chainID)
	entries := make([]model.TokenBalance, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token registry.TokenMetadata) {
			defer wg.Done()
			entries[i] = a.tokenEntry(ctx, caller, network, token, owner)
		}(i, token)
	}
	wg.Wait()

	nativePrice := a.nativePrice(ctx, caller, network, chainID)
	native := model.TokenBalance{
		Symbol:   network.Native.Symbol,
		Address:  registry.NativeAddress,
		Decimals: network.Native.Decimals,
		Balance:  id.FormatUnits(nativeBalance, network.Native.Decimals),
		PriceUSD: formatPrice(nativePrice),
	}
	native.ValueUSD = formatValue(entryValue(native.Balance, nativePrice))

	total := entryValue(native.Balance, nativePrice)
	out := make([]model.TokenBalance, 0, len(entries)+1)
	out = append(out, native)
	for _, entry := range entries {
		price, _ := strconv.ParseFloat(entry.PriceUSD, 64)
		total += entryValue(entry.Balance, price)
		out = append(out, entry)
	}

	return model.Portfolio{
		Wallet:        owner.Hex(),
		ChainID:       chainID,
		Tokens:        out,
		TotalValueUSD: formatValue(total),
		FetchedAt:     a.now().UTC().Format(time.RFC3339),
	}, nil
}

func (a *Aggregator) tokenEntry(ctx context.Context, caller chain.Caller, network registry.NetworkMetadata, token registry.TokenMetadata, owner common.Address) model.TokenBalance {
	entry := model.TokenBalance{
		Symbol:   token.Symbol,
		Address:  token.Address,
		Decimals: token.Decimals,
		Balance:  "0",
		PriceUSD: "0",
		ValueUSD: "0.00",
	}
	balance, err := chain.ERC20BalanceOf(ctx, caller, common.HexToAddress(token.Address), owner)
	if err != nil {
		a.log.Warn("balance read failed",
			zap.String("token", token.Symbol),
			zap.Int64("chain_id", token.ChainID),
			zap.Error(err))
		return entry
	}
	entry.Balance = id.FormatUnits(balance, token.Decimals)

	price := a.resolvePrice(ctx, caller, network, token)
	entry.PriceUSD = formatPrice(price)
	entry.ValueUSD = formatValue(entryValue(entry.Balance, price))
	return entry
}

// resolvePrice tries the on-chain oracle first, then a v2 router quote
// against a registered stablecoin, then the HTTP price API. Every
// failure falls through; exhausting all sources yields zero.
func (a *Aggregator) resolvePrice(ctx context.Context, caller chain.Caller, network registry.NetworkMetadata, token registry.TokenMetadata) float64 {
	if token.PriceFeed != "" {
		if price, err := a.oraclePrice(ctx, caller, token.PriceFeed); err == nil {
			return price
		} else {
			a.log.Debug("oracle price failed", zap.String("token", token.Symbol), zap.Error(err))
		}
	}
	if price, err := a.routerPrice(ctx, caller, network, token); err == nil {
		return price
	}
	if token.PriceID != "" && a.api != nil {
		if fetched, err := a.api.USDPrices(ctx, []string{token.PriceID}); err == nil {
			if price, ok := fetched[token.PriceID]; ok {
				return price
			}
		} else {
			a.log.Debug("api price failed", zap.String("token", token.Symbol), zap.Error(err))
		}
	}
	return 0
}

func (a *Aggregator) oraclePrice(ctx context.Context, caller chain.Caller, feed string) (float64, error) {
	answer, decimals, err := chain.FeedLatestAnswer(ctx, caller, common.HexToAddress(feed))
	if err != nil {
		return 0, err
	}
	if answer.Sign() <= 0 {
		return 0, clierr.New(clierr.CodeUnavailable, "oracle returned non-positive answer")
	}
	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(answer),
		big.NewFloat(pow10(decimals)),
	).Float64()
	return value, nil
}

// routerPrice quotes one whole token against USDC through the chain's
// v2 router. Chains without a v2 protocol or a registered USDC skip
// this source.
func (a *Aggregator) routerPrice(ctx context.Context, caller chain.Caller, network registry.NetworkMetadata, token registry.TokenMetadata) (float64, error) {
	if network.Protocol == nil || network.Protocol.Version != registry.ProtocolV2 {
		return 0, clierr.New(clierr.CodeConfig, "no v2 router on chain")
	}
	stable, ok := a.reg.Tokens().Token("USDC", token.ChainID)
	if !ok || strings.EqualFold(stable.Address, token.Address) {
		return 0, clierr.New(clierr.CodeConfig, "no stable reference token")
	}
	amounts, err := quote.RouterAmountsOut(ctx, caller,
		common.HexToAddress(network.Protocol.Router),
		oneUnit(token.Decimals),
		[]common.Address{common.HexToAddress(token.Address), common.HexToAddress(stable.Address)})
	if err != nil {
		return 0, err
	}
	if len(amounts) < 2 {
		return 0, clierr.New(clierr.CodeUnavailable, "router returned short amounts array")
	}
	value, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amounts[len(amounts)-1]),
		big.NewFloat(pow10(stable.Decimals)),
	).Float64()
	return value, nil
}

func (a *Aggregator) nativePrice(ctx context.Context, caller chain.Caller, network registry.NetworkMetadata, chainID int64) float64 {
	// The native coin is priced through its wrapped ERC20 metadata.
	for _, token := range a.reg.Tokens().NetworkTokens(chainID) {
		if strings.EqualFold(token.Address, network.Native.Wrapped) {
			return a.resolvePrice(ctx, caller, network, token)
		}
	}
	a.log.Debug("no wrapped-native token registered", zap.Int64("chain_id", chainID))
	return 0
}

func entryValue(balance string, price float64) float64 {
	amount, err := strconv.ParseFloat(balance, 64)
	if err != nil {
		return 0
	}
	return amount * price
}

func formatPrice(price float64) string {
	if price == 0 {
		return "0"
	}
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func oneUnit(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

func pow10(decimals int) float64 {
	out := 1.0
	for i := 0; i < decimals; i++ {
		out *= 10
	}
	return out
}
