package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/registry"
)

var (
	erc20ABI = MustABI(registry.ERC20MinimalABI)
	feedABI  = MustABI(registry.ChainlinkAggregatorABI)
)

func MustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// CallView packs a view call, executes it through caller and unpacks
// the outputs.
func CallView(ctx context.Context, caller Caller, contractABI abi.ABI, contract common.Address, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack "+method, err)
	}
	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "decode "+method+" result", err)
	}
	return out, nil
}

func ERC20Decimals(ctx context.Context, caller Caller, token common.Address) (int, error) {
	out, err := CallView(ctx, caller, erc20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, clierr.New(clierr.CodeUnavailable, "unexpected decimals() return type")
	}
	return int(decimals), nil
}

func ERC20BalanceOf(ctx context.Context, caller Caller, token, owner common.Address) (*big.Int, error) {
	out, err := CallView(ctx, caller, erc20ABI, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeUnavailable, "unexpected balanceOf() return type")
	}
	return balance, nil
}

func ERC20Symbol(ctx context.Context, caller Caller, token common.Address) (string, error) {
	out, err := CallView(ctx, caller, erc20ABI, token, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", clierr.New(clierr.CodeUnavailable, "unexpected symbol() return type")
	}
	return symbol, nil
}

// ERC20TransferData encodes transfer(to, amount) calldata.
func ERC20TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack transfer calldata", err)
	}
	return data, nil
}

// FeedLatestAnswer reads a Chainlink-style aggregator and returns the
// latest answer alongside the feed's own decimals.
func FeedLatestAnswer(ctx context.Context, caller Caller, feed common.Address) (*big.Int, int, error) {
	out, err := CallView(ctx, caller, feedABI, feed, "latestRoundData")
	if err != nil {
		return nil, 0, err
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return nil, 0, clierr.New(clierr.CodeUnavailable, "unexpected latestRoundData answer type")
	}
	decOut, err := CallView(ctx, caller, feedABI, feed, "decimals")
	if err != nil {
		return nil, 0, err
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return nil, 0, clierr.New(clierr.CodeUnavailable, "unexpected feed decimals type")
	}
	return answer, int(decimals), nil
}
