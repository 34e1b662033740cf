package swap

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/larivera/evm-agent/internal/chain"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/quote"
	"github.com/larivera/evm-agent/internal/registry"
)

var (
	erc20ABI    = chain.MustABI(registry.ERC20MinimalABI)
	v3QuoterABI = chain.MustABI(registry.V3QuoterV2ABI)
)

type fakeCaller struct {
	amountOut *big.Int
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if method, err := erc20ABI.MethodById(msg.Data[:4]); err == nil && method.Name == "decimals" {
		return erc20ABI.Methods["decimals"].Outputs.Pack(uint8(6))
	}
	if method, err := v2RouterABI.MethodById(msg.Data[:4]); err == nil && method.Name == "getAmountsOut" {
		args, _ := method.Inputs.Unpack(msg.Data[4:])
		return method.Outputs.Pack([]*big.Int{args[0].(*big.Int), f.amountOut})
	}
	if method, err := v3QuoterABI.MethodById(msg.Data[:4]); err == nil {
		return method.Outputs.Pack(f.amountOut, big.NewInt(0), uint32(1), big.NewInt(21000))
	}
	return nil, nil
}

func (f *fakeCaller) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

const (
	wethMainnet = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdcMainnet = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	daiMainnet  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	recipient   = "0x1234567890123456789012345678901234567890"
)

func v2Builder(t *testing.T) (*Builder, *registry.Context) {
	t.Helper()
	reg := registry.NewContext()
	reg.Networks().Register(registry.NetworkMetadata{
		ChainID: 1,
		Name:    "Ethereum",
		RPCURL:  "http://localhost:8545",
		Native:  registry.NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: wethMainnet},
		Enabled: true,
	}, &registry.ProtocolConfig{Version: registry.ProtocolV2, Router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", FeeBps: 30})
	reg.Tokens().Register(registry.TokenMetadata{ChainID: 1, Symbol: "USDC", Address: usdcMainnet, Decimals: 6})
	reg.Tokens().Register(registry.TokenMetadata{ChainID: 1, Symbol: "DAI", Address: daiMainnet, Decimals: 18})
	return NewBuilder(reg, quote.NewEngine(reg, nil), nil), reg
}

func v3Builder(t *testing.T) *Builder {
	t.Helper()
	reg := registry.NewContext()
	reg.Networks().Register(registry.NetworkMetadata{
		ChainID: 8453,
		Name:    "Base",
		RPCURL:  "http://localhost:8545",
		Native:  registry.NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0x4200000000000000000000000000000000000006"},
		Enabled: true,
	}, &registry.ProtocolConfig{Version: registry.ProtocolV3, Router: "0x2626664c2603336E57B271c5C0b26F421741e481", Quoter: "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a", FeeBps: 30})
	reg.Tokens().Register(registry.TokenMetadata{ChainID: 8453, Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6})
	return NewBuilder(reg, quote.NewEngine(reg, nil), nil)
}

func TestApplySlippageExact(t *testing.T) {
	got := applySlippage(big.NewInt(1_000_000), 50)
	if got.Int64() != 995_000 {
		t.Fatalf("minOut = %d, want 995000", got.Int64())
	}
	// Integer division truncates, never rounds up.
	got = applySlippage(big.NewInt(999), 50)
	if got.Int64() != 994 {
		t.Fatalf("minOut = %d, want 994", got.Int64())
	}
}

func TestBuildSwapDeadline(t *testing.T) {
	b, _ := v2Builder(t)
	before := time.Now().Unix()
	planned, err := b.BuildSwap(context.Background(), &fakeCaller{amountOut: big.NewInt(1_000_000)}, SwapRequest{
		ChainID:       1,
		TokenIn:       "USDC",
		TokenOut:      "DAI",
		AmountDecimal: "1",
		Recipient:     recipient,
	})
	if err != nil {
		t.Fatalf("BuildSwap: %v", err)
	}
	after := time.Now().Unix()
	if planned.Deadline <= after {
		t.Fatalf("deadline %d not in the future", planned.Deadline)
	}
	if planned.Deadline < before+DeadlineSeconds || planned.Deadline > after+DeadlineSeconds {
		t.Fatalf("deadline %d not now+%ds", planned.Deadline, DeadlineSeconds)
	}
}

func TestBuildSwapFunctionSelection(t *testing.T) {
	cases := []struct {
		name     string
		tokenIn  string
		tokenOut string
		wantFn   string
		wantVal  bool
	}{
		{name: "native in v2", tokenIn: registry.NativeAddress, tokenOut: "USDC", wantFn: "swapExactETHForTokens", wantVal: true},
		{name: "token to token v2", tokenIn: "USDC", tokenOut: "DAI", wantFn: "swapExactTokensForTokens"},
		{name: "native out v2", tokenIn: "USDC", tokenOut: registry.NativeAddress, wantFn: "swapExactTokensForETH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := v2Builder(t)
			planned, err := b.BuildSwap(context.Background(), &fakeCaller{amountOut: big.NewInt(1_000_000)}, SwapRequest{
				ChainID:       1,
				TokenIn:       tc.tokenIn,
				TokenOut:      tc.tokenOut,
				AmountDecimal: "1",
				Recipient:     recipient,
			})
			if err != nil {
				t.Fatalf("BuildSwap: %v", err)
			}
			if planned.Function != tc.wantFn {
				t.Fatalf("function = %s, want %s", planned.Function, tc.wantFn)
			}
			if tc.wantVal && planned.Tx.Value == "" {
				t.Fatal("native-in swap must carry value")
			}
			if !tc.wantVal && planned.Tx.Value != "" {
				t.Fatalf("non-native swap carries value %s", planned.Tx.Value)
			}
			method, err := v2RouterABI.MethodById(common.FromHex(planned.Tx.Data)[:4])
			if err != nil || method.Name != tc.wantFn {
				t.Fatalf("encoded selector resolves to %v, want %s", method, tc.wantFn)
			}
		})
	}
}

func TestBuildSwapV3FeeArgument(t *testing.T) {
	b := v3Builder(t)
	planned, err := b.BuildSwap(context.Background(), &fakeCaller{amountOut: big.NewInt(3_000_000_000)}, SwapRequest{
		ChainID:       8453,
		TokenIn:       registry.NativeAddress,
		TokenOut:      "USDC",
		AmountDecimal: "1.5",
		Recipient:     recipient,
	})
	if err != nil {
		t.Fatalf("BuildSwap: %v", err)
	}
	if planned.Function != "exactInputSingle" {
		t.Fatalf("function = %s", planned.Function)
	}
	data := common.FromHex(planned.Tx.Data)
	method, err := v3RouterABI.MethodById(data[:4])
	if err != nil || method.Name != "exactInputSingle" {
		t.Fatalf("selector mismatch: %v", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	params := args[0].(struct {
		TokenIn           common.Address `json:"tokenIn"`
		TokenOut          common.Address `json:"tokenOut"`
		Fee               *big.Int       `json:"fee"`
		Recipient         common.Address `json:"recipient"`
		Deadline          *big.Int       `json:"deadline"`
		AmountIn          *big.Int       `json:"amountIn"`
		AmountOutMinimum  *big.Int       `json:"amountOutMinimum"`
		SqrtPriceLimitX96 *big.Int       `json:"sqrtPriceLimitX96"`
	})
	if params.Fee.Int64() != 3000 {
		t.Fatalf("fee = %d, want 3000", params.Fee.Int64())
	}
	if planned.Tx.Value != "1500000000000000000" {
		t.Fatalf("value = %s", planned.Tx.Value)
	}
	if params.AmountOutMinimum.Int64() != 2_985_000_000 {
		t.Fatalf("minOut = %d", params.AmountOutMinimum.Int64())
	}
}

func TestBuildSwapUnknownToken(t *testing.T) {
	b, _ := v2Builder(t)
	_, err := b.BuildSwap(context.Background(), &fakeCaller{amountOut: big.NewInt(1)}, SwapRequest{
		ChainID:       1,
		TokenIn:       "WBTC",
		TokenOut:      "USDC",
		AmountDecimal: "1",
		Recipient:     recipient,
	})
	if !clierr.Is(err, clierr.CodeUnknownToken) {
		t.Fatalf("expected unknown token error, got %v", err)
	}
}

func TestBuildTransferNative(t *testing.T) {
	b, _ := v2Builder(t)
	tx, err := b.BuildTransfer(context.Background(), &fakeCaller{}, TransferRequest{
		ChainID:       1,
		Token:         registry.NativeAddress,
		AmountDecimal: "2",
		Recipient:     recipient,
	})
	if err != nil {
		t.Fatalf("BuildTransfer: %v", err)
	}
	if tx.Value != "2000000000000000000" || tx.Data != "0x" {
		t.Fatalf("native transfer: %+v", tx)
	}
	if !strings.EqualFold(tx.To, recipient) {
		t.Fatalf("to = %s", tx.To)
	}
}

func TestBuildTransferERC20(t *testing.T) {
	b, _ := v2Builder(t)
	tx, err := b.BuildTransfer(context.Background(), &fakeCaller{}, TransferRequest{
		ChainID:       1,
		Token:         "usdc",
		AmountDecimal: "150",
		Recipient:     recipient,
	})
	if err != nil {
		t.Fatalf("BuildTransfer: %v", err)
	}
	if tx.Value != "" {
		t.Fatalf("erc20 transfer carries value %s", tx.Value)
	}
	if !strings.EqualFold(tx.To, usdcMainnet) {
		t.Fatalf("to = %s, want token contract", tx.To)
	}
	data := common.FromHex(tx.Data)
	method, err := erc20ABI.MethodById(data[:4])
	if err != nil || method.Name != "transfer" {
		t.Fatalf("selector mismatch")
	}
	args, _ := method.Inputs.Unpack(data[4:])
	if args[1].(*big.Int).String() != "150000000" {
		t.Fatalf("amount = %s", args[1])
	}
}
