package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestTokenLookupIsCaseInsensitive(t *testing.T) {
	ctx := NewContext()
	ctx.Tokens().Register(TokenMetadata{ChainID: 1, Symbol: "usdc", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6})

	lower, okLower := ctx.Tokens().Token("usdc", 1)
	upper, okUpper := ctx.Tokens().Token("USDC", 1)
	if !okLower || !okUpper {
		t.Fatal("expected both lookups to succeed")
	}
	if lower != upper {
		t.Fatalf("case-sensitive divergence: %+v vs %+v", lower, upper)
	}
	if lower.Symbol != "USDC" {
		t.Fatalf("symbol not normalized: %q", lower.Symbol)
	}
}

func TestRegisterTokenOverwrites(t *testing.T) {
	ctx := NewContext()
	ctx.Tokens().Register(TokenMetadata{ChainID: 1, Symbol: "USDC", Address: "0x1111111111111111111111111111111111111111", Decimals: 6})
	ctx.Tokens().Register(TokenMetadata{ChainID: 1, Symbol: "USDC", Address: "0x2222222222222222222222222222222222222222", Decimals: 8, Name: "replacement"})

	got, ok := ctx.Tokens().Token("USDC", 1)
	if !ok {
		t.Fatal("token missing after overwrite")
	}
	if got.Address != "0x2222222222222222222222222222222222222222" || got.Decimals != 8 || got.Name != "replacement" {
		t.Fatalf("overwrite did not win: %+v", got)
	}
	if ctx.Tokens().Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", ctx.Tokens().Len())
	}
}

func TestRemoveUnknownTokenIsFalse(t *testing.T) {
	ctx := NewContext()
	ctx.Tokens().Register(TokenMetadata{ChainID: 1, Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18})

	if ctx.Tokens().Remove("WBTC", 1) {
		t.Fatal("remove of unregistered token returned true")
	}
	if ctx.Tokens().Len() != 1 {
		t.Fatalf("registry size changed: %d", ctx.Tokens().Len())
	}
	if !ctx.Tokens().Remove("dai", 1) {
		t.Fatal("remove of registered token returned false")
	}
	if ctx.Tokens().Len() != 0 {
		t.Fatalf("registry size after remove: %d", ctx.Tokens().Len())
	}
}

func TestSameSymbolAcrossChains(t *testing.T) {
	ctx := NewContext()
	ctx.Tokens().Register(TokenMetadata{ChainID: 1, Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6})
	ctx.Tokens().Register(TokenMetadata{ChainID: 8453, Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6})

	mainnet, _ := ctx.Tokens().Token("USDC", 1)
	base, _ := ctx.Tokens().Token("USDC", 8453)
	if mainnet.Address == base.Address {
		t.Fatal("expected per-chain token entries to be independent")
	}
	if len(ctx.Tokens().NetworkTokens(1)) != 1 || len(ctx.Tokens().NetworkTokens(8453)) != 1 {
		t.Fatal("NetworkTokens leaked across chains")
	}
}

func TestSetEnabledUnknownChain(t *testing.T) {
	ctx := NewContext()
	if ctx.Networks().SetEnabled(999999, false) {
		t.Fatal("SetEnabled on unknown chain returned true")
	}

	ctx.Networks().Register(NetworkMetadata{ChainID: 1, Name: "Ethereum", Enabled: true}, nil)
	if !ctx.Networks().SetEnabled(1, false) {
		t.Fatal("SetEnabled on known chain returned false")
	}
	meta, _ := ctx.Networks().Network(1)
	if meta.Enabled {
		t.Fatal("enabled flag not updated")
	}
}

func TestNetworkRegisterOverwritesAndKeepsOrder(t *testing.T) {
	ctx := NewContext()
	ctx.Networks().Register(NetworkMetadata{ChainID: 1, Name: "Ethereum"}, nil)
	ctx.Networks().Register(NetworkMetadata{ChainID: 8453, Name: "Base"}, nil)
	ctx.Networks().Register(NetworkMetadata{ChainID: 1, Name: "Mainnet"}, &ProtocolConfig{Version: ProtocolV2, Router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", FeeBps: 30})

	all := ctx.Networks().Networks()
	if len(all) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(all))
	}
	if all[0].Name != "Mainnet" || all[1].Name != "Base" {
		t.Fatalf("unexpected order: %+v", all)
	}
	cfg, ok := ctx.Networks().ProtocolConfig(1)
	if !ok || cfg.Version != ProtocolV2 {
		t.Fatalf("protocol config not stored: %+v ok=%v", cfg, ok)
	}
	if _, ok := ctx.Networks().ProtocolConfig(8453); ok {
		t.Fatal("expected no protocol config for chain without one")
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			ctx.Tokens().Register(TokenMetadata{
				ChainID:  1,
				Symbol:   fmt.Sprintf("TOK%d", n%8),
				Address:  fmt.Sprintf("0x%040d", n),
				Decimals: 18,
			})
		}(i)
		go func(n int) {
			defer wg.Done()
			_, _ = ctx.Tokens().Token(fmt.Sprintf("TOK%d", n%8), 1)
			_ = ctx.Tokens().NetworkTokens(1)
		}(i)
	}
	wg.Wait()
	if ctx.Tokens().Len() != 8 {
		t.Fatalf("expected 8 distinct symbols, got %d", ctx.Tokens().Len())
	}
}

func TestDefaultContextSeeds(t *testing.T) {
	ctx := NewDefaultContext()
	if len(ctx.Networks().Networks()) == 0 {
		t.Fatal("no default networks")
	}
	meta, ok := ctx.Networks().Network(1)
	if !ok || meta.Native.Symbol != "ETH" || meta.Native.Decimals != 18 {
		t.Fatalf("mainnet metadata: %+v", meta)
	}
	cfg, ok := ctx.Networks().ProtocolConfig(8453)
	if !ok || cfg.Version != ProtocolV3 || cfg.Quoter == "" {
		t.Fatalf("base protocol config: %+v", cfg)
	}
	if _, ok := ctx.Tokens().Token("usdc", 1); !ok {
		t.Fatal("mainnet USDC not seeded")
	}
}

func TestIsNative(t *testing.T) {
	if !IsNative("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee") {
		t.Fatal("case-insensitive native match failed")
	}
	if IsNative("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2") {
		t.Fatal("WETH misclassified as native")
	}
}
