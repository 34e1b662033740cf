package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/httpx"
)

const testToken = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

func reportServer(t *testing.T, explorer, holders, dex http.HandlerFunc) *Service {
	t.Helper()
	explorerSrv := httptest.NewServer(explorer)
	holdersSrv := httptest.NewServer(holders)
	dexSrv := httptest.NewServer(dex)
	t.Cleanup(func() {
		explorerSrv.Close()
		holdersSrv.Close()
		dexSrv.Close()
	})
	return NewService(httpx.New(2*time.Second, 0), Endpoints{
		ExplorerURL: explorerSrv.URL,
		HoldersURL:  holdersSrv.URL,
		DexURL:      dexSrv.URL,
	}, nil)
}

func okExplorer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"1","result":[{"ContractName":"USDC","SourceCode":"contract USDC {}"}]}`))
}

func okHolders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"count":4821,"data":[{"share_pct":22.5},{"share_pct":10.0},{"share_pct":5.5}]}`))
}

func okDex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"pairs":[
		{"liquidity":{"usd":50000},"volume":{"h24":12000},"priceUsd":"0.98"},
		{"liquidity":{"usd":2500000},"volume":{"h24":900000},"priceUsd":"1.0001"}
	]}`))
}

func TestReportAggregatesAllSources(t *testing.T) {
	svc := reportServer(t, okExplorer, okHolders, okDex)

	report, err := svc.Report(context.Background(), 8453, testToken)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.ContractInfo.Name != "USDC" || !report.ContractInfo.Verified {
		t.Fatalf("contract info wrong: %+v", report.ContractInfo)
	}
	if report.Holders.HolderCount != 4821 {
		t.Fatalf("holder count = %d", report.Holders.HolderCount)
	}
	if report.Holders.Top10SharePct != 38.0 {
		t.Fatalf("top10 share = %v, want 38.0", report.Holders.Top10SharePct)
	}
	if report.DexStats.LiquidityUSD != 2_550_000 {
		t.Fatalf("liquidity = %v, want summed 2550000", report.DexStats.LiquidityUSD)
	}
	// Price comes from the deepest pool, not the first pair listed.
	if report.DexStats.PriceUSD != 1.0001 {
		t.Fatalf("price = %v, want 1.0001", report.DexStats.PriceUSD)
	}
	if report.FetchedAt == "" {
		t.Fatal("missing fetched_at timestamp")
	}
}

func TestReportOneSourceFailureFailsWhole(t *testing.T) {
	var holdersHit, dexHit atomic.Int32
	svc := reportServer(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
		func(w http.ResponseWriter, r *http.Request) {
			holdersHit.Add(1)
			okHolders(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			dexHit.Add(1)
			okDex(w, r)
		},
	)

	_, err := svc.Report(context.Background(), 1, testToken)
	if err == nil {
		t.Fatal("expected report to fail when one source fails")
	}
	// Siblings still ran to completion.
	if holdersHit.Load() != 1 || dexHit.Load() != 1 {
		t.Fatalf("sibling lookups skipped: holders=%d dex=%d", holdersHit.Load(), dexHit.Load())
	}
}

func TestReportInvalidAddress(t *testing.T) {
	svc := NewService(httpx.New(time.Second, 0), Endpoints{}, nil)
	_, err := svc.Report(context.Background(), 1, "not-an-address")
	if !clierr.Is(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestReportNoDexPairs(t *testing.T) {
	svc := reportServer(t, okExplorer, okHolders, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	})

	_, err := svc.Report(context.Background(), 1, testToken)
	if !clierr.Is(err, clierr.CodeUnknownToken) {
		t.Fatalf("expected unknown-token error, got %v", err)
	}
}
