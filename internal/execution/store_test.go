package execution

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "trades.db"), filepath.Join(dir, "trades.lock"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveGetList(t *testing.T) {
	store := openTestStore(t)

	trade := Trade{
		TradeID:  NewTradeID(),
		Kind:     "swap",
		Status:   TradeStatusPlanned,
		ChainID:  8453,
		Wallet:   "0x0000000000000000000000000000000000000001",
		TokenIn:  "ETH",
		TokenOut: "usdc",
		AmountIn: "1000000000000000000",
	}
	trade.Touch(time.Now())
	if err := store.Save(trade); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(trade.TradeID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TradeID != trade.TradeID {
		t.Fatalf("unexpected trade id: %s", got.TradeID)
	}
	if got.Kind != "swap" {
		t.Fatalf("unexpected kind: %s", got.Kind)
	}

	got.Status = TradeStatusConfirmed
	got.TxHash = "0xabc"
	got.Touch(time.Now())
	if err := store.Save(got); err != nil {
		t.Fatalf("Save update failed: %v", err)
	}
	confirmed, err := store.List(string(TradeStatusConfirmed), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(confirmed) != 1 {
		t.Fatalf("expected one confirmed trade, got %d", len(confirmed))
	}
	if confirmed[0].TxHash != "0xabc" {
		t.Fatalf("tx hash not persisted: %q", confirmed[0].TxHash)
	}
}

func TestStoreGetMissingTrade(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get("trade_nope"); err == nil {
		t.Fatal("expected error for missing trade")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStoreStats(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	save := func(status TradeStatus, token string, usd float64) {
		trade := Trade{
			TradeID:  NewTradeID(),
			Kind:     "swap",
			Status:   status,
			ChainID:  1,
			TokenIn:  "ETH",
			TokenOut: token,
			AmountIn: "1",
			ValueUSD: usd,
		}
		trade.Touch(now)
		if err := store.Save(trade); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	save(TradeStatusConfirmed, "USDC", 1200)
	save(TradeStatusConfirmed, "usdc", 300)
	save(TradeStatusFailed, "USDC", 50)
	save(TradeStatusConfirmed, "DAI", 10)

	stats, err := store.Stats(1, "usdc")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Confirmed != 2 {
		t.Fatalf("confirmed = %d, want 2", stats.Confirmed)
	}
	if stats.Failed != 1 {
		t.Fatalf("failed = %d, want 1", stats.Failed)
	}
	if stats.VolumeUSD != 1500 {
		t.Fatalf("volume = %v, want 1500", stats.VolumeUSD)
	}
	if stats.LastTradeAt == "" {
		t.Fatal("expected a last trade timestamp")
	}

	empty, err := store.Stats(1, "WETH")
	if err != nil {
		t.Fatalf("Stats empty failed: %v", err)
	}
	if empty.Confirmed != 0 || empty.Failed != 0 || empty.VolumeUSD != 0 {
		t.Fatalf("expected zero aggregates, got %+v", empty)
	}
}
