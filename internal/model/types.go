package model

import "time"

const EnvelopeVersion = "v1"

// Envelope is the stable output contract for every command.
type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

// SwapQuote is the ephemeral, per-request result of the quote engine.
// It is never persisted or cached; AMM prices move block to block.
type SwapQuote struct {
	ChainID        int64    `json:"chain_id"`
	AmountIn       string   `json:"amount_in"`
	AmountOut      string   `json:"amount_out"`
	PriceImpactPct float64  `json:"price_impact_pct"`
	Route          []string `json:"route"`
	FetchedAt      string   `json:"fetched_at"`
}

// PreparedTransaction carries everything the submission boundary needs.
// Value is nil unless the input side is the chain's native currency.
type PreparedTransaction struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
}

type TokenBalance struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	PriceUSD string `json:"price_usd"`
	ValueUSD string `json:"value_usd"`
}

// Portfolio is recomputed fully on every request; the native entry is
// always first in Tokens.
type Portfolio struct {
	Wallet        string         `json:"wallet"`
	ChainID       int64          `json:"chain_id"`
	Tokens        []TokenBalance `json:"tokens"`
	TotalValueUSD string         `json:"total_value_usd"`
	FetchedAt     string         `json:"fetched_at"`
}

// TokenReport aggregates the three independent security lookups.
type TokenReport struct {
	ChainID      int64              `json:"chain_id"`
	Address      string             `json:"address"`
	ContractInfo ContractInfo       `json:"contract_info"`
	Holders      HolderDistribution `json:"holders"`
	DexStats     DexStats           `json:"dex_stats"`
	FetchedAt    string             `json:"fetched_at"`
}

type ContractInfo struct {
	Name         string `json:"name"`
	Verified     bool   `json:"verified"`
	CreatorAddr  string `json:"creator_address,omitempty"`
	CreationHash string `json:"creation_tx,omitempty"`
}

type HolderDistribution struct {
	HolderCount   int64   `json:"holder_count"`
	Top10SharePct float64 `json:"top10_share_pct"`
}

type DexStats struct {
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	PriceUSD     float64 `json:"price_usd"`
}

// TrustScore summarizes recorded trade outcomes for one token.
type TrustScore struct {
	ChainID     int64   `json:"chain_id"`
	Token       string  `json:"token"`
	Confirmed   int64   `json:"confirmed"`
	Failed      int64   `json:"failed"`
	VolumeUSD   float64 `json:"volume_usd"`
	Score       float64 `json:"score"`
	LastTradeAt string  `json:"last_trade_at,omitempty"`
}
