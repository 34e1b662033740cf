package execution

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type TradeStatus string

const (
	TradeStatusPlanned   TradeStatus = "planned"
	TradeStatusSubmitted TradeStatus = "submitted"
	TradeStatusConfirmed TradeStatus = "confirmed"
	TradeStatusFailed    TradeStatus = "failed"
)

// Trade records a single swap or transfer through its lifecycle. The
// payload is stored whole so new fields never need a schema migration.
type Trade struct {
	TradeID   string      `json:"trade_id"`
	Kind      string      `json:"kind"`
	Status    TradeStatus `json:"status"`
	ChainID   int64       `json:"chain_id"`
	Wallet    string      `json:"wallet"`
	TokenIn   string      `json:"token_in"`
	TokenOut  string      `json:"token_out,omitempty"`
	AmountIn  string      `json:"amount_in"`
	AmountOut string      `json:"amount_out,omitempty"`
	ValueUSD  float64     `json:"value_usd,omitempty"`
	TxHash    string      `json:"tx_hash,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

func NewTradeID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "trade_" + time.Now().UTC().Format("20060102T150405.000000000")
	}
	return "trade_" + hex.EncodeToString(buf)
}

func (t *Trade) Touch(now time.Time) {
	stamp := now.UTC().Format(time.RFC3339)
	if t.CreatedAt == "" {
		t.CreatedAt = stamp
	}
	t.UpdatedAt = stamp
}
