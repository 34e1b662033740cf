package registry

import (
	"strings"
	"sync"
)

// NativeAddress is the conventional placeholder for a chain's native
// currency in swap and transfer requests.
const NativeAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

type ProtocolVersion string

const (
	ProtocolV2 ProtocolVersion = "v2"
	ProtocolV3 ProtocolVersion = "v3"
)

// ProtocolConfig describes the DEX integration for one chain.
// Quoter is only set for v3 deployments; v2 routers quote themselves.
type ProtocolConfig struct {
	Version ProtocolVersion
	Router  string
	Quoter  string
	FeeBps  int64
}

type NativeCurrency struct {
	Symbol   string
	Decimals int
	// Wrapped is the canonical wrapped-native token used in swap paths.
	Wrapped string
}

type NetworkMetadata struct {
	ChainID  int64
	Name     string
	RPCURL   string
	Native   NativeCurrency
	Enabled  bool
	Protocol *ProtocolConfig
}

type TokenMetadata struct {
	ChainID  int64
	Symbol   string
	Address  string
	Decimals int
	Name     string
	// PriceFeed is an optional Chainlink-style aggregator address.
	PriceFeed string
	// PriceID is an optional identifier for the HTTP price API fallback.
	PriceID string
}

// Context holds both registries and is passed explicitly through call
// chains instead of living in package-level state. This keeps tests
// hermetic and makes concurrent multi-tenant use safe.
type Context struct {
	networks *NetworkRegistry
	tokens   *TokenRegistry
}

func NewContext() *Context {
	return &Context{
		networks: newNetworkRegistry(),
		tokens:   newTokenRegistry(),
	}
}

func (c *Context) Networks() *NetworkRegistry { return c.networks }
func (c *Context) Tokens() *TokenRegistry     { return c.tokens }

// NetworkRegistry maps a chain identifier to its connection and
// protocol metadata for the lifetime of the process.
type NetworkRegistry struct {
	mu    sync.RWMutex
	byID  map[int64]NetworkMetadata
	order []int64
}

func newNetworkRegistry() *NetworkRegistry {
	return &NetworkRegistry{byID: make(map[int64]NetworkMetadata)}
}

// Register inserts or overwrites the entry for meta.ChainID. The RPC
// endpoint is not probed here; connections are established lazily.
func (r *NetworkRegistry) Register(meta NetworkMetadata, protocol *ProtocolConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if protocol != nil {
		cp := *protocol
		meta.Protocol = &cp
	}
	if _, exists := r.byID[meta.ChainID]; !exists {
		r.order = append(r.order, meta.ChainID)
	}
	r.byID[meta.ChainID] = meta
}

func (r *NetworkRegistry) Network(chainID int64) (NetworkMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byID[chainID]
	return meta, ok
}

func (r *NetworkRegistry) ProtocolConfig(chainID int64) (ProtocolConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byID[chainID]
	if !ok || meta.Protocol == nil {
		return ProtocolConfig{}, false
	}
	return *meta.Protocol, true
}

// Networks returns all registered networks in insertion order.
func (r *NetworkRegistry) Networks() []NetworkMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NetworkMetadata, 0, len(r.order))
	for _, chainID := range r.order {
		out = append(out, r.byID[chainID])
	}
	return out
}

// SetEnabled toggles a network and reports whether the chain was known.
// Callers must check the return value; an unknown chain is not an error.
func (r *NetworkRegistry) SetEnabled(chainID int64, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.byID[chainID]
	if !ok {
		return false
	}
	meta.Enabled = enabled
	r.byID[chainID] = meta
	return true
}

type tokenKey struct {
	chainID int64
	symbol  string
}

// TokenRegistry maps (chain identifier, upper-cased symbol) to token
// metadata. Registration silently overwrites; last registration wins.
type TokenRegistry struct {
	mu    sync.RWMutex
	byKey map[tokenKey]TokenMetadata
	order []tokenKey
}

func newTokenRegistry() *TokenRegistry {
	return &TokenRegistry{byKey: make(map[tokenKey]TokenMetadata)}
}

func (r *TokenRegistry) Register(meta TokenMetadata) bool {
	symbol := strings.ToUpper(strings.TrimSpace(meta.Symbol))
	if symbol == "" || strings.TrimSpace(meta.Address) == "" {
		return false
	}
	meta.Symbol = symbol
	key := tokenKey{chainID: meta.ChainID, symbol: symbol}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byKey[key] = meta
	return true
}

// RegisterAll registers every token and returns the number accepted.
func (r *TokenRegistry) RegisterAll(tokens []TokenMetadata) int {
	count := 0
	for _, meta := range tokens {
		if r.Register(meta) {
			count++
		}
	}
	return count
}

// Token looks up a token by case-insensitive symbol.
func (r *TokenRegistry) Token(symbol string, chainID int64) (TokenMetadata, bool) {
	key := tokenKey{chainID: chainID, symbol: strings.ToUpper(strings.TrimSpace(symbol))}
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byKey[key]
	return meta, ok
}

// NetworkTokens returns all tokens registered for one chain, in
// insertion order.
func (r *TokenRegistry) NetworkTokens(chainID int64) []TokenMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TokenMetadata, 0)
	for _, key := range r.order {
		if key.chainID != chainID {
			continue
		}
		out = append(out, r.byKey[key])
	}
	return out
}

// Remove deletes a token entry and reports whether it existed.
func (r *TokenRegistry) Remove(symbol string, chainID int64) bool {
	key := tokenKey{chainID: chainID, symbol: strings.ToUpper(strings.TrimSpace(symbol))}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		return false
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *TokenRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// IsNative reports whether addr is the native-currency placeholder.
func IsNative(addr string) bool {
	return strings.EqualFold(strings.TrimSpace(addr), NativeAddress)
}
