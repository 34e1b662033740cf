package registry

// Canonical chain metadata used to seed a fresh Context. Bootstrap code
// (config file, agent startup) registers anything beyond this set.
var defaultNetworks = []struct {
	meta     NetworkMetadata
	protocol *ProtocolConfig
}{
	{
		meta: NetworkMetadata{
			ChainID: 1,
			Name:    "Ethereum",
			RPCURL:  "https://eth.llamarpc.com",
			Native:  NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV2, Router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 8453,
			Name:    "Base",
			RPCURL:  "https://mainnet.base.org",
			Native:  NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0x4200000000000000000000000000000000000006"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV3, Router: "0x2626664c2603336E57B271c5C0b26F421741e481", Quoter: "0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 42161,
			Name:    "Arbitrum",
			RPCURL:  "https://arb1.arbitrum.io/rpc",
			Native:  NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV3, Router: "0xE592427A0AEce92De3Edee1F18E0157C05861564", Quoter: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 10,
			Name:    "Optimism",
			RPCURL:  "https://mainnet.optimism.io",
			Native:  NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0x4200000000000000000000000000000000000006"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV3, Router: "0xE592427A0AEce92De3Edee1F18E0157C05861564", Quoter: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 137,
			Name:    "Polygon",
			RPCURL:  "https://polygon-rpc.com",
			Native:  NativeCurrency{Symbol: "POL", Decimals: 18, Wrapped: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV3, Router: "0xE592427A0AEce92De3Edee1F18E0157C05861564", Quoter: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 56,
			Name:    "BSC",
			RPCURL:  "https://bsc-dataseed.binance.org",
			Native:  NativeCurrency{Symbol: "BNB", Decimals: 18, Wrapped: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV2, Router: "0x10ED43C718714eb63d5aA57B78B54704E256024E", FeeBps: 25},
	},
	{
		meta: NetworkMetadata{
			ChainID: 43114,
			Name:    "Avalanche",
			RPCURL:  "https://api.avax.network/ext/bc/C/rpc",
			Native:  NativeCurrency{Symbol: "AVAX", Decimals: 18, Wrapped: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV2, Router: "0x60aE616a2155Ee3d9A68541Ba4544862310933d4", FeeBps: 30},
	},
	{
		meta: NetworkMetadata{
			ChainID: 167000,
			Name:    "Taiko",
			RPCURL:  "https://rpc.mainnet.taiko.xyz",
			Native:  NativeCurrency{Symbol: "ETH", Decimals: 18, Wrapped: "0xA51894664A773981C6C112C43ce576f315d5b1B6"},
			Enabled: true,
		},
		protocol: &ProtocolConfig{Version: ProtocolV3, Router: "0x1A0c3a0Cfd1791FAC7798FA2b05208B66aaadfeD", Quoter: "0xcBa70D57be34aA26557B8E80135a9B7754680aDb", FeeBps: 30},
	},
}

var defaultTokens = []TokenMetadata{
	{ChainID: 1, Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 1, Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6, Name: "Tether USD", PriceID: "tether"},
	{ChainID: 1, Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, Name: "Dai Stablecoin", PriceID: "dai"},
	{ChainID: 1, Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth", PriceFeed: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"},

	{ChainID: 8453, Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 8453, Symbol: "DAI", Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Decimals: 18, Name: "Dai Stablecoin", PriceID: "dai"},
	{ChainID: 8453, Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},

	{ChainID: 42161, Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 42161, Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebe478A1C0b69FCbb9", Decimals: 6, Name: "Tether USD", PriceID: "tether"},
	{ChainID: 42161, Symbol: "WETH", Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},

	{ChainID: 10, Symbol: "USDC", Address: "0x7F5c764cBc14f9669B88837ca1490cCa17c31607", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 10, Symbol: "DAI", Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: 18, Name: "Dai Stablecoin", PriceID: "dai"},
	{ChainID: 10, Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},

	{ChainID: 137, Symbol: "USDC", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 137, Symbol: "USDT", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6, Name: "Tether USD", PriceID: "tether"},
	{ChainID: 137, Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},

	{ChainID: 56, Symbol: "USDC", Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 56, Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18, Name: "Tether USD", PriceID: "tether"},
	{ChainID: 56, Symbol: "WETH", Address: "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},

	{ChainID: 43114, Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6, Name: "USD Coin", PriceID: "usd-coin"},
	{ChainID: 43114, Symbol: "USDT", Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Decimals: 6, Name: "Tether USD", PriceID: "tether"},
	{ChainID: 43114, Symbol: "WETH", Address: "0x49D5c2BdFfac6CE2BFdB6640F4F80f226bc10bAB", Decimals: 18, Name: "Wrapped Ether", PriceID: "weth"},
}

// NewDefaultContext builds a Context seeded with the canonical networks
// and a small bootstrap token set per chain.
func NewDefaultContext() *Context {
	ctx := NewContext()
	for _, entry := range defaultNetworks {
		ctx.Networks().Register(entry.meta, entry.protocol)
	}
	ctx.Tokens().RegisterAll(defaultTokens)
	return ctx
}
