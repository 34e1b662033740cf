package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/larivera/evm-agent/internal/registry"
)

type GlobalFlags struct {
	ConfigPath     string
	JSON           bool
	Plain          bool
	Chain          int64
	Timeout        string
	Retries        int
	Verbose        bool
	EnableCommands string
}

type Settings struct {
	OutputMode      string
	Verbose         bool
	EnableCommands  []string
	Timeout         time.Duration
	Retries         int
	DefaultChainID  int64
	TradeStorePath  string
	TradeLockPath   string
	PriceAPIBaseURL string
	PriceAPIKey     string
	ExplorerAPIURL  string
	ExplorerAPIKey  string
	HoldersAPIURL   string
	DexAPIURL       string
	RPCOverrides    map[int64]string
	ExtraNetworks   []NetworkEntry
	ExtraTokens     []TokenEntry
}

// NetworkEntry and TokenEntry let a config file extend the built-in
// registries with additional chains and tokens at startup.
type NetworkEntry struct {
	ChainID         int64  `yaml:"chain_id"`
	Name            string `yaml:"name"`
	RPCURL          string `yaml:"rpc_url"`
	NativeSymbol    string `yaml:"native_symbol"`
	NativeDecimals  int    `yaml:"native_decimals"`
	WrappedNative   string `yaml:"wrapped_native"`
	ProtocolVersion string `yaml:"protocol_version"`
	Router          string `yaml:"router"`
	Quoter          string `yaml:"quoter"`
	FeeBps          int64  `yaml:"fee_bps"`
}

type TokenEntry struct {
	ChainID   int64  `yaml:"chain_id"`
	Symbol    string `yaml:"symbol"`
	Address   string `yaml:"address"`
	Decimals  int    `yaml:"decimals"`
	Name      string `yaml:"name"`
	PriceFeed string `yaml:"price_feed"`
	PriceID   string `yaml:"price_id"`
}

type fileConfig struct {
	Output       string `yaml:"output"`
	Timeout      string `yaml:"timeout"`
	Retries      *int   `yaml:"retries"`
	DefaultChain *int64 `yaml:"default_chain"`
	Trades       struct {
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"trades"`
	Providers struct {
		Prices struct {
			BaseURL   string `yaml:"base_url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"prices"`
		Explorer struct {
			BaseURL   string `yaml:"base_url"`
			APIKey    string `yaml:"api_key"`
			APIKeyEnv string `yaml:"api_key_env"`
		} `yaml:"explorer"`
		Holders struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"holders"`
		Dex struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"dex"`
	} `yaml:"providers"`
	RPC      map[int64]string `yaml:"rpc"`
	Networks []NetworkEntry   `yaml:"networks"`
	Tokens   []TokenEntry     `yaml:"tokens"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}
	applyEnv(&settings)
	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}
	// Applied after the flag overlay so the override targets the chain
	// the command actually runs against.
	if v := os.Getenv("EVMAGENT_RPC_URL"); v != "" {
		settings.RPCOverrides[settings.DefaultChainID] = v
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:     "json",
		Timeout:        15 * time.Second,
		Retries:        2,
		DefaultChainID: 1,
		TradeStorePath: filepath.Join(dataDir, "trades.db"),
		TradeLockPath:  filepath.Join(dataDir, "trades.lock"),
		RPCOverrides:   map[int64]string{},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "evmagent", "config.yaml"), nil
}

func defaultDataDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "evmagent"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.DefaultChain != nil {
		settings.DefaultChainID = *cfg.DefaultChain
	}
	if cfg.Trades.Path != "" {
		settings.TradeStorePath = cfg.Trades.Path
	}
	if cfg.Trades.LockPath != "" {
		settings.TradeLockPath = cfg.Trades.LockPath
	}
	if cfg.Providers.Prices.BaseURL != "" {
		settings.PriceAPIBaseURL = cfg.Providers.Prices.BaseURL
	}
	if cfg.Providers.Prices.APIKey != "" {
		settings.PriceAPIKey = cfg.Providers.Prices.APIKey
	}
	if cfg.Providers.Prices.APIKeyEnv != "" {
		settings.PriceAPIKey = os.Getenv(cfg.Providers.Prices.APIKeyEnv)
	}
	if cfg.Providers.Explorer.BaseURL != "" {
		settings.ExplorerAPIURL = cfg.Providers.Explorer.BaseURL
	}
	if cfg.Providers.Explorer.APIKey != "" {
		settings.ExplorerAPIKey = cfg.Providers.Explorer.APIKey
	}
	if cfg.Providers.Explorer.APIKeyEnv != "" {
		settings.ExplorerAPIKey = os.Getenv(cfg.Providers.Explorer.APIKeyEnv)
	}
	if cfg.Providers.Holders.BaseURL != "" {
		settings.HoldersAPIURL = cfg.Providers.Holders.BaseURL
	}
	if cfg.Providers.Dex.BaseURL != "" {
		settings.DexAPIURL = cfg.Providers.Dex.BaseURL
	}
	for chainID, url := range cfg.RPC {
		if strings.TrimSpace(url) != "" {
			settings.RPCOverrides[chainID] = url
		}
	}
	settings.ExtraNetworks = append(settings.ExtraNetworks, cfg.Networks...)
	settings.ExtraTokens = append(settings.ExtraTokens, cfg.Tokens...)
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("EVMAGENT_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("EVMAGENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("EVMAGENT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("EVMAGENT_CHAIN"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.DefaultChainID = n
		}
	}
	if v := os.Getenv("EVMAGENT_TRADES_PATH"); v != "" {
		settings.TradeStorePath = v
	}
	if v := os.Getenv("EVMAGENT_TRADES_LOCK_PATH"); v != "" {
		settings.TradeLockPath = v
	}
	if v := os.Getenv("EVMAGENT_PRICE_API_URL"); v != "" {
		settings.PriceAPIBaseURL = v
	}
	if v := os.Getenv("EVMAGENT_PRICE_API_KEY"); v != "" {
		settings.PriceAPIKey = v
	}
	if v := os.Getenv("EVMAGENT_EXPLORER_API_KEY"); v != "" {
		settings.ExplorerAPIKey = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.Chain > 0 {
		settings.DefaultChainID = flags.Chain
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.Verbose {
		settings.Verbose = true
	}
	if strings.TrimSpace(flags.EnableCommands) != "" {
		parts := strings.Split(flags.EnableCommands, ",")
		allowed := make([]string, 0, len(parts))
		for _, part := range parts {
			if v := strings.TrimSpace(part); v != "" {
				allowed = append(allowed, v)
			}
		}
		settings.EnableCommands = allowed
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	return nil
}

// BuildRegistry seeds the default networks and tokens, then layers the
// config file's extras and RPC overrides on top. Config entries for a
// chain id already registered overwrite the built-in metadata.
func (s Settings) BuildRegistry() (*registry.Context, error) {
	reg := registry.NewDefaultContext()

	for _, entry := range s.ExtraNetworks {
		if entry.ChainID <= 0 {
			return nil, fmt.Errorf("config network missing chain_id")
		}
		var protocol *registry.ProtocolConfig
		switch strings.ToLower(strings.TrimSpace(entry.ProtocolVersion)) {
		case "":
			// read-only chain, no swap support
		case "v2":
			protocol = &registry.ProtocolConfig{Version: registry.ProtocolV2, Router: entry.Router, FeeBps: entry.FeeBps}
		case "v3":
			protocol = &registry.ProtocolConfig{Version: registry.ProtocolV3, Router: entry.Router, Quoter: entry.Quoter, FeeBps: entry.FeeBps}
		default:
			return nil, fmt.Errorf("config network %d: unknown protocol_version %q", entry.ChainID, entry.ProtocolVersion)
		}
		nativeDecimals := entry.NativeDecimals
		if nativeDecimals == 0 {
			nativeDecimals = 18
		}
		reg.Networks().Register(registry.NetworkMetadata{
			ChainID: entry.ChainID,
			Name:    entry.Name,
			RPCURL:  entry.RPCURL,
			Native: registry.NativeCurrency{
				Symbol:   entry.NativeSymbol,
				Decimals: nativeDecimals,
				Wrapped:  entry.WrappedNative,
			},
			Enabled: true,
		}, protocol)
	}

	for _, entry := range s.ExtraTokens {
		reg.Tokens().Register(registry.TokenMetadata{
			ChainID:   entry.ChainID,
			Symbol:    entry.Symbol,
			Address:   entry.Address,
			Decimals:  entry.Decimals,
			Name:      entry.Name,
			PriceFeed: entry.PriceFeed,
			PriceID:   entry.PriceID,
		})
	}

	for chainID, url := range s.RPCOverrides {
		meta, ok := reg.Networks().Network(chainID)
		if !ok {
			return nil, fmt.Errorf("rpc override for unknown chain %d", chainID)
		}
		meta.RPCURL = url
		var protocol *registry.ProtocolConfig
		if cfg, ok := reg.Networks().ProtocolConfig(chainID); ok {
			protocol = &cfg
		}
		reg.Networks().Register(meta, protocol)
	}
	return reg, nil
}
