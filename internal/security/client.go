package security

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/httpx"
	"github.com/larivera/evm-agent/internal/model"
)

// Endpoints configures the three upstream data sources a report draws
// from. Empty fields fall back to the public defaults.
type Endpoints struct {
	ExplorerURL string
	HoldersURL  string
	DexURL      string
	ExplorerKey string
}

const (
	defaultExplorerURL = "https://api.etherscan.io/v2/api"
	defaultHoldersURL  = "https://api.chainbase.online/v1"
	defaultDexURL      = "https://api.dexscreener.com/latest/dex"
)

// Service assembles token security reports from independent upstream
// sources. Each source is queried concurrently; a failure in one does
// not cancel the others, but any failure fails the report as a whole.
type Service struct {
	http      *httpx.Client
	endpoints Endpoints
	log       *zap.Logger
	now       func() time.Time
}

func NewService(http *httpx.Client, endpoints Endpoints, log *zap.Logger) *Service {
	if endpoints.ExplorerURL == "" {
		endpoints.ExplorerURL = defaultExplorerURL
	}
	if endpoints.HoldersURL == "" {
		endpoints.HoldersURL = defaultHoldersURL
	}
	if endpoints.DexURL == "" {
		endpoints.DexURL = defaultDexURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{http: http, endpoints: endpoints, log: log, now: time.Now}
}

func (s *Service) Report(ctx context.Context, chainID int64, address string) (model.TokenReport, error) {
	if !common.IsHexAddress(strings.TrimSpace(address)) {
		return model.TokenReport{}, clierr.New(clierr.CodeUsage, "invalid token contract address")
	}
	addr := common.HexToAddress(address).Hex()

	var (
		wg      sync.WaitGroup
		info    model.ContractInfo
		holders model.HolderDistribution
		dex     model.DexStats
		errs    = make([]error, 3)
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		info, errs[0] = s.contractInfo(ctx, chainID, addr)
	}()
	go func() {
		defer wg.Done()
		holders, errs[1] = s.holderDistribution(ctx, chainID, addr)
	}()
	go func() {
		defer wg.Done()
		dex, errs[2] = s.dexStats(ctx, addr)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return model.TokenReport{}, err
		}
	}
	return model.TokenReport{
		ChainID:      chainID,
		Address:      addr,
		ContractInfo: info,
		Holders:      holders,
		DexStats:     dex,
		FetchedAt:    s.now().UTC().Format(time.RFC3339),
	}, nil
}

func (s *Service) contractInfo(ctx context.Context, chainID int64, address string) (model.ContractInfo, error) {
	endpoint := fmt.Sprintf("%s?chainid=%d&module=contract&action=getsourcecode&address=%s",
		s.endpoints.ExplorerURL, chainID, address)
	if s.endpoints.ExplorerKey != "" {
		endpoint += "&apikey=" + s.endpoints.ExplorerKey
	}

	var payload struct {
		Status string `json:"status"`
		Result []struct {
			ContractName string `json:"ContractName"`
			SourceCode   string `json:"SourceCode"`
		} `json:"result"`
	}
	if err := s.http.GetJSON(ctx, endpoint, nil, &payload); err != nil {
		return model.ContractInfo{}, clierr.Wrap(clierr.CodeUnavailable, "fetch contract info", err)
	}
	if payload.Status != "1" || len(payload.Result) == 0 {
		return model.ContractInfo{}, clierr.New(clierr.CodeUnavailable, "explorer returned no contract data")
	}
	entry := payload.Result[0]
	return model.ContractInfo{
		Name:     entry.ContractName,
		Verified: strings.TrimSpace(entry.SourceCode) != "",
	}, nil
}

func (s *Service) holderDistribution(ctx context.Context, chainID int64, address string) (model.HolderDistribution, error) {
	endpoint := fmt.Sprintf("%s/token/holders?chain_id=%d&contract_address=%s&limit=10",
		s.endpoints.HoldersURL, chainID, address)

	var payload struct {
		Count   int64 `json:"count"`
		Holders []struct {
			SharePct float64 `json:"share_pct"`
		} `json:"data"`
	}
	if err := s.http.GetJSON(ctx, endpoint, nil, &payload); err != nil {
		return model.HolderDistribution{}, clierr.Wrap(clierr.CodeUnavailable, "fetch holder distribution", err)
	}
	var top10 float64
	for i, holder := range payload.Holders {
		if i >= 10 {
			break
		}
		top10 += holder.SharePct
	}
	return model.HolderDistribution{HolderCount: payload.Count, Top10SharePct: top10}, nil
}

func (s *Service) dexStats(ctx context.Context, address string) (model.DexStats, error) {
	endpoint := fmt.Sprintf("%s/tokens/%s", s.endpoints.DexURL, address)

	var payload struct {
		Pairs []struct {
			Liquidity struct {
				USD float64 `json:"usd"`
			} `json:"liquidity"`
			Volume struct {
				H24 float64 `json:"h24"`
			} `json:"volume"`
			PriceUSD string `json:"priceUsd"`
		} `json:"pairs"`
	}
	if err := s.http.GetJSON(ctx, endpoint, nil, &payload); err != nil {
		return model.DexStats{}, clierr.Wrap(clierr.CodeUnavailable, "fetch dex stats", err)
	}
	if len(payload.Pairs) == 0 {
		return model.DexStats{}, clierr.New(clierr.CodeUnknownToken, "token has no indexed dex pairs")
	}

	// Deepest pool wins; thin pools quote misleading prices.
	var stats model.DexStats
	for _, pair := range payload.Pairs {
		stats.LiquidityUSD += pair.Liquidity.USD
		stats.Volume24hUSD += pair.Volume.H24
	}
	best := payload.Pairs[0]
	for _, pair := range payload.Pairs[1:] {
		if pair.Liquidity.USD > best.Liquidity.USD {
			best = pair
		}
	}
	if price, err := strconv.ParseFloat(strings.TrimSpace(best.PriceUSD), 64); err == nil {
		stats.PriceUSD = price
	}
	return stats, nil
}
