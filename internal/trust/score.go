package trust

import (
	"math"
	"strings"

	"go.uber.org/zap"

	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/execution"
	"github.com/larivera/evm-agent/internal/model"
)

// Scorer derives a 0-100 trading trust score for a token from the
// local trade history. The score is advisory; it reflects only what
// this agent has traded, not global market data.
type Scorer struct {
	store *execution.Store
	log   *zap.Logger
}

func NewScorer(store *execution.Store, log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{store: store, log: log}
}

// Score aggregates confirmed and failed trades for the token on one
// chain. A token with no trade history scores zero rather than erroring.
func (s *Scorer) Score(chainID int64, token string) (model.TrustScore, error) {
	symbol := strings.ToUpper(strings.TrimSpace(token))
	if symbol == "" {
		return model.TrustScore{}, clierr.New(clierr.CodeUsage, "missing token symbol")
	}
	stats, err := s.store.Stats(chainID, symbol)
	if err != nil {
		return model.TrustScore{}, clierr.Wrap(clierr.CodeInternal, "read trade history", err)
	}

	score := model.TrustScore{
		ChainID:     chainID,
		Token:       symbol,
		Confirmed:   stats.Confirmed,
		Failed:      stats.Failed,
		VolumeUSD:   stats.VolumeUSD,
		LastTradeAt: stats.LastTradeAt,
		Score:       computeScore(stats.Confirmed, stats.Failed, stats.VolumeUSD),
	}
	s.log.Debug("trust score computed",
		zap.String("token", symbol),
		zap.Int64("chain_id", chainID),
		zap.Float64("score", score.Score))
	return score, nil
}

// computeScore weighs success rate (up to 60 points), trade count
// (up to 20) and confirmed volume (up to 20). Volume uses a log scale
// so a single large trade cannot dominate.
func computeScore(confirmed, failed int64, volumeUSD float64) float64 {
	total := confirmed + failed
	if total == 0 {
		return 0
	}
	successRate := float64(confirmed) / float64(total)
	score := successRate * 60

	countPoints := math.Log1p(float64(confirmed)) / math.Log1p(50) * 20
	if countPoints > 20 {
		countPoints = 20
	}
	score += countPoints

	if volumeUSD > 0 {
		volumePoints := math.Log1p(volumeUSD) / math.Log1p(1_000_000) * 20
		if volumePoints > 20 {
			volumePoints = 20
		}
		score += volumePoints
	}
	rounded := math.Round(score)
	if rounded > 100 {
		rounded = 100
	}
	return rounded
}
