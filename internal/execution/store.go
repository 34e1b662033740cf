package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store persists trade records in a local sqlite database. A flock
// advisory lock guards writes so concurrent agent processes sharing a
// home directory do not interleave.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// TokenStats is the per-token aggregate the trust scorer reads.
type TokenStats struct {
	ChainID     int64
	Token       string
	Confirmed   int64
	Failed      int64
	VolumeUSD   float64
	LastTradeAt string
}

func OpenStore(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trade store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create trade lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trade sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			chain_id INTEGER NOT NULL,
			token_out TEXT NOT NULL,
			value_usd REAL NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_trades_status_updated ON trades(status, updated_at DESC);",
		"CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(chain_id, token_out);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init trade schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(trade Trade) error {
	if strings.TrimSpace(trade.TradeID) == "" {
		return fmt.Errorf("save trade: missing trade id")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock trade store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock trade store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	createdUnix, _ := parseRFC3339Unix(trade.CreatedAt)
	updatedUnix, _ := parseRFC3339Unix(trade.UpdatedAt)
	if createdUnix == 0 {
		createdUnix = time.Now().UTC().Unix()
	}
	if updatedUnix == 0 {
		updatedUnix = time.Now().UTC().Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO trades (trade_id, kind, status, chain_id, token_out, value_usd, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			kind=excluded.kind,
			status=excluded.status,
			chain_id=excluded.chain_id,
			token_out=excluded.token_out,
			value_usd=excluded.value_usd,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, trade.TradeID, trade.Kind, trade.Status, trade.ChainID, strings.ToUpper(strings.TrimSpace(trade.TokenOut)), trade.ValueUSD, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

func (s *Store) Get(tradeID string) (Trade, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM trades WHERE trade_id = ?", tradeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Trade{}, fmt.Errorf("trade not found: %s", tradeID)
		}
		return Trade{}, fmt.Errorf("read trade: %w", err)
	}
	var trade Trade
	if err := json.Unmarshal(payload, &trade); err != nil {
		return Trade{}, fmt.Errorf("decode trade payload: %w", err)
	}
	return trade, nil
}

func (s *Store) List(status string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(status) == "" {
		rows, err = s.db.Query("SELECT payload FROM trades ORDER BY updated_at DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM trades WHERE status = ? ORDER BY updated_at DESC LIMIT ?", status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	trades := make([]Trade, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		var trade Trade
		if err := json.Unmarshal(payload, &trade); err != nil {
			return nil, fmt.Errorf("decode trade row: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

// Stats aggregates confirmed and failed trades for one output token.
func (s *Store) Stats(chainID int64, token string) (TokenStats, error) {
	stats := TokenStats{ChainID: chainID, Token: strings.ToUpper(strings.TrimSpace(token))}
	var lastUnix sql.NullInt64
	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN value_usd ELSE 0 END), 0),
			MAX(updated_at)
		FROM trades WHERE chain_id = ? AND token_out = ?
	`, TradeStatusConfirmed, TradeStatusFailed, TradeStatusConfirmed, chainID, stats.Token).
		Scan(&stats.Confirmed, &stats.Failed, &stats.VolumeUSD, &lastUnix)
	if err != nil {
		return TokenStats{}, fmt.Errorf("aggregate trades: %w", err)
	}
	if lastUnix.Valid {
		stats.LastTradeAt = time.Unix(lastUnix.Int64, 0).UTC().Format(time.RFC3339)
	}
	return stats, nil
}

func parseRFC3339Unix(v string) (int64, bool) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), true
}
