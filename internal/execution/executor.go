package execution

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/larivera/evm-agent/internal/chain"
	clierr "github.com/larivera/evm-agent/internal/errors"
	"github.com/larivera/evm-agent/internal/model"
	"github.com/larivera/evm-agent/internal/signer"
)

// DefaultConfirmations is the minimum depth a receipt must reach
// before its status is trusted.
const DefaultConfirmations = 2

type Options struct {
	Simulate      bool
	Confirmations uint64
	PollInterval  time.Duration
	WaitTimeout   time.Duration
	GasMultiplier float64
}

func DefaultOptions() Options {
	return Options{
		Simulate:      true,
		Confirmations: DefaultConfirmations,
		PollInterval:  2 * time.Second,
		WaitTimeout:   2 * time.Minute,
		GasMultiplier: 1.2,
	}
}

// Executor signs and submits prepared transactions and monitors their
// finality.
type Executor struct {
	log *zap.Logger
}

func NewExecutor(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{log: log}
}

// Submit signs and broadcasts a prepared transaction, returning its
// hash. It does not wait for confirmations; callers follow up with
// WaitConfirmed.
func (e *Executor) Submit(ctx context.Context, backend chain.Backend, txSigner signer.Signer, prepared model.PreparedTransaction, opts Options) (common.Hash, error) {
	if txSigner == nil {
		return common.Hash{}, clierr.New(clierr.CodeSigner, "missing signer")
	}
	if !common.IsHexAddress(strings.TrimSpace(prepared.To)) {
		return common.Hash{}, clierr.New(clierr.CodeUsage, "prepared transaction has invalid target")
	}
	if opts.GasMultiplier <= 1 {
		opts.GasMultiplier = 1.2
	}

	target := common.HexToAddress(prepared.To)
	data, err := decodeHex(prepared.Data)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUsage, "decode calldata", err)
	}
	value := big.NewInt(0)
	if strings.TrimSpace(prepared.Value) != "" {
		value, err = parseValue(prepared.Value)
		if err != nil {
			return common.Hash{}, err
		}
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	msg := ethereum.CallMsg{From: txSigner.Address(), To: &target, Value: value, Data: data}

	if opts.Simulate {
		if _, err := backend.CallContract(ctx, msg, nil); err != nil {
			return common.Hash{}, clierr.Wrap(clierr.CodeTxFailed, "simulate transaction (eth_call)", err)
		}
	}

	gasLimit, err := backend.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * opts.GasMultiplier)

	tipCap, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
	}
	header, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := backend.PendingNonceAt(ctx, txSigner.Address())
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &target,
		Value:     value,
		Data:      data,
	})
	signed, err := txSigner.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	e.log.Info("transaction broadcast",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit))
	return signed.Hash(), nil
}

// WaitConfirmed blocks until the transaction has the requested number
// of confirmations, then evaluates the receipt status. A non-success
// status is terminal; the call never retries the transaction and any
// timeout is surfaced to the caller as-is.
func (e *Executor) WaitConfirmed(ctx context.Context, backend chain.Backend, txHash common.Hash, opts Options) (common.Hash, error) {
	if opts.Confirmations == 0 {
		opts.Confirmations = DefaultConfirmations
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 2 * time.Minute
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.WaitTimeout)
	defer cancel()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil && receipt.BlockNumber != nil {
			head, headErr := backend.BlockNumber(waitCtx)
			// A lagging or load-balanced endpoint can report a head behind
			// the inclusion block; keep polling rather than underflow.
			if headErr == nil && head >= receipt.BlockNumber.Uint64() {
				depth := head - receipt.BlockNumber.Uint64() + 1
				if depth >= opts.Confirmations {
					if receipt.Status != types.ReceiptStatusSuccessful {
						return common.Hash{}, clierr.New(clierr.CodeTxFailed, fmt.Sprintf("transaction reverted on-chain (status %d)", receipt.Status))
					}
					e.log.Info("transaction confirmed",
						zap.String("tx_hash", txHash.Hex()),
						zap.Uint64("confirmations", depth))
					return txHash, nil
				}
			}
		}
		select {
		case <-waitCtx.Done():
			return common.Hash{}, clierr.Wrap(clierr.CodeTimeout, "timed out waiting for confirmations", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func parseValue(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() < 0 {
		return nil, clierr.New(clierr.CodeUsage, "invalid transaction value")
	}
	return value, nil
}

func decodeHex(v string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(v), "0x")
	if clean == "" {
		return []byte{}, nil
	}
	if len(clean)%2 != 0 {
		clean = "0" + clean
	}
	buf, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}
