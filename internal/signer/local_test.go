package signer

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
)

// Throwaway key, do not fund.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testKeyAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewLocalSignerFromHex(t *testing.T) {
	s, err := NewLocalSigner(Config{PrivateKeyHex: testKeyHex})
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}
	if s.Address().Hex() != testKeyAddress {
		t.Fatalf("address = %s", s.Address().Hex())
	}
}

func TestNewLocalSignerFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.hex")
	if err := os.WriteFile(path, []byte("0x"+testKeyHex+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewLocalSigner(Config{PrivateKeyFile: path})
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}
	if s.Address().Hex() != testKeyAddress {
		t.Fatalf("address = %s", s.Address().Hex())
	}
}

func TestSignTxProducesValidSignature(t *testing.T) {
	s, err := NewLocalSigner(Config{PrivateKeyHex: testKeyHex})
	if err != nil {
		t.Fatal(err)
	}
	chainID := big.NewInt(1)
	to := s.Address()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	signed, err := s.SignTx(chainID, tx)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if from != s.Address() {
		t.Fatalf("recovered %s, want %s", from.Hex(), s.Address().Hex())
	}
}

func TestMissingKeyFails(t *testing.T) {
	if _, err := NewLocalSigner(Config{}); err == nil {
		t.Fatal("expected error with no key material")
	}
}
