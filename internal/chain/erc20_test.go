package chain

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	calls   []ethereum.CallMsg
	handler func(msg ethereum.CallMsg) ([]byte, error)
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	return f.handler(msg)
}

func (f *fakeCaller) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func packOutputs(t *testing.T, method string, values ...any) []byte {
	t.Helper()
	out, err := erc20ABI.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return out
}

func TestERC20Decimals(t *testing.T) {
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	caller := &fakeCaller{handler: func(msg ethereum.CallMsg) ([]byte, error) {
		if *msg.To != token {
			t.Fatalf("called wrong contract: %s", msg.To)
		}
		return packOutputs(t, "decimals", uint8(6)), nil
	}}

	got, err := ERC20Decimals(context.Background(), caller, token)
	if err != nil {
		t.Fatalf("ERC20Decimals: %v", err)
	}
	if got != 6 {
		t.Fatalf("decimals = %d", got)
	}
	selector := hex.EncodeToString(caller.calls[0].Data[:4])
	if selector != "313ce567" {
		t.Fatalf("unexpected selector %s", selector)
	}
}

func TestERC20BalanceOf(t *testing.T) {
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	owner := common.HexToAddress("0x1234567890123456789012345678901234567890")
	want := big.NewInt(150_000_000)
	caller := &fakeCaller{handler: func(msg ethereum.CallMsg) ([]byte, error) {
		return packOutputs(t, "balanceOf", want), nil
	}}

	got, err := ERC20BalanceOf(context.Background(), caller, token, owner)
	if err != nil {
		t.Fatalf("ERC20BalanceOf: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Fatalf("balance = %s", got)
	}
}

func TestERC20TransferData(t *testing.T) {
	to := common.HexToAddress("0x1234567890123456789012345678901234567890")
	data, err := ERC20TransferData(to, big.NewInt(1_000_000))
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(data[:4]) != "a9059cbb" {
		t.Fatalf("transfer selector mismatch: %x", data[:4])
	}
}

func TestFeedLatestAnswer(t *testing.T) {
	feed := common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	caller := &fakeCaller{handler: func(msg ethereum.CallMsg) ([]byte, error) {
		method, err := feedABI.MethodById(msg.Data[:4])
		if err != nil {
			t.Fatalf("unknown method: %v", err)
		}
		switch method.Name {
		case "latestRoundData":
			return feedABI.Methods["latestRoundData"].Outputs.Pack(
				big.NewInt(1), big.NewInt(2000_0000_0000), big.NewInt(0), big.NewInt(0), big.NewInt(1))
		case "decimals":
			return feedABI.Methods["decimals"].Outputs.Pack(uint8(8))
		}
		t.Fatalf("unexpected method %s", method.Name)
		return nil, nil
	}}

	answer, decimals, err := FeedLatestAnswer(context.Background(), caller, feed)
	if err != nil {
		t.Fatalf("FeedLatestAnswer: %v", err)
	}
	if answer.Int64() != 2000_0000_0000 || decimals != 8 {
		t.Fatalf("answer=%s decimals=%d", answer, decimals)
	}
}
