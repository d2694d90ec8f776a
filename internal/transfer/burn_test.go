package transfer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"bridgerail/internal/registry"
	"bridgerail/internal/wallet"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(map[string]registry.EntryConfig{
		"sonic": {
			BurnContract: "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
			MintContract: "0xAD09780d193884d503182aD4588450C416D6F9D4",
			StableToken:  "0x29219dd400f2Bf60E5a23d13Be72B486D4038894",
			DomainID:     26,
		},
		"base": {
			BurnContract: "0x28b5a0e9C621a5BadaA536219b3a228C8168cf5d",
			MintContract: "0x81D40F21F12A8F0E3252Bccb954D722d4c464B64",
			StableToken:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			DomainID:     6,
		},
		"paused": {
			MintContract: "0xAD09780d193884d503182aD4588450C416D6F9D5",
			StableToken:  "0x29219dd400f2Bf60E5a23d13Be72B486D4038895",
			DomainID:     99,
		},
	})
	if err != nil {
		t.Fatalf("test registry: %v", err)
	}
	return reg
}

type recordingWallet struct {
	calls  []wallet.ExecuteRequest
	txHash string
	err    error
}

func (w *recordingWallet) Execute(_ context.Context, req wallet.ExecuteRequest) (wallet.ExecuteResponse, error) {
	w.calls = append(w.calls, req)
	if w.err != nil {
		return wallet.ExecuteResponse{}, w.err
	}
	hash := w.txHash
	if hash == "" {
		hash = "0xburn"
	}
	return wallet.ExecuteResponse{TxHash: hash}, nil
}

func standardRequest() Request {
	return Request{
		SourceChain:        "sonic",
		DestinationChain:   "base",
		Amount:             big.NewInt(100000), // 0.1 token in 6-decimal units
		DestinationAddress: "0x1111111111111111111111111111111111111111",
		IdempotencyKey:     "idem-1",
	}
}

func TestBurnStandardPath(t *testing.T) {
	w := &recordingWallet{txHash: "0xdeadbeef"}
	b := NewBurnExecutor(testRegistry(t), w, "wallet-1")

	txHash, err := b.Burn(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if txHash != "0xdeadbeef" {
		t.Fatalf("unexpected tx hash %s", txHash)
	}
	if len(w.calls) != 1 {
		t.Fatalf("expected 1 execute call got %d", len(w.calls))
	}

	call := w.calls[0]
	if call.FunctionSignature != burnSignature {
		t.Fatalf("unexpected signature %s", call.FunctionSignature)
	}
	if call.ContractAddress != "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962" {
		t.Fatalf("burn sent to wrong contract %s", call.ContractAddress)
	}
	if call.IdempotencyKey != "idem-1" {
		t.Fatalf("idempotency key not forwarded: %q", call.IdempotencyKey)
	}
	if len(call.Parameters) != 7 {
		t.Fatalf("expected 7 parameters got %d", len(call.Parameters))
	}
	if call.Parameters[0] != "100000" {
		t.Fatalf("unexpected amount %v", call.Parameters[0])
	}
	if call.Parameters[1] != uint32(6) {
		t.Fatalf("unexpected destination domain %v", call.Parameters[1])
	}
	recipient := call.Parameters[2].(string)
	want := "0x" + strings.Repeat("0", 24) + strings.Repeat("1", 40)
	if recipient != want {
		t.Fatalf("unexpected recipient %s", recipient)
	}
	if len(recipient) != 66 {
		t.Fatalf("recipient must be 32 bytes of hex, got len %d", len(recipient))
	}
	if call.Parameters[4] != zeroBytes32 {
		t.Fatalf("destination caller must be unrestricted, got %v", call.Parameters[4])
	}
	if call.Parameters[5] != "0" {
		t.Fatalf("standard path maxFee must be 0, got %v", call.Parameters[5])
	}
	if call.Parameters[6] != uint32(2000) {
		t.Fatalf("standard path finality must be 2000, got %v", call.Parameters[6])
	}
}

func TestBurnFastPath(t *testing.T) {
	w := &recordingWallet{}
	b := NewBurnExecutor(testRegistry(t), w, "wallet-1")

	req := standardRequest()
	req.UseFastPath = true
	if _, err := b.Burn(context.Background(), req); err != nil {
		t.Fatalf("burn: %v", err)
	}

	call := w.calls[0]
	if call.Parameters[6] != uint32(1000) {
		t.Fatalf("fast path finality must be 1000, got %v", call.Parameters[6])
	}
	if call.Parameters[5] == "0" {
		t.Fatal("fast path must carry a non-zero fee cap")
	}
	if call.Parameters[5] != "10" { // 1bp of 100000
		t.Fatalf("unexpected fast path fee %v", call.Parameters[5])
	}
}

func TestBurnUnsupportedChain(t *testing.T) {
	w := &recordingWallet{}
	b := NewBurnExecutor(testRegistry(t), w, "wallet-1")

	req := standardRequest()
	req.SourceChain = "unknown"
	_, err := b.Burn(context.Background(), req)
	if KindOf(err) != KindUnsupportedChain {
		t.Fatalf("expected unsupported chain got %v", err)
	}
	if len(w.calls) != 0 {
		t.Fatal("registry failures must not reach the wallet provider")
	}
}

func TestBurnUndeployedChain(t *testing.T) {
	w := &recordingWallet{}
	b := NewBurnExecutor(testRegistry(t), w, "wallet-1")

	req := standardRequest()
	req.DestinationChain = "paused"
	_, err := b.Burn(context.Background(), req)
	if KindOf(err) != KindContractsUndeployed {
		t.Fatalf("expected contracts-not-deployed got %v", err)
	}
	if len(w.calls) != 0 {
		t.Fatal("registry failures must not reach the wallet provider")
	}
}

func TestBurnProviderRejection(t *testing.T) {
	w := &recordingWallet{err: errors.New("execution rejected: approval denied")}
	b := NewBurnExecutor(testRegistry(t), w, "wallet-1")

	_, err := b.Burn(context.Background(), standardRequest())
	if KindOf(err) != KindBurnFailed {
		t.Fatalf("expected burn failure got %v", err)
	}
	if !strings.Contains(err.Error(), "approval denied") {
		t.Fatalf("provider message must be preserved, got %v", err)
	}
}

func TestPadRecipient(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{
			in:   "0x1111111111111111111111111111111111111111",
			want: "0x000000000000000000000000" + strings.Repeat("1", 40),
		},
		{
			in:   "0xABCDEF0000000000000000000000000000000001",
			want: "0x000000000000000000000000abcdef0000000000000000000000000000000001",
		},
		{
			in:   "abc",
			want: "0x" + strings.Repeat("0", 61) + "abc",
		},
		{in: "", wantErr: true},
		{in: "0xzz11", wantErr: true},
		{in: "0x" + strings.Repeat("1", 65), wantErr: true},
	}
	for _, tc := range cases {
		got, err := PadRecipient(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("PadRecipient(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("PadRecipient(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("PadRecipient(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
