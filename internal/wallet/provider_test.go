package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProviderClientExecute(t *testing.T) {
	var got executePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transactions/contractExecution" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_ = json.NewEncoder(w).Encode(executeResult{Success: true, TransactionHash: "0xabc"})
	}))
	defer srv.Close()

	client, err := NewProviderClient(ProviderConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Execute(context.Background(), ExecuteRequest{
		WalletID:          "wallet-1",
		ContractAddress:   "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
		FunctionSignature: "depositForBurn(uint256,uint32,bytes32,address,bytes32,uint256,uint32)",
		Parameters:        []any{"100000", uint32(6)},
		IdempotencyKey:    "idem-1",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.TxHash != "0xabc" {
		t.Fatalf("unexpected tx hash %s", resp.TxHash)
	}
	if got.IdempotencyKey != "idem-1" {
		t.Fatalf("idempotency key not forwarded: %q", got.IdempotencyKey)
	}
	if got.WalletID != "wallet-1" {
		t.Fatalf("wallet id not forwarded: %q", got.WalletID)
	}
}

func TestProviderClientRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(executeResult{Success: false, Error: "approval denied"})
	}))
	defer srv.Close()

	client, err := NewProviderClient(ProviderConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Execute(context.Background(), ExecuteRequest{
		WalletID:        "wallet-1",
		ContractAddress: "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
	})
	if err == nil || !strings.Contains(err.Error(), "approval denied") {
		t.Fatalf("expected rejection with provider message, got %v", err)
	}
}

func TestFakeClientDeterministic(t *testing.T) {
	req := ExecuteRequest{
		ContractAddress:   "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
		FunctionSignature: "receiveMessage(bytes,bytes)",
		Parameters:        []any{"0x01", "0x02"},
	}
	a, err := FakeClient{}.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	b, _ := FakeClient{}.Execute(context.Background(), req)
	if a.TxHash != b.TxHash {
		t.Fatalf("expected deterministic hash, got %s vs %s", a.TxHash, b.TxHash)
	}
	if !strings.HasPrefix(a.TxHash, "0x") || len(a.TxHash) != 66 {
		t.Fatalf("unexpected hash format %s", a.TxHash)
	}
}

func TestConvertParam(t *testing.T) {
	if _, err := convertParam("uint256", "not-a-number"); err == nil {
		t.Fatal("expected invalid uint256 to fail")
	}

	n, err := convertParam("uint256", "1000000")
	if err != nil {
		t.Fatalf("uint256: %v", err)
	}
	if n.(interface{ String() string }).String() != "1000000" {
		t.Fatalf("unexpected uint256 %v", n)
	}

	d, err := convertParam("uint32", uint32(2000))
	if err != nil || d.(uint32) != 2000 {
		t.Fatalf("uint32: %v %v", d, err)
	}

	b, err := convertParam("bytes32", "0x"+strings.Repeat("00", 31)+"11")
	if err != nil {
		t.Fatalf("bytes32: %v", err)
	}
	if b.([32]byte)[31] != 0x11 {
		t.Fatalf("unexpected bytes32 %v", b)
	}

	if _, err := convertParam("bytes32", "0x1234"); err == nil {
		t.Fatal("expected short bytes32 to fail")
	}
}
