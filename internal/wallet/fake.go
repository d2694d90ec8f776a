package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FakeClient hashes the call payload to deterministically emulate
// transaction hashes in tests and local development.
type FakeClient struct{}

func (FakeClient) Execute(_ context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	if req.ContractAddress == "" {
		return ExecuteResponse{}, fmt.Errorf("missing contract address")
	}
	sum := sha256.New()
	sum.Write([]byte(req.ContractAddress))
	sum.Write([]byte(req.FunctionSignature))
	for _, p := range req.Parameters {
		fmt.Fprintf(sum, "%v", p)
	}
	sum.Write([]byte(req.IdempotencyKey))
	return ExecuteResponse{TxHash: "0x" + hex.EncodeToString(sum.Sum(nil))}, nil
}

func (FakeClient) Ping(context.Context) error { return nil }
