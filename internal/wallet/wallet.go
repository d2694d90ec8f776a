package wallet

import (
	"context"
)

// Client abstracts the wallet-execution collaborator: the service holding
// key custody that submits contract calls on the user's behalf. Both the
// custodial provider API and the direct signer satisfy it.
type Client interface {
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error)
}

// HealthChecker is implemented by clients that can probe their backend.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ExecuteRequest is a single contract call. Parameters are positional and
// already encoded in the provider's wire form (decimal strings for integers,
// 0x-hex for byte payloads and addresses).
type ExecuteRequest struct {
	WalletID          string
	ContractAddress   string
	FunctionSignature string
	Parameters        []any

	// IdempotencyKey deduplicates retried submissions on the provider side.
	// Empty means no deduplication.
	IdempotencyKey string
}

type ExecuteResponse struct {
	TxHash string
}
