package transfer

import (
	"context"

	"bridgerail/internal/registry"
	"bridgerail/internal/wallet"
)

// mintSignature replays the oracle message plus its attestation on the
// destination chain.
const mintSignature = "receiveMessage(bytes,bytes)"

// MintExecutor submits the destination-chain mint. The destination contract
// rejects replays of an already-minted message, so retrying here is safe
// without any extra idempotency key.
type MintExecutor struct {
	registry *registry.Registry
	wallet   wallet.Client
	walletID string
}

func NewMintExecutor(reg *registry.Registry, w wallet.Client, walletID string) *MintExecutor {
	return &MintExecutor{registry: reg, wallet: w, walletID: walletID}
}

func (m *MintExecutor) Mint(ctx context.Context, destinationChain, messageHex, attestationHex string) (string, error) {
	if messageHex == "" || attestationHex == "" {
		return "", newError(KindInvalidRequest, "mint requires message and attestation")
	}

	dest, err := m.registry.Lookup(destinationChain)
	if err != nil {
		return "", wrapRegistryError(err)
	}

	resp, err := m.wallet.Execute(ctx, wallet.ExecuteRequest{
		WalletID:          m.walletID,
		ContractAddress:   dest.MintContract.Hex(),
		FunctionSignature: mintSignature,
		Parameters:        []any{messageHex, attestationHex},
	})
	if err != nil {
		return "", newError(KindMintFailed, "mint on %s: %v", destinationChain, err)
	}
	return resp.TxHash, nil
}
