package transfer

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"bridgerail/internal/registry"
	"bridgerail/internal/wallet"
)

// burnSignature is the fixed source-chain entry point. Parameter order:
// amount, destination domain, mint recipient, burn token, destination
// caller, max fee, min finality threshold.
const burnSignature = "depositForBurn(uint256,uint32,bytes32,address,bytes32,uint256,uint32)"

const (
	fastFinalityThreshold     = uint32(1000)
	standardFinalityThreshold = uint32(2000)

	// fastFeeBps caps the fast-path fee at one basis point of the amount.
	fastFeeBps = 1
)

// zeroBytes32 as destination caller means anyone may execute the mint.
const zeroBytes32 = "0x0000000000000000000000000000000000000000000000000000000000000000"

// BurnExecutor submits the source-chain burn through the wallet-execution
// collaborator.
type BurnExecutor struct {
	registry *registry.Registry
	wallet   wallet.Client
	walletID string
}

func NewBurnExecutor(reg *registry.Registry, w wallet.Client, walletID string) *BurnExecutor {
	return &BurnExecutor{registry: reg, wallet: w, walletID: walletID}
}

// Burn resolves both chains, encodes the burn call, and submits it. The
// caller's idempotency key rides along so a retried submission cannot burn
// twice. The returned tx hash must be persisted before anything else
// happens: losing it strands the burned funds.
func (b *BurnExecutor) Burn(ctx context.Context, req Request) (string, error) {
	source, err := b.registry.Lookup(req.SourceChain)
	if err != nil {
		return "", wrapRegistryError(err)
	}
	dest, err := b.registry.Lookup(req.DestinationChain)
	if err != nil {
		return "", wrapRegistryError(err)
	}

	recipient, err := PadRecipient(req.DestinationAddress)
	if err != nil {
		return "", newError(KindInvalidRequest, "destination address: %v", err)
	}

	finality := standardFinalityThreshold
	maxFee := big.NewInt(0)
	if req.UseFastPath {
		finality = fastFinalityThreshold
		maxFee = fastPathFee(req.Amount)
	}

	resp, err := b.wallet.Execute(ctx, wallet.ExecuteRequest{
		WalletID:          b.walletID,
		ContractAddress:   source.BurnContract.Hex(),
		FunctionSignature: burnSignature,
		Parameters: []any{
			req.Amount.String(),
			dest.DomainID,
			recipient,
			source.StableToken.Hex(),
			zeroBytes32,
			maxFee.String(),
			finality,
		},
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return "", newError(KindBurnFailed, "burn on %s: %v", req.SourceChain, err)
	}
	return resp.TxHash, nil
}

// PadRecipient rewrites a chain address into the oracle's 32-byte recipient
// form: strip any 0x prefix, lowercase, left-pad with zeros to 64 hex chars.
func PadRecipient(address string) (string, error) {
	hexPart := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))
	if hexPart == "" {
		return "", fmt.Errorf("empty address")
	}
	if len(hexPart) > 64 {
		return "", fmt.Errorf("address %q longer than 32 bytes", address)
	}
	for _, c := range hexPart {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("address %q is not hex", address)
		}
	}
	return "0x" + strings.Repeat("0", 64-len(hexPart)) + hexPart, nil
}

func fastPathFee(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, big.NewInt(fastFeeBps))
	fee.Div(fee, big.NewInt(10000))
	if fee.Sign() == 0 {
		fee.SetInt64(1)
	}
	return fee
}
