package transfer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bridgerail/internal/attestation"
	"bridgerail/internal/registry"
)

// Poller is the slice of the attestation poller the orchestrator needs.
type Poller interface {
	Poll(ctx context.Context, sourceDomain uint32, burnTxHash string) (attestation.Result, error)
}

// Orchestrator drives the burn → attest → mint state machine. Each transfer
// is a sequential pipeline; distinct transfers share nothing mutable beyond
// the read-only registry, so concurrent transfers need no locking here.
type Orchestrator struct {
	registry *registry.Registry
	burner   *BurnExecutor
	minter   *MintExecutor
	poller   Poller
	store    Store
	log      *logrus.Logger
}

func NewOrchestrator(reg *registry.Registry, burner *BurnExecutor, minter *MintExecutor, poller Poller, store Store, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{
		registry: reg,
		burner:   burner,
		minter:   minter,
		poller:   poller,
		store:    store,
		log:      log,
	}
}

// StartTransfer validates the request, submits the burn, and returns as soon
// as the burn is accepted. The slow attest+mint tail runs later through
// ContinueTransfer so no caller holds a connection open across finality.
func (o *Orchestrator) StartTransfer(ctx context.Context, req Request) (*State, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state := &State{
		ID:                 uuid.NewString(),
		SourceChain:        req.SourceChain,
		DestinationChain:   req.DestinationChain,
		Amount:             new(big.Int).Set(req.Amount),
		DestinationAddress: req.DestinationAddress,
		IdempotencyKey:     req.IdempotencyKey,
		UseFastPath:        req.UseFastPath,
		Phase:              PhaseBurning,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := o.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("persist transfer: %w", err)
	}

	txHash, err := o.burner.Burn(ctx, req)
	if err != nil {
		return o.failState(ctx, state, err), err
	}

	// The burn is irreversible once mined; the hash must hit the store
	// before this call returns or the transfer cannot be recovered.
	state.BurnTxHash = txHash
	state.Phase = PhaseAttesting
	state.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, state); err != nil {
		return state, fmt.Errorf("persist burn tx %s: %w", txHash, err)
	}

	o.log.WithFields(logrus.Fields{
		"transfer": state.ID,
		"source":   state.SourceChain,
		"dest":     state.DestinationChain,
		"burnTx":   txHash,
	}).Info("burn submitted")
	return state.Clone(), nil
}

// ContinueTransfer runs the attest and mint phases for a transfer whose burn
// already went through. It is resumable: a state that already carries an
// attestation skips straight to minting, and a failed state keeps every
// field it had so a later call picks up where this one stopped.
func (o *Orchestrator) ContinueTransfer(ctx context.Context, input *State) (*State, error) {
	if input == nil || input.BurnTxHash == "" {
		return nil, newError(KindInvalidRequest, "continue requires a state with a burn tx hash")
	}
	// The caller's snapshot may be stale: the resumer and the continue
	// endpoint can race on the same transfer. Completed is terminal, so a
	// concurrent finish wins over whatever the snapshot says.
	if current, err := o.store.Load(ctx, input.ID); err == nil && current.Phase == PhaseCompleted {
		return current, nil
	}
	state := input.Clone()
	if state.Phase == PhaseCompleted {
		return state, nil
	}

	if state.Attestation == "" {
		source, err := o.registry.Lookup(state.SourceChain)
		if err != nil {
			werr := wrapRegistryError(err)
			return o.failState(ctx, state, werr), werr
		}

		result, err := o.poller.Poll(ctx, source.DomainID, state.BurnTxHash)
		if err != nil {
			werr := wrapPollError(err)
			return o.failState(ctx, state, werr), werr
		}
		state.MessageHex = result.Message
		state.Attestation = result.Attestation
	}

	state.Phase = PhaseMinting
	state.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, state); err != nil {
		return state, fmt.Errorf("persist attestation for %s: %w", state.ID, err)
	}

	mintTx, err := o.minter.Mint(ctx, state.DestinationChain, state.MessageHex, state.Attestation)
	if err != nil {
		return o.failState(ctx, state, err), err
	}

	state.MintTxHash = mintTx
	state.Phase = PhaseCompleted
	state.LastError = ""
	state.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, state); err != nil {
		return state, fmt.Errorf("persist completion for %s: %w", state.ID, err)
	}

	o.log.WithFields(logrus.Fields{
		"transfer": state.ID,
		"mintTx":   mintTx,
	}).Info("transfer completed")
	return state, nil
}

// failState freezes the phase at failed without discarding anything already
// obtained; that is what makes the failure resumable. It never downgrades a
// transfer another continue already completed: a mint rejection for an
// already-received message means the money moved, not that it was lost.
func (o *Orchestrator) failState(ctx context.Context, state *State, cause error) *State {
	if current, err := o.store.Load(ctx, state.ID); err == nil && current.Phase == PhaseCompleted {
		return current
	}
	state.Phase = PhaseFailed
	state.LastError = cause.Error()
	state.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, state); err != nil {
		o.log.WithField("transfer", state.ID).WithError(err).Error("failed to persist failure state")
	}
	return state.Clone()
}

func validateRequest(req Request) error {
	if req.SourceChain == "" || req.DestinationChain == "" {
		return newError(KindInvalidRequest, "source and destination chains are required")
	}
	if req.SourceChain == req.DestinationChain {
		return newError(KindInvalidRequest, "source and destination chains must differ")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return newError(KindInvalidRequest, "amount must be positive")
	}
	if req.DestinationAddress == "" {
		return newError(KindInvalidRequest, "destination address is required")
	}
	if req.IdempotencyKey == "" {
		return newError(KindInvalidRequest, "idempotency key is required")
	}
	return nil
}
