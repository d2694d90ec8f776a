package transfer

import (
	"math/big"
	"time"
)

// Phase tracks where a transfer sits in the burn → attest → mint pipeline.
// Transitions are monotonic; failed is terminal for the attempt but keeps
// every field already obtained so the transfer can be resumed.
type Phase string

const (
	PhaseBurning   Phase = "burning"
	PhaseAttesting Phase = "attesting"
	PhaseMinting   Phase = "minting"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Request is the caller-supplied, immutable description of one transfer.
// Amount is denominated in the stable token's smallest unit.
type Request struct {
	SourceChain        string
	DestinationChain   string
	Amount             *big.Int
	DestinationAddress string
	IdempotencyKey     string
	UseFastPath        bool
}

// State is the mutable per-transfer record the orchestrator owns. It is
// persisted after every phase transition so `ContinueTransfer` can pick a
// transfer back up after a crash or a deliberate out-of-band hand-off.
type State struct {
	ID                 string    `json:"id"`
	SourceChain        string    `json:"sourceChain"`
	DestinationChain   string    `json:"destinationChain"`
	Amount             *big.Int  `json:"amount"`
	DestinationAddress string    `json:"destinationAddress"`
	IdempotencyKey     string    `json:"idempotencyKey"`
	UseFastPath        bool      `json:"useFastPath"`
	Phase              Phase     `json:"phase"`
	BurnTxHash         string    `json:"burnTxHash,omitempty"`
	MessageHex         string    `json:"messageHex,omitempty"`
	Attestation        string    `json:"attestation,omitempty"`
	MintTxHash         string    `json:"mintTxHash,omitempty"`
	LastError          string    `json:"lastError,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so stores and callers never alias the
// orchestrator's working state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Amount != nil {
		out.Amount = new(big.Int).Set(s.Amount)
	}
	return &out
}

// Resumable reports whether the background sweep should pick the transfer
// up: there is a burn waiting on attestation or mint. Failed states keep
// their fields and can still be re-driven through the continue endpoint,
// but the sweep leaves them alone so a permanently broken transfer does
// not get retried on every tick.
func (s *State) Resumable() bool {
	if s.BurnTxHash == "" {
		return false
	}
	return s.Phase == PhaseAttesting || s.Phase == PhaseMinting
}
