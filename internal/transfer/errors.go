package transfer

import (
	"context"
	"errors"
	"fmt"

	"bridgerail/internal/attestation"
	"bridgerail/internal/registry"
)

// Kind classifies transfer failures so callers can branch without string
// matching.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid_request"
	KindUnsupportedChain    Kind = "unsupported_chain"
	KindContractsUndeployed Kind = "contracts_not_deployed"
	KindBurnFailed          Kind = "burn_failed"
	KindAttestationTimeout  Kind = "attestation_timeout"
	KindMintFailed          Kind = "mint_failed"
	KindCancelled           Kind = "cancelled"
)

// Error wraps a failure with its taxonomy kind. The underlying cause is
// preserved for errors.Is / errors.As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// wrapRegistryError maps registry sentinels onto transfer kinds.
func wrapRegistryError(err error) *Error {
	switch {
	case errors.Is(err, registry.ErrUnsupportedChain):
		return &Error{Kind: KindUnsupportedChain, Err: err}
	case errors.Is(err, registry.ErrContractsNotDeployed):
		return &Error{Kind: KindContractsUndeployed, Err: err}
	default:
		return &Error{Kind: KindInvalidRequest, Err: err}
	}
}

// wrapPollError distinguishes a spent attempt budget from an external
// cancellation; both leave the burn intact and resumable.
func wrapPollError(err error) *Error {
	switch {
	case errors.Is(err, attestation.ErrTimeout):
		return &Error{Kind: KindAttestationTimeout, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindCancelled, Err: err}
	default:
		return &Error{Kind: KindAttestationTimeout, Err: err}
	}
}

// KindOf extracts the taxonomy kind, or "" for foreign errors.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
