package attestation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTimeout means the attempt budget ran out before the oracle signed.
// The burn is still valid; polling can be resumed with the same tx hash.
var ErrTimeout = errors.New("attestation polling timed out")

// DefaultMaxAttempts bounds one polling run. With the backoff curve below
// this covers roughly ten minutes, comfortably past typical finality.
const DefaultMaxAttempts = 60

const (
	baseDelay = 1000 * time.Millisecond
	maxDelay  = 10000 * time.Millisecond
)

// Backoff returns the delay before attempt n (0-indexed):
// min(1000ms × 1.5^n, 10s).
func Backoff(attempt int) time.Duration {
	d := time.Duration(float64(baseDelay) * math.Pow(1.5, float64(attempt)))
	if d > maxDelay || d < 0 {
		return maxDelay
	}
	return d
}

// Oracle is the slice of the oracle client the poller needs.
type Oracle interface {
	Messages(ctx context.Context, sourceDomain uint32, burnTxHash string) ([]Message, error)
}

// Result is a signed attestation ready to be replayed on the destination
// chain.
type Result struct {
	Message     string
	Attestation string
}

// Poller repeatedly queries the oracle until an attestation is signed or the
// attempt budget runs out. 404s and pending statuses are the expected common
// case during finality, not errors; transient oracle failures are logged and
// retried the same way.
type Poller struct {
	oracle      Oracle
	maxAttempts int
	log         *logrus.Logger

	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(oracle Oracle, maxAttempts int, log *logrus.Logger) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logrus.New()
	}
	return &Poller{
		oracle:      oracle,
		maxAttempts: maxAttempts,
		log:         log,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll blocks until the oracle reports a complete attestation for the burn,
// the context is cancelled, or maxAttempts queries have come back empty.
func (p *Poller) Poll(ctx context.Context, sourceDomain uint32, burnTxHash string) (Result, error) {
	if burnTxHash == "" {
		return Result{}, fmt.Errorf("burn tx hash is required")
	}

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		// The delay precedes the query: the burn needs finality before the
		// oracle will even index it, so polling immediately is wasted load.
		if err := p.sleep(ctx, Backoff(attempt)); err != nil {
			return Result{}, fmt.Errorf("polling cancelled: %w", err)
		}

		msgs, err := p.oracle.Messages(ctx, sourceDomain, burnTxHash)
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Result{}, fmt.Errorf("polling cancelled: %w", err)
		case err != nil:
			p.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"domain":  sourceDomain,
				"txHash":  burnTxHash,
			}).WithError(err).Warn("attestation query failed, retrying")
			continue
		}

		for _, msg := range msgs {
			if msg.Status == StatusComplete && msg.Message != "" && msg.Attestation != "" {
				p.log.WithFields(logrus.Fields{
					"attempt": attempt,
					"domain":  sourceDomain,
					"txHash":  burnTxHash,
				}).Info("attestation received")
				return Result{Message: msg.Message, Attestation: msg.Attestation}, nil
			}
		}
	}

	return Result{}, fmt.Errorf("no attestation after %d attempts for %s: %w", p.maxAttempts, burnTxHash, ErrTimeout)
}
