package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bridgerail/internal/transfer"
)

// Resumer is the scheduler for the slow tail of each transfer: it sweeps the
// store for transfers stuck in attesting or minting and drives them through
// ContinueTransfer. StartTransfer returns right after the burn; without this
// loop nothing would ever finish unless a caller hit /continue by hand.
type Resumer struct {
	orchestrator Orchestrator
	store        transfer.Store
	interval     time.Duration
	batchSize    int
	log          *logrus.Logger
	metrics      *metricsRegistry
}

func NewResumer(orch Orchestrator, store transfer.Store, interval time.Duration, batchSize int, log *logrus.Logger) *Resumer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if log == nil {
		log = logrus.New()
	}
	return &Resumer{
		orchestrator: orch,
		store:        store,
		interval:     interval,
		batchSize:    batchSize,
		log:          log,
	}
}

// attach lets the server share its metrics registry with the resumer.
func (r *Resumer) attach(m *metricsRegistry) { r.metrics = m }

// Run blocks until ctx is cancelled.
func (r *Resumer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Resumer) sweep(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.incResumerRun()
	}

	states, err := r.store.ListResumable(ctx, r.batchSize)
	if err != nil {
		r.log.WithError(err).Warn("resumer: list transfers failed")
		return
	}
	if r.metrics != nil {
		r.metrics.setPending(len(states))
	}

	for _, state := range states {
		if ctx.Err() != nil {
			return
		}
		done, err := r.orchestrator.ContinueTransfer(ctx, state)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"transfer": state.ID,
				"kind":     string(transfer.KindOf(err)),
			}).WithError(err).Warn("resumer: continue failed, will retry next sweep")
			if r.metrics != nil {
				r.metrics.incContinue("failed")
				r.metrics.incFailure(string(transfer.KindOf(err)))
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.incContinue("completed")
		}
		r.log.WithFields(logrus.Fields{
			"transfer": done.ID,
			"mintTx":   done.MintTxHash,
		}).Info("resumer: transfer completed")
	}
}

// AttachResumer shares the server's metrics registry with the resumer.
func (s *Server) AttachResumer(r *Resumer) { r.attach(s.metrics) }
