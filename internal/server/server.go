package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bridgerail/internal/config"
	"bridgerail/internal/hmacauth"
	"bridgerail/internal/idempotency"
	"bridgerail/internal/transfer"
)

// Orchestrator is the slice of the transfer orchestrator the HTTP layer
// needs.
type Orchestrator interface {
	StartTransfer(ctx context.Context, req transfer.Request) (*transfer.State, error)
	ContinueTransfer(ctx context.Context, state *transfer.State) (*transfer.State, error)
}

type Server struct {
	cfg          *config.AppConfig
	orchestrator Orchestrator
	transfers    transfer.Store
	store        idempotency.Store
	hmac         *hmacauth.Verifier
	httpServer   *http.Server
	metrics      *metricsRegistry
	log          *logrus.Logger
	storeHealth  func(context.Context) error
	walletHealth func(context.Context) error
}

type Options struct {
	// WalletHealth probes the wallet-execution backend for /health.
	WalletHealth func(context.Context) error
}

func NewServer(cfg *config.AppConfig, orch Orchestrator, transfers transfer.Store, store idempotency.Store, log *logrus.Logger, opts Options) *Server {
	if log == nil {
		log = logrus.New()
	}

	hmacVerifier := &hmacauth.Verifier{
		Secret:  cfg.Seed.Secrets.HMACSalt,
		MaxSkew: cfg.Service.HMACClockSkew,
	}

	metrics := newMetricsRegistry()

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		transfers:    transfers,
		store:        store,
		hmac:         hmacVerifier,
		metrics:      metrics,
		log:          log,
		walletHealth: opts.WalletHealth,
	}

	if checker, ok := transfers.(interface{ Ping(context.Context) error }); ok {
		s.storeHealth = checker.Ping
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/transfers", s.hmac.Middleware(http.HandlerFunc(s.handleStartTransfer)))
	mux.Handle("POST /api/v1/transfers/{id}/continue", s.hmac.Middleware(http.HandlerFunc(s.handleContinueTransfer)))
	mux.Handle("GET /api/v1/transfers/{id}", s.hmac.Middleware(http.HandlerFunc(s.handleGetTransfer)))
	mux.Handle("/api/v1/metrics", metrics.handler())
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           s.requestID(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type startTransferRequest struct {
	SourceChain        string `json:"sourceChain"`
	DestinationChain   string `json:"destinationChain"`
	Amount             string `json:"amount"`
	DestinationAddress string `json:"destinationAddress"`
	UseFastPath        bool   `json:"useFastPath,omitempty"`
}

type transferResponse struct {
	ID          string `json:"id"`
	Phase       string `json:"phase"`
	BurnTxHash  string `json:"burnTxHash,omitempty"`
	MintTxHash  string `json:"mintTxHash,omitempty"`
	Attestation string `json:"attestation,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
}

func toTransferResponse(state *transfer.State, kind transfer.Kind) transferResponse {
	return transferResponse{
		ID:          state.ID,
		Phase:       string(state.Phase),
		BurnTxHash:  state.BurnTxHash,
		MintTxHash:  state.MintTxHash,
		Attestation: state.Attestation,
		LastError:   state.LastError,
		ErrorKind:   string(kind),
	}
}

func (s *Server) handleStartTransfer(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	if key == "" {
		http.Error(w, "missing X-Idempotency-Key header", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// A replayed start must not reach the orchestrator: the cached response
	// carries the original transfer, and no second burn is submitted.
	if existing, _ := s.store.Get(ctx, key); existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.StatusCode)
		_, _ = w.Write(existing.Response)
		s.metrics.incStart("cached")
		return
	}

	var payload startTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(payload.Amount), 10)
	if !ok {
		http.Error(w, "amount must be a base-10 integer in smallest units", http.StatusBadRequest)
		return
	}

	state, err := s.orchestrator.StartTransfer(ctx, transfer.Request{
		SourceChain:        payload.SourceChain,
		DestinationChain:   payload.DestinationChain,
		Amount:             amount,
		DestinationAddress: payload.DestinationAddress,
		IdempotencyKey:     key,
		UseFastPath:        payload.UseFastPath,
	})
	if err != nil {
		kind := transfer.KindOf(err)
		s.metrics.incStart("failed")
		s.metrics.incFailure(string(kind))
		if kind == transfer.KindInvalidRequest || kind == transfer.KindUnsupportedChain || kind == transfer.KindContractsUndeployed {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Burn rejection: the failed state (if any) is still useful to the
		// caller for resumption bookkeeping.
		status := http.StatusBadGateway
		if state != nil {
			writeJSON(w, status, toTransferResponse(state, kind))
		} else {
			http.Error(w, err.Error(), status)
		}
		return
	}

	body, _ := json.Marshal(toTransferResponse(state, ""))
	record := idempotency.Record{
		StatusCode: http.StatusCreated,
		Response:   body,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(s.cfg.Service.IdempotencyWindow),
	}
	_ = s.store.Save(ctx, key, record)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
	s.metrics.incStart("created")
}

func (s *Server) handleContinueTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	state, err := s.transfers.Load(ctx, id)
	if errors.Is(err, transfer.ErrNotFound) {
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load transfer: "+err.Error(), http.StatusInternalServerError)
		return
	}

	done, err := s.orchestrator.ContinueTransfer(ctx, state)
	if err != nil {
		kind := transfer.KindOf(err)
		s.metrics.incContinue("failed")
		s.metrics.incFailure(string(kind))
		if done == nil {
			done = state
		}
		writeJSON(w, http.StatusBadGateway, toTransferResponse(done, kind))
		return
	}

	s.metrics.incContinue("completed")
	writeJSON(w, http.StatusOK, toTransferResponse(done, ""))
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	state, err := s.transfers.Load(r.Context(), r.PathValue("id"))
	if errors.Is(err, transfer.ErrNotFound) {
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "load transfer: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(state, ""))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	walletInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.walletHealth != nil {
		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.walletHealth(probeCtx); err != nil {
			walletInfo.Connected = false
			walletInfo.Error = err.Error()
			overallHealthy = false
		} else {
			walletInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	storeInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.storeHealth != nil {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.storeHealth(probeCtx); err != nil {
			storeInfo.Connected = false
			storeInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	pending := 0
	if resumable, err := s.transfers.ListResumable(ctx, 0); err == nil {
		pending = len(resumable)
		s.metrics.setPending(pending)
	}

	status := "healthy"
	if !overallHealthy {
		status = "degraded"
	}

	resp := struct {
		Status           string `json:"status"`
		Wallet           any    `json:"wallet"`
		Store            any    `json:"store"`
		PendingTransfers int    `json:"pending_transfers"`
	}{
		Status:           status,
		Wallet:           walletInfo,
		Store:            storeInfo,
		PendingTransfers: pending,
	}

	code := http.StatusOK
	if !overallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestID tags every request with an id, echoes it back to the caller,
// and writes one access-log line so responses can be correlated with logs.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		s.log.WithFields(logrus.Fields{
			"requestId": id,
			"method":    r.Method,
			"path":      r.URL.Path,
		}).Debug("request received")
		next.ServeHTTP(w, r)
	})
}
