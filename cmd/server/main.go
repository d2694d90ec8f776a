package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"bridgerail/internal/attestation"
	"bridgerail/internal/config"
	"bridgerail/internal/idempotency"
	"bridgerail/internal/registry"
	"bridgerail/internal/server"
	"bridgerail/internal/transfer"
	"bridgerail/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	reg, err := registry.Load(cfg.Service.ChainsPath)
	if err != nil {
		log.Fatalf("chain registry error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transfers, err := newTransferStore(ctx, cfg)
	if err != nil {
		log.Fatalf("transfer store error: %v", err)
	}

	idemStore, err := newIdempotencyStore(ctx, cfg)
	if err != nil {
		log.Fatalf("idempotency store error: %v", err)
	}

	walletClient, err := newWalletClient(ctx, cfg, log)
	if err != nil {
		log.Fatalf("wallet client error: %v", err)
	}

	oracle, err := attestation.NewClient(attestation.ClientConfig{
		BaseURL: cfg.Seed.Oracle.BaseURL,
		Timeout: time.Duration(cfg.Seed.Timeouts.OracleRequestMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("oracle client error: %v", err)
	}
	poller := attestation.NewPoller(oracle, cfg.Seed.Oracle.MaxPollAttempts, log)

	walletID := cfg.Seed.Provider.WalletID
	burner := transfer.NewBurnExecutor(reg, walletClient, walletID)
	minter := transfer.NewMintExecutor(reg, walletClient, walletID)
	orch := transfer.NewOrchestrator(reg, burner, minter, poller, transfers, log)

	var opts server.Options
	if hc, ok := walletClient.(wallet.HealthChecker); ok {
		opts.WalletHealth = hc.Ping
	}

	apiServer := server.NewServer(cfg, orch, transfers, idemStore, log, opts)

	resumer := server.NewResumer(orch, transfers, cfg.Service.ResumeInterval, cfg.Service.ResumeBatchSize, log)
	apiServer.AttachResumer(resumer)
	go resumer.Run(ctx)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.WithError(err).Info("server stopped")
		}
	}()
	log.WithField("port", cfg.Service.HTTPPort).Info("bridgerail listening")

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
}

func newTransferStore(ctx context.Context, cfg *config.AppConfig) (transfer.Store, error) {
	switch cfg.Service.TransferStore {
	case "", "memory":
		return transfer.NewMemoryStore(), nil
	case "postgres":
		if cfg.Service.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
		return transfer.NewPostgresStore(ctx, cfg.Service.PostgresDSN)
	case "redis":
		if cfg.Service.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis store")
		}
		return transfer.NewRedisStore(ctx, cfg.Service.RedisURL)
	default:
		return nil, fmt.Errorf("unknown transfer store %q", cfg.Service.TransferStore)
	}
}

func newIdempotencyStore(ctx context.Context, cfg *config.AppConfig) (idempotency.Store, error) {
	if cfg.Service.TransferStore == "postgres" && cfg.Service.PostgresDSN != "" {
		return idempotency.NewPostgresStore(ctx, cfg.Service.PostgresDSN)
	}
	return idempotency.NewFileStore(cfg.Service.IdempotencyStorePath)
}

// newWalletClient picks the execution backend. A configured provider wins,
// then a direct signer, otherwise the deterministic fake for local runs.
func newWalletClient(ctx context.Context, cfg *config.AppConfig, log *logrus.Logger) (wallet.Client, error) {
	if cfg.Seed.Provider.BaseURL != "" {
		return wallet.NewProviderClient(wallet.ProviderConfig{
			BaseURL: cfg.Seed.Provider.BaseURL,
			APIKey:  cfg.Seed.Secrets.ProviderAPIKey,
			Timeout: time.Duration(cfg.Seed.Timeouts.ProviderRequestMs) * time.Millisecond,
		})
	}
	if cfg.Chain.PrivateKey != "" {
		return wallet.NewEthClient(ctx, wallet.EthClientConfig{
			RPCURL:        cfg.Chain.RPCURL,
			PrivateKeyHex: cfg.Chain.PrivateKey,
		})
	}
	log.Warn("no provider or signer configured, using fake wallet client")
	return wallet.FakeClient{}, nil
}
