package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SeedConfig models the subset of values we need from seed.json.
type SeedConfig struct {
	Oracle struct {
		BaseURL         string `json:"baseUrl"`
		MaxPollAttempts int    `json:"maxPollAttempts"`
	} `json:"oracle"`
	Provider struct {
		BaseURL  string `json:"baseUrl"`
		WalletID string `json:"walletId"`
	} `json:"provider"`
	Secrets struct {
		HMACSalt       string `json:"hmacSalt"`
		ProviderAPIKey string `json:"providerApiKey"`
	} `json:"secrets"`
	Timeouts struct {
		OracleRequestMs       int `json:"oracleRequestMs"`
		ProviderRequestMs     int `json:"providerRequestMs"`
		IdempotencyWindowSecs int `json:"idempotencyWindowSeconds"`
	} `json:"timeouts"`
}

// AppConfig ties together seed values and derived runtime settings.
type AppConfig struct {
	Seed    SeedConfig
	Service ServiceConfig
	Chain   ChainConfig
}

type ServiceConfig struct {
	HTTPPort             int
	HMACClockSkew        time.Duration
	IdempotencyWindow    time.Duration
	IdempotencyStorePath string
	ChainsPath           string

	// TransferStore selects the state backend: memory, postgres, or redis.
	TransferStore string
	PostgresDSN   string
	RedisURL      string

	ResumeInterval  time.Duration
	ResumeBatchSize int
}

// ChainConfig configures the direct signer. When PrivateKey is empty the
// service executes through the custodial provider instead.
type ChainConfig struct {
	RPCURL     string
	PrivateKey string
}

const (
	defaultSeedPath   = "./seed.json"
	defaultChainsPath = "./chains.yaml"
)

// Load aggregates configuration from disk and environment.
func Load() (*AppConfig, error) {
	seedPath := envOr("SEED_PATH", defaultSeedPath)

	seedCfg, err := loadSeed(seedPath)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}

	serviceCfg := ServiceConfig{
		HTTPPort:             envOrInt("API_HTTP_PORT", 3000),
		HMACClockSkew:        time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
		IdempotencyWindow:    time.Duration(seedCfg.Timeouts.IdempotencyWindowSecs) * time.Second,
		IdempotencyStorePath: envOr("IDEMPOTENCY_STORE_PATH", filepath.Join(os.TempDir(), "bridgerail-idem.json")),
		ChainsPath:           envOr("CHAINS_PATH", defaultChainsPath),
		TransferStore:        envOr("TRANSFER_STORE", "memory"),
		PostgresDSN:          envOr("POSTGRES_DSN", ""),
		RedisURL:             envOr("REDIS_URL", ""),
		ResumeInterval:       time.Duration(envOrInt("RESUME_INTERVAL_SECONDS", 15)) * time.Second,
		ResumeBatchSize:      envOrInt("RESUME_BATCH_SIZE", 10),
	}
	if serviceCfg.IdempotencyWindow <= 0 {
		serviceCfg.IdempotencyWindow = time.Hour
	}

	chainCfg := ChainConfig{
		RPCURL:     envOr("CHAIN_RPC_URL", ""),
		PrivateKey: envOr("CHAIN_PRIVATE_KEY", ""),
	}

	return &AppConfig{
		Seed:    *seedCfg,
		Service: serviceCfg,
		Chain:   chainCfg,
	}, nil
}

func loadSeed(path string) (*SeedConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg SeedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
