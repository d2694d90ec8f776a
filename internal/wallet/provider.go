package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderClient talks to the custodial wallet provider's REST API. The
// provider owns the keys and any user-approval flow; from here it is a black
// box that either reports a transaction hash or a rejection message.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewProviderClient(cfg ProviderConfig) (*ProviderClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type executePayload struct {
	WalletID             string `json:"walletId"`
	ContractAddress      string `json:"contractAddress"`
	ABIFunctionSignature string `json:"abiFunctionSignature"`
	ABIParameters        []any  `json:"abiParameters"`
	IdempotencyKey       string `json:"idempotencyKey,omitempty"`
}

type executeResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (c *ProviderClient) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	if req.WalletID == "" {
		return ExecuteResponse{}, fmt.Errorf("wallet id is required")
	}
	if req.ContractAddress == "" {
		return ExecuteResponse{}, fmt.Errorf("contract address is required")
	}

	payload := executePayload{
		WalletID:             req.WalletID,
		ContractAddress:      req.ContractAddress,
		ABIFunctionSignature: req.FunctionSignature,
		ABIParameters:        req.Parameters,
		IdempotencyKey:       req.IdempotencyKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("encode execute payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/transactions/contractExecution", bytes.NewReader(body))
	if err != nil {
		return ExecuteResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ExecuteResponse{}, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result executeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ExecuteResponse{}, fmt.Errorf("decode provider response: %w", err)
	}

	// The provider may decline without an HTTP error, e.g. when user
	// approval was denied. Treat that the same as a hard rejection.
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "provider rejected execution"
		}
		return ExecuteResponse{}, fmt.Errorf("execution rejected: %s", msg)
	}

	return ExecuteResponse{TxHash: result.TransactionHash}, nil
}

// Ping probes the provider's health endpoint.
func (c *ProviderClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider health returned %d", resp.StatusCode)
	}
	return nil
}
