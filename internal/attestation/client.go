package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message statuses reported by the oracle.
const (
	StatusComplete = "complete"
	StatusPending  = "pending"
)

// ErrNotFound means the oracle has not indexed the burn transaction yet.
// Callers treat it the same as a pending attestation.
var ErrNotFound = errors.New("burn transaction not indexed")

// Message is one entry of the oracle's messages response.
type Message struct {
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
	Attestation       string `json:"attestation,omitempty"`
	EventNonce        string `json:"eventNonce,omitempty"`
	SourceDomain      string `json:"sourceDomain,omitempty"`
	DestinationDomain string `json:"destinationDomain,omitempty"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// Client queries the attestation oracle over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("oracle base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Messages fetches the oracle messages for one burn transaction on the given
// source domain. A 404 maps to ErrNotFound.
func (c *Client) Messages(ctx context.Context, sourceDomain uint32, burnTxHash string) ([]Message, error) {
	url := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.baseURL, sourceDomain, burnTxHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("oracle returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	return parsed.Messages, nil
}
