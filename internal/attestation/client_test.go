package attestation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/messages/26" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("transactionHash"); got != "0xburn" {
			t.Errorf("unexpected tx hash %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"status":"complete","message":"0x01","attestation":"0x02"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	msgs, err := client.Messages(context.Background(), 26, "0xburn")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Status != StatusComplete || msgs[0].Attestation != "0x02" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Messages(context.Background(), 26, "0xmissing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Messages(context.Background(), 26, "0xburn")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected distinct transient error, got %v", err)
	}
}
