package transfer

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	state := sampleState("pg-1", PhaseAttesting, time.Now().UTC().Truncate(time.Microsecond))
	state.Amount = big.NewInt(123456789)

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "pg-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Amount.Cmp(state.Amount) != 0 {
		t.Fatalf("amount mismatch: %s vs %s", got.Amount, state.Amount)
	}
	if got.Phase != PhaseAttesting || got.BurnTxHash != state.BurnTxHash {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Phase transition persists through the upsert path.
	state.Phase = PhaseCompleted
	state.MintTxHash = "0xminted"
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, _ = store.Load(ctx, "pg-1")
	if got.Phase != PhaseCompleted || got.MintTxHash != "0xminted" {
		t.Fatalf("upsert did not apply: %+v", got)
	}

	resumable, err := store.ListResumable(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, st := range resumable {
		if st.ID == "pg-1" {
			t.Fatal("completed transfer listed as resumable")
		}
	}
}
