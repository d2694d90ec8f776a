package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists transfer state in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTransfersSQL = `
CREATE TABLE IF NOT EXISTS transfers (
    id TEXT PRIMARY KEY,
    source_chain TEXT NOT NULL,
    destination_chain TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    destination_address TEXT NOT NULL,
    idempotency_key TEXT NOT NULL,
    use_fast_path BOOLEAN NOT NULL,
    phase TEXT NOT NULL,
    burn_tx_hash TEXT NOT NULL DEFAULT '',
    message_hex TEXT NOT NULL DEFAULT '',
    attestation TEXT NOT NULL DEFAULT '',
    mint_tx_hash TEXT NOT NULL DEFAULT '',
    last_error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_phase_idx ON transfers (phase, created_at);
`

// NewPostgresStore connects using the DSN and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTransfersSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Save(ctx context.Context, state *State) error {
	if state.ID == "" {
		return errors.New("transfer id is required")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO transfers (
    id, source_chain, destination_chain, amount, destination_address,
    idempotency_key, use_fast_path, phase, burn_tx_hash, message_hex,
    attestation, mint_tx_hash, last_error, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE
SET phase = EXCLUDED.phase,
    burn_tx_hash = EXCLUDED.burn_tx_hash,
    message_hex = EXCLUDED.message_hex,
    attestation = EXCLUDED.attestation,
    mint_tx_hash = EXCLUDED.mint_tx_hash,
    last_error = EXCLUDED.last_error,
    updated_at = EXCLUDED.updated_at
`, state.ID, state.SourceChain, state.DestinationChain, state.Amount.String(),
		state.DestinationAddress, state.IdempotencyKey, state.UseFastPath,
		string(state.Phase), state.BurnTxHash, state.MessageHex, state.Attestation,
		state.MintTxHash, state.LastError, state.CreatedAt, state.UpdatedAt)
	return err
}

func (p *PostgresStore) Load(ctx context.Context, id string) (*State, error) {
	row := p.pool.QueryRow(ctx, selectTransferSQL+` WHERE id = $1`, id)
	state, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return state, err
}

func (p *PostgresStore) ListResumable(ctx context.Context, limit int) ([]*State, error) {
	query := selectTransferSQL + `
 WHERE phase IN ($1, $2)
 ORDER BY created_at`
	args := []any{string(PhaseAttesting), string(PhaseMinting)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*State
	for rows.Next() {
		state, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

const selectTransferSQL = `
SELECT id, source_chain, destination_chain, amount::TEXT, destination_address,
       idempotency_key, use_fast_path, phase, burn_tx_hash, message_hex,
       attestation, mint_tx_hash, last_error, created_at, updated_at
FROM transfers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*State, error) {
	var (
		state  State
		amount string
		phase  string
	)
	if err := row.Scan(&state.ID, &state.SourceChain, &state.DestinationChain,
		&amount, &state.DestinationAddress, &state.IdempotencyKey,
		&state.UseFastPath, &phase, &state.BurnTxHash, &state.MessageHex,
		&state.Attestation, &state.MintTxHash, &state.LastError,
		&state.CreatedAt, &state.UpdatedAt); err != nil {
		return nil, err
	}

	n, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount %q for transfer %s", amount, state.ID)
	}
	state.Amount = n
	state.Phase = Phase(phase)
	return &state, nil
}
