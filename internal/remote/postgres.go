package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tabtimer/internal/core/model"
)

// ErrQuotaExceeded indicates the encoded payload is larger than one item may be.
var ErrQuotaExceeded = errors.New("sync payload exceeds per-item quota")

// DefaultQuotaBytes is the per-item limit applied when none is configured.
const DefaultQuotaBytes = 8192

const schema = `
CREATE TABLE IF NOT EXISTS sync_payloads (
	profile TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	last_updated BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store keeps one SyncPayload per profile in PostgreSQL.
type Store struct {
	pool    *pgxpool.Pool
	profile string
	quota   int
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn, profile string, quota int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}
	if _, err := pool.Exec(connectCtx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if quota <= 0 {
		quota = DefaultQuotaBytes
	}
	if profile == "" {
		profile = "default"
	}
	return &Store{pool: pool, profile: profile, quota: quota}, nil
}

// Close releases the pool.
func (store *Store) Close() {
	store.pool.Close()
}

// Fetch returns the stored payload, reporting false when the profile has none.
func (store *Store) Fetch(ctx context.Context) (model.SyncPayload, bool, error) {
	var raw []byte
	err := store.pool.QueryRow(ctx,
		`SELECT payload FROM sync_payloads WHERE profile = $1`,
		store.profile,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SyncPayload{}, false, nil
	}
	if err != nil {
		return model.SyncPayload{}, false, fmt.Errorf("fetch sync payload: %w", err)
	}

	var payload model.SyncPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.SyncPayload{}, false, fmt.Errorf("decode sync payload: %w", err)
	}
	return payload, true, nil
}

// Push overwrites the stored payload.
func (store *Store) Push(ctx context.Context, payload model.SyncPayload) error {
	raw, err := Encode(payload, store.quota)
	if err != nil {
		return err
	}
	if _, err := store.pool.Exec(ctx, `
		INSERT INTO sync_payloads (profile, payload, last_updated, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile) DO UPDATE
		SET payload = EXCLUDED.payload, last_updated = EXCLUDED.last_updated, updated_at = now()`,
		store.profile, string(raw), payload.LastUpdated.UnixMilli(),
	); err != nil {
		return fmt.Errorf("push sync payload: %w", err)
	}
	return nil
}

// Encode marshals payload and enforces the per-item quota.
func Encode(payload model.SyncPayload, quota int) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode sync payload: %w", err)
	}
	if quota > 0 && len(raw) > quota {
		return nil, fmt.Errorf("%d bytes over limit %d: %w", len(raw), quota, ErrQuotaExceeded)
	}
	return raw, nil
}
