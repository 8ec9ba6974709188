package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/metrics"
)

// Postgres хранит снимок реестра одной jsonb-строкой.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.RegistryStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу, если её ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chat_registry (
	id smallint PRIMARY KEY CHECK (id = 1),
	snapshot jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`)
	metrics.ObserveNetworkRequest("postgres", "chat_registry_schema", start, err)
	return err
}

// Load реализует domain.RegistryStore.
func (p *Postgres) Load(ctx context.Context) (domain.RegistrySnapshot, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var data []byte
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT snapshot FROM chat_registry WHERE id = 1`).Scan(&data)
	metrics.ObserveNetworkRequest("postgres", "chat_registry_select", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return domain.RegistrySnapshot{}, fmt.Errorf("select chat_registry: %w", err)
	}
	snap, _, err := DecodeSnapshot(data)
	return snap, err
}

// Save реализует domain.RegistryStore: снимок переписывается целиком.
func (p *Postgres) Save(ctx context.Context, snapshot domain.RegistrySnapshot) error {
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO chat_registry (id, snapshot, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()
`, data)
	metrics.ObserveNetworkRequest("postgres", "chat_registry_upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert chat_registry: %w", err)
	}
	return nil
}
