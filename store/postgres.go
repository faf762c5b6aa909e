// Package store é o acesso a Postgres: o nível durável do cache de
// respostas e a leitura do extrato de transações usado pelo forecast.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-ai-backend/cache"
	"finance-ai-backend/forecast"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres abre o pool e valida a conexão com um ping.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// GetEntry retorna (nil, nil) quando a chave não existe; quem decide se a
// linha ainda está fresca é o leitor, a partir de created_at.
func (p *Postgres) GetEntry(ctx context.Context, cacheKey string) (*cache.Entry, error) {
	const q = `
		SELECT cache_key, cache_type, user_id, response_data, created_at, expires_at
		FROM ai_response_cache
		WHERE cache_key = $1`

	var (
		e      cache.Entry
		userID pgtype.UUID
	)
	row := p.pool.QueryRow(ctx, q, cacheKey)
	err := row.Scan(&e.CacheKey, &e.CacheType, &userID, &e.ResponseData, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entry: %w", err)
	}
	if userID.Valid {
		id, err := uuidFromPg(userID)
		if err == nil {
			e.UserID = &id
		}
	}
	return &e, nil
}

// UpsertEntry grava por chave: writes repetidos na mesma cache_key
// sobrescrevem a linha, nunca acumulam duplicatas.
func (p *Postgres) UpsertEntry(ctx context.Context, e cache.Entry) error {
	const q = `
		INSERT INTO ai_response_cache
			(cache_key, cache_type, user_id, response_data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET
			cache_type    = EXCLUDED.cache_type,
			user_id       = EXCLUDED.user_id,
			response_data = EXCLUDED.response_data,
			created_at    = EXCLUDED.created_at,
			expires_at    = EXCLUDED.expires_at`

	_, err := p.pool.Exec(ctx, q,
		e.CacheKey, e.CacheType, uuidToPg(e.UserID), []byte(e.ResponseData), e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store: upsert entry: %w", err)
	}
	return nil
}

// CountByType alimenta o endpoint de métricas.
func (p *Postgres) CountByType(ctx context.Context) (map[string]int64, error) {
	const q = `SELECT cache_type, COUNT(*) FROM ai_response_cache GROUP BY cache_type`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: count by type: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			ct string
			n  int64
		)
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, fmt.Errorf("store: count by type scan: %w", err)
		}
		out[ct] = n
	}
	return out, rows.Err()
}

// DeleteExpired remove linhas cujo expires_at já passou. É manutenção
// oportunista; a corretude não depende dela, porque a frescura é sempre
// checada na leitura.
func (p *Postgres) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM ai_response_cache WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("store: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecentTransactions lê o extrato do usuário desde a data dada, para o
// forecast. Amount chega como NUMERIC e é escaneado via texto para não
// passar por float.
func (p *Postgres) RecentTransactions(ctx context.Context, userID uuid.UUID, since time.Time) ([]forecast.Transaction, error) {
	const q = `
		SELECT occurred_at, amount::text, category
		FROM transactions
		WHERE user_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at`

	rows, err := p.pool.Query(ctx, q, uuidToPg(&userID), since)
	if err != nil {
		return nil, fmt.Errorf("store: recent transactions: %w", err)
	}
	defer rows.Close()

	var txs []forecast.Transaction
	for rows.Next() {
		var (
			tx     forecast.Transaction
			amount string
		)
		if err := rows.Scan(&tx.Date, &amount, &tx.Category); err != nil {
			return nil, fmt.Errorf("store: transaction scan: %w", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("store: amount %q: %w", amount, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func uuidFromPg(id pgtype.UUID) (uuid.UUID, error) {
	if !id.Valid {
		return uuid.UUID{}, errors.New("invalid uuid")
	}
	return uuid.FromBytes(id.Bytes[:])
}

func uuidToPg(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
