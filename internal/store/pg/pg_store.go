// Package pg implementa core.KeyStore sobre PostgreSQL (pgx).
// A diferencia del driver fs, acá cada mutación es un upsert de fila única:
// la serialización de escritores la da la base, no un mutex del proceso.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/keywarden/internal/store/core"
)

type Store struct{ pool *pgxpool.Pool }

type Config struct {
	MaxOpenConns    int
	MinConns        int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", core.ErrStorage, err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: pgxpool: %v", core.ErrStorage, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", core.ErrStorage, err)
	}
	return &Store{pool: pool}, nil
}

// Pool expone el pool interno (métricas/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const keyColumns = `id, client_id, key_alias, encrypted_secret, status, expiration_date, created_by, created_at, deactivated_at`

func scanKey(row pgx.Row) (*core.KeyRecord, error) {
	var rec core.KeyRecord
	err := row.Scan(
		&rec.ID, &rec.ClientID, &rec.KeyAlias, &rec.EncryptedSecret,
		&rec.Status, &rec.ExpirationDate, &rec.CreatedBy, &rec.CreatedAt,
		&rec.DeactivatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan: %v", core.ErrStorage, err)
	}
	return &rec, nil
}

func (s *Store) queryKeys(ctx context.Context, q string, args ...any) ([]core.KeyRecord, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", core.ErrStorage, err)
	}
	defer rows.Close()

	var out []core.KeyRecord
	for rows.Next() {
		var rec core.KeyRecord
		if err := rows.Scan(
			&rec.ID, &rec.ClientID, &rec.KeyAlias, &rec.EncryptedSecret,
			&rec.Status, &rec.ExpirationDate, &rec.CreatedBy, &rec.CreatedAt,
			&rec.DeactivatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", core.ErrStorage, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", core.ErrStorage, err)
	}
	return out, nil
}

// ===== core.KeyStore =====

func (s *Store) Add(ctx context.Context, rec *core.KeyRecord) error {
	const q = `
		INSERT INTO client_keys (` + keyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q,
		rec.ID, rec.ClientID, rec.KeyAlias, rec.EncryptedSecret,
		rec.Status, rec.ExpirationDate, rec.CreatedBy, rec.CreatedAt,
		rec.DeactivatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", core.ErrStorage, err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.KeyRecord, error) {
	const q = `SELECT ` + keyColumns + ` FROM client_keys WHERE id = $1`
	return scanKey(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetByClient(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	// inserted_seq preserva el orden de inserción del contrato fs
	const q = `SELECT ` + keyColumns + ` FROM client_keys WHERE client_id = $1 ORDER BY inserted_seq`
	return s.queryKeys(ctx, q, clientID)
}

func (s *Store) GetActive(ctx context.Context, clientID string) ([]core.KeyRecord, error) {
	const q = `
		SELECT ` + keyColumns + ` FROM client_keys
		WHERE client_id = $1 AND status IN ($2, $3)
		ORDER BY inserted_seq`
	return s.queryKeys(ctx, q, clientID, core.StatusActive, core.StatusPendingDeactivation)
}

func (s *Store) FindByEncryptedSecret(ctx context.Context, clientID, encryptedSecret string) (*core.KeyRecord, error) {
	const q = `SELECT ` + keyColumns + ` FROM client_keys WHERE client_id = $1 AND encrypted_secret = $2`
	return scanKey(s.pool.QueryRow(ctx, q, clientID, encryptedSecret))
}

func (s *Store) Update(ctx context.Context, id string, upd core.KeyUpdate) (*core.KeyRecord, error) {
	const q = `
		UPDATE client_keys
		SET status         = COALESCE($2, status),
		    deactivated_at = COALESCE($3, deactivated_at)
		WHERE id = $1
		RETURNING ` + keyColumns
	return scanKey(s.pool.QueryRow(ctx, q, id, upd.Status, upd.DeactivatedAt))
}

func (s *Store) Deactivate(ctx context.Context, id string) (*core.KeyRecord, error) {
	now := time.Now().UTC()
	st := core.StatusInactive
	return s.Update(ctx, id, core.KeyUpdate{Status: &st, DeactivatedAt: &now})
}

func (s *Store) GetAll(ctx context.Context) ([]core.KeyRecord, error) {
	const q = `SELECT ` + keyColumns + ` FROM client_keys ORDER BY inserted_seq`
	return s.queryKeys(ctx, q)
}
