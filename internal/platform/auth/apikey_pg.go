package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type apiKeyRepoPG struct{ pool *pgxpool.Pool }

// NewAPIKeyRepoPG returns the Postgres-backed key store used in production.
func NewAPIKeyRepoPG(pool *pgxpool.Pool) APIKeyStore {
	return &apiKeyRepoPG{pool: pool}
}

const apiKeyCols = `id, name, client_id, digest, prefix, roles, status,
	expires_at, last_used_at, revoked_at, created_at, updated_at`

func (r *apiKeyRepoPG) scanKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.Name, &k.ClientID, &k.Digest, &k.Prefix,
		&k.Roles, &k.Status, &k.ExpiresAt, &k.LastUsedAt, &k.RevokedAt,
		&k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	return &k, err
}

func (r *apiKeyRepoPG) Create(ctx context.Context, key *APIKey) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO api_key (id, name, client_id, digest, prefix, roles,
			status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		key.ID, key.Name, key.ClientID, key.Digest, key.Prefix, key.Roles,
		key.Status, key.ExpiresAt).
		Scan(&key.CreatedAt, &key.UpdatedAt)
}

func (r *apiKeyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*APIKey, error) {
	return r.scanKey(r.pool.QueryRow(ctx,
		`SELECT `+apiKeyCols+` FROM api_key WHERE id = $1`, id))
}

func (r *apiKeyRepoPG) GetByDigest(ctx context.Context, digest string) (*APIKey, error) {
	return r.scanKey(r.pool.QueryRow(ctx,
		`SELECT `+apiKeyCols+` FROM api_key WHERE digest = $1`, digest))
}

func (r *apiKeyRepoPG) List(ctx context.Context, limit, offset int) ([]*APIKey, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_key`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+apiKeyCols+` FROM api_key
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	keys := []*APIKey{}
	for rows.Next() {
		key, err := r.scanKey(rows)
		if err != nil {
			return nil, 0, err
		}
		keys = append(keys, key)
	}
	return keys, total, rows.Err()
}

func (r *apiKeyRepoPG) Update(ctx context.Context, key *APIKey) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE api_key SET status=$2, roles=$3, expires_at=$4,
			last_used_at=$5, revoked_at=$6, updated_at=NOW()
		WHERE id = $1`,
		key.ID, key.Status, key.Roles, key.ExpiresAt, key.LastUsedAt, key.RevokedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *apiKeyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM api_key WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}
