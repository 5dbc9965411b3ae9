package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRevocationLedger persiste refresh tokens revocados en postgres.
// Implementa service.RevocationLedger.
type PgRevocationLedger struct {
	pool *pgxpool.Pool
}

func NewPgRevocationLedger(pool *pgxpool.Pool) *PgRevocationLedger {
	return &PgRevocationLedger{pool: pool}
}

// Record inserta el token revocado. Devuelve false si ya estaba registrado.
func (l *PgRevocationLedger) Record(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	const query = `
		INSERT INTO revoked_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	tag, err := l.pool.Exec(ctx, query, token, expiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PgRevocationLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token).Scan(&exists)
	return exists, err
}

// DeleteExpired elimina entradas cuyo refresh token ya no podría verificar de
// todos modos; se invoca periódicamente desde el proceso principal.
func (l *PgRevocationLedger) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
