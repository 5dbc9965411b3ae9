package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chartcloud/internal/domain"
)

// ErrDuplicate indica una violación de unicidad (username o email+tipo ya registrados).
var ErrDuplicate = errors.New("duplicate key")

// AccountRepository define el contrato de persistencia para cuentas.
// withSecrets controla si se cargan hash de password y código de verificación.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByUsername(ctx context.Context, username string, withSecrets bool) (domain.Account, error)
	GetByEmailAndType(ctx context.Context, email, accountType string, withSecrets bool) (domain.Account, error)
	SetVerificationCode(ctx context.Context, id, codeHash string, expiry time.Time) error
	MarkVerified(ctx context.Context, id, codeHash string) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, limit int) ([]domain.Account, int64, error)
	Stats(ctx context.Context) (domain.AccountStats, error)
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `id, username, email, role, account_type, verified, profile_picture, created_at, updated_at`

const accountColumnsWithSecrets = accountColumns + `, password_hash, verification_code_hash, verification_code_expiry`

func (r *PgAccountRepository) Create(ctx context.Context, a domain.Account) error {
	const query = `
		INSERT INTO accounts (id, username, email, password_hash, role, account_type, verified, profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Username,
		a.Email,
		a.PasswordHash,
		a.Role,
		a.AccountType,
		a.Verified,
		a.ProfilePicture,
		a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id), false)
}

func (r *PgAccountRepository) GetByUsername(ctx context.Context, username string, withSecrets bool) (domain.Account, error) {
	if withSecrets {
		const query = `SELECT ` + accountColumnsWithSecrets + ` FROM accounts WHERE username = $1`
		return r.scanAccount(r.pool.QueryRow(ctx, query, username), true)
	}
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, username), false)
}

func (r *PgAccountRepository) GetByEmailAndType(ctx context.Context, email, accountType string, withSecrets bool) (domain.Account, error) {
	if withSecrets {
		const query = `SELECT ` + accountColumnsWithSecrets + ` FROM accounts WHERE email = $1 AND account_type = $2`
		return r.scanAccount(r.pool.QueryRow(ctx, query, email, accountType), true)
	}
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 AND account_type = $2`
	return r.scanAccount(r.pool.QueryRow(ctx, query, email, accountType), false)
}

// SetVerificationCode sobreescribe el código pendiente; un código anterior deja
// de ser verificable en cuanto este UPDATE se aplica.
func (r *PgAccountRepository) SetVerificationCode(ctx context.Context, id, codeHash string, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET verification_code_hash = $2, verification_code_expiry = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, codeHash, expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkVerified aplica la transición Unverified -> Verified solo si el código
// almacenado sigue siendo el esperado. Devuelve false si otro código fue
// escrito entre la lectura y esta escritura.
func (r *PgAccountRepository) MarkVerified(ctx context.Context, id, codeHash string) (bool, error) {
	const query = `
		UPDATE accounts
		SET verified = TRUE, verification_code_hash = NULL, verification_code_expiry = NULL, updated_at = now()
		WHERE id = $1 AND verification_code_hash = $2 AND NOT verified
	`
	tag, err := r.pool.Exec(ctx, query, id, codeHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgAccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) List(ctx context.Context, page, limit int) ([]domain.Account, int64, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.pool.Query(ctx, query, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccountFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (r *PgAccountRepository) Stats(ctx context.Context) (domain.AccountStats, error) {
	const query = `
		SELECT
			count(*),
			count(*) FILTER (WHERE verified),
			count(*) FILTER (WHERE account_type = 'email'),
			count(*) FILTER (WHERE account_type = 'github'),
			count(*) FILTER (WHERE account_type = 'google')
		FROM accounts
	`
	var s domain.AccountStats
	err := r.pool.QueryRow(ctx, query).Scan(&s.Total, &s.Verified, &s.Email, &s.Github, &s.Google)
	if err != nil {
		return domain.AccountStats{}, err
	}
	s.Unverified = s.Total - s.Verified
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgAccountRepository) scanAccount(row rowScanner, withSecrets bool) (domain.Account, error) {
	var (
		a            domain.Account
		passwordHash *string
		codeHash     *string
	)
	dest := []any{
		&a.ID, &a.Username, &a.Email, &a.Role, &a.AccountType,
		&a.Verified, &a.ProfilePicture, &a.CreatedAt, &a.UpdatedAt,
	}
	if withSecrets {
		dest = append(dest, &passwordHash, &codeHash, &a.VerificationCodeExpiry)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.Account{}, err
	}
	if passwordHash != nil {
		a.PasswordHash = *passwordHash
	}
	if codeHash != nil {
		a.VerificationCodeHash = *codeHash
	}
	return a, nil
}

func scanAccountFromRows(rows pgx.Rows) (domain.Account, error) {
	var a domain.Account
	err := rows.Scan(
		&a.ID, &a.Username, &a.Email, &a.Role, &a.AccountType,
		&a.Verified, &a.ProfilePicture, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
