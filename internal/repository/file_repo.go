package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chartcloud/internal/domain"
)

// FileRepository define el contrato de persistencia para archivos parseados.
type FileRepository interface {
	Create(ctx context.Context, file domain.File) error
	GetByID(ctx context.Context, id string) (domain.File, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.File, int64, error)
	SetSharing(ctx context.Context, id, userID string, sharing bool) (domain.File, error)
	Delete(ctx context.Context, id string) error
	StatsByUser(ctx context.Context, userID string) (domain.FileStats, error)
}

// PgFileRepository implementa FileRepository usando pgxpool.
type PgFileRepository struct {
	pool *pgxpool.Pool
}

func NewPgFileRepository(pool *pgxpool.Pool) *PgFileRepository {
	return &PgFileRepository{pool: pool}
}

func (r *PgFileRepository) Create(ctx context.Context, f domain.File) error {
	parsed, err := json.Marshal(f.Parsed)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO files (id, user_id, filename, sheet_name, rows, columns, parsed, file_size_kb, sharing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		f.ID, f.UserID, f.Filename, f.SheetName, f.Rows, f.Columns, parsed, f.FileSizeKB, f.Sharing, f.CreatedAt,
	)
	return err
}

const fileColumns = `id, user_id, filename, sheet_name, rows, columns, parsed, file_size_kb, sharing, created_at, updated_at`

func (r *PgFileRepository) GetByID(ctx context.Context, id string) (domain.File, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return scanFile(r.pool.QueryRow(ctx, query, id))
}

func (r *PgFileRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.File, int64, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, query, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	files := make([]domain.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM files WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func (r *PgFileRepository) SetSharing(ctx context.Context, id, userID string, sharing bool) (domain.File, error) {
	const query = `
		UPDATE files SET sharing = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + fileColumns
	return scanFile(r.pool.QueryRow(ctx, query, id, userID, sharing))
}

func (r *PgFileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgFileRepository) StatsByUser(ctx context.Context, userID string) (domain.FileStats, error) {
	const query = `
		SELECT
			count(*),
			count(*) FILTER (WHERE sharing),
			count(*) FILTER (WHERE NOT sharing),
			COALESCE(sum(file_size_kb), 0)
		FROM files
		WHERE user_id = $1
	`
	var s domain.FileStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(&s.Total, &s.Public, &s.Private, &s.TotalSizeKB)
	if err != nil {
		return domain.FileStats{}, err
	}
	return s, nil
}

func scanFile(row rowScanner) (domain.File, error) {
	var (
		f      domain.File
		parsed []byte
	)
	err := row.Scan(
		&f.ID, &f.UserID, &f.Filename, &f.SheetName, &f.Rows, &f.Columns,
		&parsed, &f.FileSizeKB, &f.Sharing, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return domain.File{}, err
	}
	if err := json.Unmarshal(parsed, &f.Parsed); err != nil {
		return domain.File{}, err
	}
	return f, nil
}
