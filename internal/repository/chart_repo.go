package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chartcloud/internal/domain"
)

// ChartRepository define el contrato de persistencia para gráficos.
type ChartRepository interface {
	Create(ctx context.Context, chart domain.Chart) error
	GetByID(ctx context.Context, id string) (domain.Chart, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.Chart, int64, error)
	ListByFile(ctx context.Context, fileID string, page, limit int) ([]domain.Chart, int64, error)
	Delete(ctx context.Context, id string) error
}

// PgChartRepository implementa ChartRepository usando pgxpool.
type PgChartRepository struct {
	pool *pgxpool.Pool
}

func NewPgChartRepository(pool *pgxpool.Pool) *PgChartRepository {
	return &PgChartRepository{pool: pool}
}

const chartColumns = `id, user_id, file_id, data, config, x_axis_data_key, y_axis_data_key, legend, created_at, updated_at`

func (r *PgChartRepository) Create(ctx context.Context, c domain.Chart) error {
	data, err := json.Marshal(c.Data)
	if err != nil {
		return err
	}
	cfg, err := json.Marshal(c.Config)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO charts (id, user_id, file_id, data, config, x_axis_data_key, y_axis_data_key, legend, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.FileID, data, cfg, c.XAxisDataKey, c.YAxisDataKey, c.Legend, c.CreatedAt,
	)
	return err
}

func (r *PgChartRepository) GetByID(ctx context.Context, id string) (domain.Chart, error) {
	const query = `SELECT ` + chartColumns + ` FROM charts WHERE id = $1`
	return scanChart(r.pool.QueryRow(ctx, query, id))
}

func (r *PgChartRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]domain.Chart, int64, error) {
	const query = `SELECT ` + chartColumns + ` FROM charts WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	return r.list(ctx, query, `SELECT count(*) FROM charts WHERE user_id = $1`, userID, page, limit)
}

func (r *PgChartRepository) ListByFile(ctx context.Context, fileID string, page, limit int) ([]domain.Chart, int64, error) {
	const query = `SELECT ` + chartColumns + ` FROM charts WHERE file_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	return r.list(ctx, query, `SELECT count(*) FROM charts WHERE file_id = $1`, fileID, page, limit)
}

func (r *PgChartRepository) list(ctx context.Context, query, countQuery, key string, page, limit int) ([]domain.Chart, int64, error) {
	rows, err := r.pool.Query(ctx, query, key, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	charts := make([]domain.Chart, 0, limit)
	for rows.Next() {
		c, err := scanChart(rows)
		if err != nil {
			return nil, 0, err
		}
		charts = append(charts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, key).Scan(&total); err != nil {
		return nil, 0, err
	}
	return charts, total, nil
}

func (r *PgChartRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM charts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanChart(row rowScanner) (domain.Chart, error) {
	var (
		c    domain.Chart
		data []byte
		cfg  []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.FileID, &data, &cfg,
		&c.XAxisDataKey, &c.YAxisDataKey, &c.Legend, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Chart{}, err
	}
	if err := json.Unmarshal(data, &c.Data); err != nil {
		return domain.Chart{}, err
	}
	if err := json.Unmarshal(cfg, &c.Config); err != nil {
		return domain.Chart{}, err
	}
	return c, nil
}
