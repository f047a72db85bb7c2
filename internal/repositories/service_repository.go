package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type ServiceRepository struct {
	DB *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{DB: db}
}

const serviceColumns = `id, name, duration, color, active, created_at`

func scanServices(rows pgx.Rows) ([]*models.Service, error) {
	defer rows.Close()
	services := []*models.Service{}
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Duration, &s.Color, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, &s)
	}
	return services, rows.Err()
}

// List returns the whole catalog, oldest first
func (r *ServiceRepository) List(ctx context.Context) ([]*models.Service, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	return scanServices(rows)
}

// ListActive returns active services ordered by name, the booking form source
func (r *ServiceRepository) ListActive(ctx context.Context) ([]*models.Service, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE active = TRUE ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return scanServices(rows)
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (*models.Service, error) {
	var s models.Service
	err := r.DB.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Duration, &s.Color, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (r *ServiceRepository) Create(ctx context.Context, s *models.Service) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO services(name, duration, color, active)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at`,
		s.Name, s.Duration, s.Color, s.Active,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *ServiceRepository) Update(ctx context.Context, s *models.Service) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE services SET name=$1, duration=$2, color=$3, active=$4 WHERE id=$5`,
		s.Name, s.Duration, s.Color, s.Active, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
