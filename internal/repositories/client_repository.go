package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type ClientRepository struct {
	DB *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO clients(name, phone, remark)
         VALUES($1, $2, $3)
         RETURNING id, created_at`,
		c.Name, c.Phone, c.Remark,
	).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, phone, remark, created_at FROM clients WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Remark, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// FindByPhone returns clients with exactly this phone, skipping excludeID
// when it is set.
func (r *ClientRepository) FindByPhone(ctx context.Context, phone, excludeID string) ([]*models.Client, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, phone, remark, created_at FROM clients
         WHERE phone=$1 AND ($2 = '' OR id::text <> $2)`, phone, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Remark, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, phone, remark, created_at FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Remark, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE clients SET name=$1, phone=$2, remark=$3 WHERE id=$4`,
		c.Name, c.Phone, c.Remark, c.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
