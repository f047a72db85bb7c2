package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateWithProfile inserts the identity and its pending profile in one
// transaction.
func (r *UserRepository) CreateWithProfile(ctx context.Context, u *models.User, p *models.Profile) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users(email, password_hash) VALUES($1, $2) RETURNING id, created_at`,
		u.Email, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return mapError(err)
	}

	p.ID = u.ID
	p.Email = u.Email
	err = tx.QueryRow(ctx,
		`INSERT INTO profiles(id, full_name, email, role, is_active, email_notification)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING created_at`,
		p.ID, p.FullName, p.Email, p.Role, p.IsActive, p.EmailNotification,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRow(ctx,
		`SELECT id, email, password_hash, COALESCE(totp_secret, ''), totp_enabled, created_at
         FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRow(ctx,
		`SELECT id, email, password_hash, COALESCE(totp_secret, ''), totp_enabled, created_at
         FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// SetTOTP stores the secret and the enabled flag. An empty secret clears it.
func (r *UserRepository) SetTOTP(ctx context.Context, id, secret string, enabled bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret = NULLIF($1, ''), totp_enabled = $2 WHERE id = $3`,
		secret, enabled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
