package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/models"
)

type ProfileRepository struct {
	DB *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

const profileColumns = `id, full_name, email, role, is_active, email_notification, created_at`

func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := r.DB.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.IsActive, &p.EmailNotification, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// List returns every profile, newest first
func (r *ProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	return r.query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
}

// ListNotificationRecipients returns active profiles that opted in to
// appointment notifications.
func (r *ProfileRepository) ListNotificationRecipients(ctx context.Context) ([]*models.Profile, error) {
	return r.query(ctx, `SELECT `+profileColumns+` FROM profiles
         WHERE is_active = TRUE AND email_notification = TRUE ORDER BY full_name`)
}

// Update applies the non-nil fields and returns the stored row.
func (r *ProfileRepository) Update(ctx context.Context, id string, req *models.UpdateProfileRequest) (*models.Profile, error) {
	var p models.Profile
	err := r.DB.QueryRow(ctx,
		`UPDATE profiles SET
            role = COALESCE($1, role),
            is_active = COALESCE($2, is_active),
            email_notification = COALESCE($3, email_notification)
         WHERE id = $4
         RETURNING `+profileColumns,
		req.Role, req.IsActive, req.EmailNotification, id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.IsActive, &p.EmailNotification, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *ProfileRepository) query(ctx context.Context, sql string) ([]*models.Profile, error) {
	rows, err := r.DB.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.IsActive, &p.EmailNotification, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}
