package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingRepository struct {
	DB *pgxpool.Pool
}

func NewSettingRepository(db *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{DB: db}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB.QueryRow(ctx, `SELECT value FROM app_settings WHERE key=$1`, key).Scan(&value)
	if err != nil {
		return "", mapError(err)
	}
	return value, nil
}

// SetIfAbsent stores value only when the key does not exist yet.
func (r *SettingRepository) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`INSERT INTO app_settings(key, value) VALUES($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, value)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
