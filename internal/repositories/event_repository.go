package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

type EventRepository struct {
	DB *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{DB: db}
}

const eventSelect = `
	SELECT e.id, to_char(e.event_date, 'YYYY-MM-DD'), e.start_time, e.duration, e.car_info,
	       e.price, e.remark, e.client_name, e.client_phone, e.client_remark,
	       e.employees, e.services, e.multi_day, e.created_by, COALESCE(p.full_name, ''), e.created_at
	FROM events e
	LEFT JOIN profiles p ON p.id = e.created_by`

func scanEvent(row pgx.Row, e *models.Event) error {
	return row.Scan(&e.ID, &e.EventDate, &e.StartTime, &e.Duration, &e.CarInfo,
		&e.Price, &e.Remark, &e.ClientName, &e.ClientPhone, &e.ClientRemark,
		&e.Employees, &e.Services, &e.MultiDay, &e.CreatedBy, &e.CreatorName, &e.CreatedAt)
}

// List returns every row ordered by day then start time, with the
// creator's name joined in.
func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	rows, err := r.DB.Query(ctx, eventSelect+` ORDER BY e.event_date ASC, e.start_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	if err := scanEvent(r.DB.QueryRow(ctx, eventSelect+` WHERE e.id = $1`, id), &e); err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

// CreateBooking inserts an optional new client followed by every day row
// of a booking, all in one transaction.
func (r *EventRepository) CreateBooking(ctx context.Context, newClient *models.Client, rows []*models.Event) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if newClient != nil {
		err := tx.QueryRow(ctx,
			`INSERT INTO clients(name, phone, remark) VALUES($1, $2, $3) RETURNING id, created_at`,
			newClient.Name, newClient.Phone, newClient.Remark,
		).Scan(&newClient.ID, &newClient.CreatedAt)
		if err != nil {
			return mapError(err)
		}
	}

	for i, e := range rows {
		err := tx.QueryRow(ctx,
			`INSERT INTO events(event_date, start_time, duration, car_info, price, remark,
                                client_name, client_phone, client_remark, employees, services,
                                multi_day, created_by)
             VALUES($1::date, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
             RETURNING id, created_at`,
			e.EventDate, e.StartTime, e.Duration, e.CarInfo, e.Price, e.Remark,
			e.ClientName, e.ClientPhone, e.ClientRemark, nonNil(e.Employees), nonNil(e.Services),
			e.MultiDay, e.CreatedBy,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert event row %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateBooking inserts an optional new client and rewrites one row in
// a single transaction. created_by is never part of the update.
func (r *EventRepository) UpdateBooking(ctx context.Context, newClient *models.Client, e *models.Event) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if newClient != nil {
		err := tx.QueryRow(ctx,
			`INSERT INTO clients(name, phone, remark) VALUES($1, $2, $3) RETURNING id, created_at`,
			newClient.Name, newClient.Phone, newClient.Remark,
		).Scan(&newClient.ID, &newClient.CreatedAt)
		if err != nil {
			return mapError(err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE events SET event_date=$1::date, start_time=$2, duration=$3, car_info=$4, price=$5,
                remark=$6, client_name=$7, client_phone=$8, client_remark=$9, employees=$10,
                services=$11, multi_day=$12
         WHERE id=$13`,
		e.EventDate, e.StartTime, e.Duration, e.CarInfo, e.Price, e.Remark,
		e.ClientName, e.ClientPhone, e.ClientRemark, nonNil(e.Employees), nonNil(e.Services),
		e.MultiDay, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit(ctx)
}

// Delete removes exactly one row.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
