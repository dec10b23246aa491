package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventgate/eventgate/internal/domain/event"
	"github.com/eventgate/eventgate/internal/domain/registration"
	"github.com/eventgate/eventgate/internal/observability"
)

type RegistrationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRegistrationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RegistrationsRepo {
	return &RegistrationsRepo{
		pool: pool,
		prom: prom,
	}
}

func (repo *RegistrationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create inserts the registration and lets the compound unique index decide
// duplicates. Two concurrent sign-ups for the same (user, event) pair both
// reach the insert; exactly one commits, the other maps to ErrAlreadyRegistered.
func (repo *RegistrationsRepo) Create(ctx context.Context, req registration.CreateRegistrationRequest) (registration.Registration, error) {
	reg := registration.NewFromCreateRequest(req)

	err := repo.observe("registrations.create", func() error {
		_, e := repo.pool.Exec(ctx, `
		INSERT INTO registrations (id, user_id, event_id, checked_in, checkin_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, reg.ID, reg.UserID, reg.EventID, reg.CheckedIn, reg.CheckinTime, reg.CreatedAt, reg.UpdatedAt)
		return e
	})

	if err != nil {
		if isConstraint(err, "registrations_user_event_uniq") {
			return registration.Registration{}, registration.ErrAlreadyRegistered
		}
		// event deleted between the handler's window check and the insert
		if isForeignKeyOn(err, "registrations_event_id_fkey") {
			return registration.Registration{}, event.ErrNotFound
		}
		return registration.Registration{}, err
	}

	return reg, nil
}

func (repo *RegistrationsRepo) GetByID(ctx context.Context, id string) (registration.Registration, error) {
	var r registration.Registration

	err := repo.observe("registrations.get_by_id", func() error {
		return repo.pool.QueryRow(ctx, `
		SELECT id, user_id, event_id, checked_in, checkin_time, created_at, updated_at
		FROM registrations
		WHERE id = $1
		`, id).Scan(&r.ID, &r.UserID, &r.EventID, &r.CheckedIn, &r.CheckinTime, &r.CreatedAt, &r.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}

	return r, nil
}

// ListByUser returns the caller's registrations with their events attached,
// ordered by event date.
func (repo *RegistrationsRepo) ListByUser(ctx context.Context, userID string) ([]registration.WithEvent, error) {
	var rows pgx.Rows
	var err error

	err = repo.observe("registrations.list_by_user", func() error {
		rows, err = repo.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.event_id, r.checked_in, r.checkin_time, r.created_at, r.updated_at,
			e.id, e.title, e.description, e.date, e.created_at, e.updated_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.date ASC, r.id ASC
		`, userID)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]registration.WithEvent, 0)

	for rows.Next() {
		var item registration.WithEvent

		err = rows.Scan(
			&item.ID, &item.UserID, &item.EventID, &item.CheckedIn, &item.CheckinTime, &item.CreatedAt, &item.UpdatedAt,
			&item.Event.ID, &item.Event.Title, &item.Event.Description, &item.Event.Date, &item.Event.CreatedAt, &item.Event.UpdatedAt,
		)

		if err != nil {
			return nil, err
		}

		out = append(out, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

// ListByEvent returns an event's registrations with sanitized registrant info,
// ordered by registrant name. Returns event.ErrNotFound when the event itself
// is missing so the handler can 404 instead of serving an empty list.
func (repo *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]registration.WithUser, error) {
	var rows pgx.Rows
	var err error

	err = repo.observe("registrations.list_by_event", func() error {
		rows, err = repo.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.event_id, r.checked_in, r.checkin_time, r.created_at, r.updated_at,
			u.id, u.name, u.email
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY u.name ASC, r.id ASC
		`, eventID)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]registration.WithUser, 0)

	for rows.Next() {
		var item registration.WithUser

		err = rows.Scan(
			&item.ID, &item.UserID, &item.EventID, &item.CheckedIn, &item.CheckinTime, &item.CreatedAt, &item.UpdatedAt,
			&item.User.ID, &item.User.Name, &item.User.Email,
		)

		if err != nil {
			return nil, err
		}

		out = append(out, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if len(out) == 0 {
		// check if event exists at all
		var dummy string

		err = repo.observe("registrations.list_by_event.check_event_exists", func() error {
			return repo.pool.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&dummy)
		})

		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}

		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (repo *RegistrationsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := repo.observe("registrations.delete", func() error {
		tag, e := repo.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return registration.ErrNotFound
	}

	return nil
}

// CheckIn marks the registrant present. Deliberately not idempotent: a second
// call refreshes checkin_time, matching how a re-scan at the door behaves.
func (repo *RegistrationsRepo) CheckIn(ctx context.Context, id string) (registration.Registration, error) {
	var r registration.Registration
	now := time.Now().UTC()

	err := repo.observe("registrations.checkin", func() error {
		return repo.pool.QueryRow(ctx, `
		UPDATE registrations
			SET checked_in = TRUE,
				checkin_time = $2,
				updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, event_id, checked_in, checkin_time, created_at, updated_at
		`, id, now).Scan(&r.ID, &r.UserID, &r.EventID, &r.CheckedIn, &r.CheckinTime, &r.CreatedAt, &r.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, err
	}

	return r, nil
}
