package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventgate/eventgate/internal/domain/event"
	"github.com/eventgate/eventgate/internal/observability"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	err := r.observe("events.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO events (id, title, description, date, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			e.ID, e.Title, e.Description, e.Date, e.CreatedAt, e.UpdatedAt)
		return execErr
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, filter event.ListEventsFilter) ([]event.Event, error) {
	baseQuery := `SELECT id, title, description, date, created_at, updated_at FROM events`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("date >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("date <= $%d", argsPosition))
		args = append(args, *filter.To)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY date ASC, id ASC"

	var rows pgx.Rows
	var err error

	err = r.observe("events.list", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Event, 0)

	for rows.Next() {
		var e event.Event

		err = rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)

		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, title, description, date, created_at, updated_at FROM events WHERE id = $1`, id,
		).Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	pos := 2

	if req.Title != nil {
		sets = append(sets, fmt.Sprintf("title = $%d", pos))
		args = append(args, *req.Title)
		pos++
	}
	if req.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", pos))
		args = append(args, *req.Description)
		pos++
	}
	if req.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d", pos))
		args = append(args, *req.Date)
		pos++
	}

	query := `UPDATE events SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING id, title, description, date, created_at, updated_at`

	var e event.Event

	err := r.observe("events.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// Delete removes the event; its registrations go with it via the
// ON DELETE CASCADE on registrations.event_id.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("events.delete", func() error {
		tag, execErr := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return execErr
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return event.ErrNotFound
	}

	return nil
}

// StatsPast aggregates registrations and check-ins for events whose date has
// already passed, newest first. The rate is computed in Go so the rounding
// rule lives in one place.
func (r *EventsRepo) StatsPast(ctx context.Context, filter event.ListEventsFilter) ([]event.Stats, error) {
	baseQuery := `
	SELECT e.id, e.title, e.date, e.description,
		COUNT(r.id) AS total_registered,
		COUNT(r.id) FILTER (WHERE r.checked_in) AS total_checked_in
	FROM events e
	LEFT JOIN registrations r ON r.event_id = e.id
	`

	conds := []string{"e.date < $1"}
	args := []interface{}{time.Now().UTC()}
	argsPosition := 2

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("e.date >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("e.date <= $%d", argsPosition))
		args = append(args, *filter.To)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ") +
		" GROUP BY e.id, e.title, e.date, e.description ORDER BY e.date DESC, e.id DESC"

	var rows pgx.Rows
	var err error

	err = r.observe("events.stats_past", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]event.Stats, 0)

	for rows.Next() {
		var s event.Stats

		err = rows.Scan(&s.ID, &s.Title, &s.Date, &s.Description, &s.TotalRegistered, &s.TotalCheckedIn)

		if err != nil {
			return nil, err
		}

		s.AttendanceRate = event.AttendanceRate(s.TotalRegistered, s.TotalCheckedIn)
		out = append(out, s)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}
