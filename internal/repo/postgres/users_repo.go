package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventgate/eventgate/internal/domain/user"
	"github.com/eventgate/eventgate/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		return user.User{}, err
	}

	u.Role = user.ParseRole(role)
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Count is what the signup bootstrap rule keys off: zero users means the
// next signup becomes the admin.
func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.observe("users.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	})

	return total, err
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name string, role user.Role) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role.String(), u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if isConstraint(err, "users_email_uniq") {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var rows pgx.Rows
	var err error

	err = r.observe("users.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]user.User, 0)

	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

// Update applies only the fields that are set. Role resolution and password
// hashing happened at the handler; this just persists.
func (r *UsersRepo) Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	pos := 2

	if fields.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", pos))
		args = append(args, *fields.Name)
		pos++
	}
	if fields.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", pos))
		args = append(args, *fields.Email)
		pos++
	}
	if fields.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", pos))
		args = append(args, *fields.PasswordHash)
		pos++
	}
	if fields.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", pos))
		args = append(args, fields.Role.String())
		pos++
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + userColumns

	var u user.User
	var err error

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isConstraint(err, "users_email_uniq") {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

// Delete removes the user; their registrations go with them via the
// ON DELETE CASCADE on registrations.user_id.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.observe("users.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}
