package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"user-api/internal/domain"
	"user-api/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

const selectUserColumns = `SELECT id, name, email, password, mobile, description, created_at, updated_at FROM users`

type UserRepository struct {
	db    *sql.DB
	clock domain.Clock
}

func NewUserRepository(db *sql.DB, clock domain.Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUserColumns+` ORDER BY seq`)
	if err != nil {
		return nil, domain.NewInternalError("list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, domain.NewInternalError("list users", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError("iterate users", err)
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, r.db, id)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewInternalError("begin create user", err)
	}
	defer tx.Rollback()

	taken, err := nameTaken(ctx, tx, user.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewConflictError(user.Name)
	}
	if user.ID == "" {
		return nil, domain.NewInternalError("user id is required", nil)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO users (id, name, email, password, mobile, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.Mobile,
		user.Description,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, domain.NewInternalError("insert user", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewInternalError("commit create user", err)
	}

	created := *user
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewInternalError("begin update user", err)
	}
	defer tx.Rollback()

	if changes.Name != nil {
		taken, err := nameTaken(ctx, tx, *changes.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.NewConflictError(*changes.Name)
		}
	}

	existing, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	updated := changes.Apply(*existing, r.clock.Now())
	_, err = tx.ExecContext(ctx, `
UPDATE users
SET name = ?, email = ?, password = ?, mobile = ?, description = ?, updated_at = ?
WHERE id = ?`,
		updated.Name,
		updated.Email,
		updated.Password,
		updated.Mobile,
		updated.Description,
		updated.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, domain.NewInternalError("update user", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewInternalError("commit update user", err)
	}
	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return domain.NewInternalError("delete user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError("delete user rows affected", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError(id)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *UserRepository) get(ctx context.Context, q queryer, id string) (*domain.User, error) {
	row := q.QueryRowContext(ctx, selectUserColumns+` WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError(id)
		}
		return nil, domain.NewInternalError("get user", err)
	}
	return user, nil
}

func nameTaken(ctx context.Context, q queryer, name string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE name = ?`, name).Scan(&count); err != nil {
		return false, domain.NewInternalError("check user name", err)
	}
	return count > 0, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.Mobile,
		&user.Description,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
