package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookandsign/auth-system/internal/core/domain"
	"github.com/bookandsign/auth-system/internal/core/ports"
)

const uniqueViolation = "23505"

const userColumns = `id, tenant_id, email, password_hash, first_name, last_name, phone, role, status, last_login_at, created_at, updated_at`

// UserRepository stores users in the users table. Deleted rows keep their
// deleted_at stamp and are invisible to every lookup.
type UserRepository struct {
	db DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, tenantID int64, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND email = $2 AND deleted_at IS NULL`,
		tenantID, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, userErr("find user by email", err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, tenantID, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		tenantID, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, userErr("find user by id", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, tenantID int64) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND deleted_at IS NULL ORDER BY id`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (tenant_id, email, password_hash, first_name, last_name, phone, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+userColumns,
		u.TenantID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, string(u.Status))
	created, err := scanUser(row)
	if err != nil {
		return nil, userErr("create user", err)
	}
	return created, nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
		 SET email = $3, password_hash = $4, first_name = $5, last_name = $6, phone = $7,
		     role = $8, status = $9, last_login_at = $10, updated_at = now()
		 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
		 RETURNING `+userColumns,
		u.TenantID, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.Role, string(u.Status), u.LastLoginAt)
	saved, err := scanUser(row)
	if err != nil {
		return nil, userErr("save user", err)
	}
	return saved, nil
}

// SoftDelete stamps the user and all of its live tokens in one transaction.
func (r *UserRepository) SoftDelete(ctx context.Context, tenantID, id int64) error {
	return WithTx(ctx, r.db, func(ctx context.Context, tx Querier) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET deleted_at = now(), updated_at = now()
			 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
			tenantID, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return revokeAllForUser(ctx, tx, id)
	})
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u      domain.User
		status string
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.Role, &status, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func userErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrEmailInUse
	}
	return fmt.Errorf("%s: %w", op, err)
}
