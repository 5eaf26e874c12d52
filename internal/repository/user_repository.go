package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearsight/auth-service/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	AddRole(ctx context.Context, userID string, role domain.Role) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (full_name, username, email, email_confirmed, password_hash, security_stamp, primary_role)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.FullName,
		user.Username,
		user.Email,
		user.EmailConfirmed,
		user.PasswordHash,
		user.SecurityStamp,
		user.PrimaryRole,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET full_name=$1, username=$2, email=$3, email_confirmed=$4, password_hash=$5,
            security_stamp=$6, primary_role=$7, failed_login_count=$8, lockout_until=$9,
            updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		user.FullName,
		user.Username,
		user.Email,
		user.EmailConfirmed,
		user.PasswordHash,
		user.SecurityStamp,
		user.PrimaryRole,
		user.FailedLoginCount,
		user.LockoutUntil,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, full_name, username, email, email_confirmed, password_hash,
               security_stamp, primary_role, failed_login_count, lockout_until,
               created_at, updated_at
        FROM users WHERE id=$1`
	return r.scanUser(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, full_name, username, email, email_confirmed, password_hash,
               security_stamp, primary_role, failed_login_count, lockout_until,
               created_at, updated_at
        FROM users WHERE email=$1`
	return r.scanUser(ctx, query, email)
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`, username,
	).Scan(&exists)
	return exists, err
}

func (r *userRepository) AddRole(ctx context.Context, userID string, role domain.Role) error {
	const query = `
        INSERT INTO user_roles (user_id, role)
        VALUES ($1, $2)
        ON CONFLICT (user_id, role) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, role)
	return err
}

func (r *userRepository) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FullName,
		&user.Username,
		&user.Email,
		&user.EmailConfirmed,
		&user.PasswordHash,
		&user.SecurityStamp,
		&user.PrimaryRole,
		&user.FailedLoginCount,
		&user.LockoutUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// loadRoles fills the granted-role set in grant order, so role claims come
// out deterministic.
func (r *userRepository) loadRoles(ctx context.Context, user *domain.User) error {
	rows, err := r.pool.Query(ctx,
		`SELECT role FROM user_roles WHERE user_id=$1 ORDER BY granted_at`, user.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return err
		}
		user.Roles = append(user.Roles, role)
	}
	return rows.Err()
}
