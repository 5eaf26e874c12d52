package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearsight/auth-service/internal/domain"
)

// ErrTokenInactive is returned when a presented refresh token exists but has
// already been revoked or has expired.
var ErrTokenInactive = errors.New("refresh token inactive")

// RefreshTokenRepository manages refresh token persistence. Rotation and
// revocation are transactional so concurrent refreshes for the same account
// serialize on the token row instead of racing read-then-write.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetActiveByUserID(ctx context.Context, userID string) (*domain.RefreshToken, error)
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, presented string, replacement *domain.RefreshToken) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpiredRevoked(ctx context.Context, before time.Time) (int64, error)
}

type refreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository returns a Postgres-backed implementation.
func NewRefreshTokenRepository(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshTokenRepository{pool: pool}
}

const refreshTokenColumns = `id, user_id, token, expires_at, revoked_at, created_at`

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *refreshTokenRepository) GetActiveByUserID(ctx context.Context, userID string) (*domain.RefreshToken, error) {
	const query = `
        SELECT ` + refreshTokenColumns + `
        FROM refresh_tokens
        WHERE user_id=$1 AND revoked_at IS NULL AND expires_at > NOW()
        ORDER BY created_at DESC
        LIMIT 1`
	return scanRefreshToken(r.pool.QueryRow(ctx, query, userID))
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.RefreshToken, error) {
	const query = `
        SELECT ` + refreshTokenColumns + `
        FROM refresh_tokens WHERE token=$1`
	return scanRefreshToken(r.pool.QueryRow(ctx, query, tokenStr))
}

// Rotate revokes the presented token and inserts its replacement in one
// transaction. The presented row is locked FOR UPDATE, so two concurrent
// rotations of the same token cannot both succeed; the loser sees the
// revocation and fails with ErrTokenInactive.
func (r *refreshTokenRepository) Rotate(ctx context.Context, presented string, replacement *domain.RefreshToken) (*domain.RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const lockQuery = `
        SELECT ` + refreshTokenColumns + `
        FROM refresh_tokens WHERE token=$1
        FOR UPDATE`
	old, err := scanRefreshToken(tx.QueryRow(ctx, lockQuery, presented))
	if err != nil {
		return nil, err
	}
	if !old.IsActive(time.Now()) {
		return nil, ErrTokenInactive
	}

	if _, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=$1`, old.ID); err != nil {
		return nil, err
	}

	replacement.UserID = old.UserID
	const insertQuery = `
        INSERT INTO refresh_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertQuery,
		replacement.UserID,
		replacement.Token,
		replacement.ExpiresAt,
	).Scan(&replacement.ID, &replacement.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return old, nil
}

// Revoke marks an active token revoked. Absent tokens return pgx.ErrNoRows,
// already-inactive ones ErrTokenInactive.
func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenStr string) error {
	token, err := r.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if !token.IsActive(time.Now()) {
		return ErrTokenInactive
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=$1 AND revoked_at IS NULL`, token.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenInactive
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=$1 AND revoked_at IS NULL`, userID)
	return err
}

func (r *refreshTokenRepository) DeleteExpiredRevoked(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1 AND revoked_at IS NOT NULL`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}
