package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearsight/auth-service/internal/domain"
)

// UserCodeRepository manages single-use reset/confirmation codes. Only code
// digests are stored; lookups are by digest.
type UserCodeRepository interface {
	Create(ctx context.Context, code *domain.UserCode) error
	GetActiveByHash(ctx context.Context, email, codeHash string, purpose domain.CodePurpose) (*domain.UserCode, error)
	MarkUsed(ctx context.Context, id string) error
}

type userCodeRepository struct {
	pool *pgxpool.Pool
}

// NewUserCodeRepository constructs repository.
func NewUserCodeRepository(pool *pgxpool.Pool) UserCodeRepository {
	return &userCodeRepository{pool: pool}
}

func (r *userCodeRepository) Create(ctx context.Context, code *domain.UserCode) error {
	const query = `
        INSERT INTO user_codes (user_id, code_hash, purpose, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		code.UserID,
		code.CodeHash,
		code.Purpose,
		code.ExpiresAt,
	).Scan(&code.ID, &code.CreatedAt)
}

// GetActiveByHash finds an unused, unexpired code for the given account
// email. "Wrong code", "expired" and "already used" are indistinguishable to
// the caller: all come back as pgx.ErrNoRows.
func (r *userCodeRepository) GetActiveByHash(ctx context.Context, email, codeHash string, purpose domain.CodePurpose) (*domain.UserCode, error) {
	const query = `
        SELECT c.id, c.user_id, c.code_hash, c.purpose, c.expires_at, c.used, c.created_at
        FROM user_codes c
        JOIN users u ON u.id = c.user_id
        WHERE u.email=$1 AND c.code_hash=$2 AND c.purpose=$3
          AND c.expires_at >= NOW() AND NOT c.used
        ORDER BY c.created_at DESC
        LIMIT 1`
	var code domain.UserCode
	if err := r.pool.QueryRow(ctx, query, email, codeHash, purpose).Scan(
		&code.ID,
		&code.UserID,
		&code.CodeHash,
		&code.Purpose,
		&code.ExpiresAt,
		&code.Used,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *userCodeRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE user_codes SET used=TRUE
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
