package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearsight/auth-service/internal/domain"
)

// DoctorRepository manages doctor verification records.
type DoctorRepository interface {
	Create(ctx context.Context, verification *domain.DoctorVerification) error
	GetByUserID(ctx context.Context, userID string) (*domain.DoctorVerification, error)
	UpdateStatus(ctx context.Context, userID string, status domain.VerificationStatus, decidedBy string) error
}

type doctorRepository struct {
	pool *pgxpool.Pool
}

// NewDoctorRepository returns a Postgres-backed implementation.
func NewDoctorRepository(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepository{pool: pool}
}

func (r *doctorRepository) Create(ctx context.Context, verification *domain.DoctorVerification) error {
	const query = `
        INSERT INTO doctor_verifications (user_id, status)
        VALUES ($1, $2)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		verification.UserID,
		verification.Status,
	).Scan(&verification.CreatedAt, &verification.UpdatedAt)
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID string) (*domain.DoctorVerification, error) {
	const query = `
        SELECT user_id, status, decided_by, decided_at, created_at, updated_at
        FROM doctor_verifications WHERE user_id=$1`
	var verification domain.DoctorVerification
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&verification.UserID,
		&verification.Status,
		&verification.DecidedBy,
		&verification.DecidedAt,
		&verification.CreatedAt,
		&verification.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &verification, nil
}

func (r *doctorRepository) UpdateStatus(ctx context.Context, userID string, status domain.VerificationStatus, decidedBy string) error {
	const query = `
        UPDATE doctor_verifications
        SET status=$1, decided_by=$2, decided_at=NOW(), updated_at=NOW()
        WHERE user_id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, decidedBy, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
