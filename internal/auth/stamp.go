package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/repository"
)

// ErrStampMismatch indicates the token carries a stale security stamp:
// credentials changed after it was issued, so it is logically revoked even
// though its signature and expiry are still valid.
var ErrStampMismatch = errors.New("security stamp mismatch")

// StampValidator gates authenticated requests by comparing the stamp
// embedded in a session token with the account's current stamp. This is how
// password and verification changes invalidate outstanding tokens without a
// revocation list.
type StampValidator struct {
	users repository.UserRepository
}

// NewStampValidator constructs the validator.
func NewStampValidator(users repository.UserRepository) *StampValidator {
	return &StampValidator{users: users}
}

// Validate loads the account for the token's subject and checks the embedded
// stamp byte-for-byte. A missing account fails closed.
func (v *StampValidator) Validate(ctx context.Context, claims Claims) (*domain.User, error) {
	subjectID, ok := claims.First(ClaimSubject)
	if !ok {
		return nil, errors.New("missing subject claim")
	}
	embedded, ok := claims.First(ClaimSecurityStamp)
	if !ok {
		return nil, errors.New("missing security stamp claim")
	}

	user, err := v.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStampMismatch
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(embedded), []byte(user.SecurityStamp)) != 1 {
		return nil, ErrStampMismatch
	}
	return user, nil
}
