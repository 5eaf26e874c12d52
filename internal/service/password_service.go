package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/config"
	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
	"github.com/clearsight/auth-service/internal/repository"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

// Stable failure messages for the code-based flows. "Wrong code", "expired"
// and "already used" are deliberately indistinguishable.
const (
	MsgInvalidCode        = "Invalid or expired verification code."
	MsgInvalidCredentials = "Current password is incorrect."
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 5

// PasswordService implements the reset-code and change-password flows.
// Any password mutation regenerates the security stamp and revokes every
// refresh token, so all outstanding sessions die at once.
type PasswordService struct {
	users      repository.UserRepository
	codes      repository.UserCodeRepository
	tokens     repository.RefreshTokenRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	confirmTTL time.Duration
	now        func() time.Time
}

// PasswordDependencies encapsulates repo requirements.
type PasswordDependencies struct {
	UserRepo         repository.UserRepository
	UserCodeRepo     repository.UserCodeRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Dispatcher       events.Dispatcher
}

// NewPasswordService builds the service.
func NewPasswordService(cfg config.Config, deps PasswordDependencies, logger *zap.Logger) *PasswordService {
	return &PasswordService{
		users:      deps.UserRepo,
		codes:      deps.UserCodeRepo,
		tokens:     deps.RefreshTokenRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   cfg.Auth.ResetCodeTTL(),
		confirmTTL: cfg.Auth.ConfirmCodeTTL(),
		now:        time.Now,
	}
}

// RequestResetCode generates a short-lived single-use code for the account
// and stores only its digest. The plaintext travels in the published event
// for out-of-band delivery and is never persisted.
func (s *PasswordService) RequestResetCode(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("email", nil)
		}
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	record := &domain.UserCode{
		UserID:    user.ID,
		CodeHash:  HashCode(code),
		Purpose:   domain.CodePurposeResetPassword,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user.ID, events.CodeIssuedPayload{
		Email:     user.Email,
		FullName:  user.FullName,
		Code:      code,
		ExpiresAt: record.ExpiresAt,
	})
	return nil
}

// ConfirmReset redeems a reset code and replaces the account password. The
// security stamp is regenerated and all refresh tokens revoked.
func (s *PasswordService) ConfirmReset(ctx context.Context, email, code, newPassword string) error {
	record, err := s.codes.GetActiveByHash(ctx, email, HashCode(code), domain.CodePurposeResetPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError(MsgInvalidCode, nil)
		}
		return err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	if err := s.codes.MarkUsed(ctx, record.ID); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)
	return nil
}

// ChangePassword verifies the current password before updating to the new
// hash. Same invalidation policy as ConfirmReset.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError(MsgInvalidCredentials, nil)
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordChanged, user.ID, nil)
	return nil
}

// RequestEmailConfirmation issues a confirmation code for a newly
// registered account.
func (s *PasswordService) RequestEmailConfirmation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("email", nil)
		}
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	record := &domain.UserCode{
		UserID:    user.ID,
		CodeHash:  HashCode(code),
		Purpose:   domain.CodePurposeConfirmEmail,
		ExpiresAt: s.now().Add(s.confirmTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return err
	}

	s.publish(ctx, events.EventEmailConfirmationRequested, user.ID, events.CodeIssuedPayload{
		Email:     user.Email,
		FullName:  user.FullName,
		Code:      code,
		ExpiresAt: record.ExpiresAt,
	})
	return nil
}

// ConfirmEmail redeems a confirmation code and marks the account confirmed.
func (s *PasswordService) ConfirmEmail(ctx context.Context, email, code string) error {
	record, err := s.codes.GetActiveByHash(ctx, email, HashCode(code), domain.CodePurposeConfirmEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError(MsgInvalidCode, nil)
		}
		return err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return err
	}
	user.EmailConfirmed = true
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.codes.MarkUsed(ctx, record.ID)
}

// setPassword writes the new hash, rotates the security stamp and revokes
// every refresh token for the account.
func (s *PasswordService) setPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.SecurityStamp = uuid.NewString()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, user.ID)
}

func (s *PasswordService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// HashCode returns the SHA-256 hex digest under which a code is stored.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode produces a 5-character uppercase alphanumeric code.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
