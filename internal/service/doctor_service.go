package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
	"github.com/clearsight/auth-service/internal/repository"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

// DoctorService handles verification decisions for doctor accounts.
type DoctorService struct {
	users      repository.UserRepository
	doctors    repository.DoctorRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewDoctorService builds the service.
func NewDoctorService(users repository.UserRepository, doctors repository.DoctorRepository, dispatcher events.Dispatcher, logger *zap.Logger) *DoctorService {
	return &DoctorService{
		users:      users,
		doctors:    doctors,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Decide sets the verification status of a doctor account and rotates the
// account's security stamp, so session tokens carrying the old status stop
// validating immediately instead of living until expiry.
func (s *DoctorService) Decide(ctx context.Context, doctorUserID, status, decidedBy string) error {
	if !domain.IsKnownVerificationStatus(status) {
		return apperrors.NewValidationError("unknown verification status", map[string]any{"status": status})
	}

	verification, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("doctor", nil)
		}
		return err
	}

	newStatus := domain.VerificationStatus(status)
	if verification.Status == newStatus {
		return nil
	}

	if err := s.doctors.UpdateStatus(ctx, doctorUserID, newStatus, decidedBy); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, doctorUserID)
	if err != nil {
		return err
	}
	user.SecurityStamp = uuid.NewString()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDoctorVerificationChanged,
			UserID:    doctorUserID,
			Timestamp: s.now(),
			Payload: events.DoctorVerificationChangedPayload{
				OldStatus: verification.Status,
				NewStatus: newStatus,
				DecidedBy: decidedBy,
			},
		})
	}

	s.logger.Info("doctor verification decided",
		zap.String("user_id", doctorUserID),
		zap.String("status", status))
	return nil
}
