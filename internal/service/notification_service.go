package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/events"
)

// Sender delivers a message out-of-band. Actual delivery (SMTP, provider
// API) lives outside this service; the default sender only logs.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the no-delivery fallback used in development.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message instead of delivering it.
func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.Logger.Info("outbound message", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// NotificationService turns auth lifecycle events into outbound messages.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handleCodeIssued("Your password reset code"))
	n.dispatcher.Subscribe(events.EventEmailConfirmationRequested, n.handleCodeIssued("Confirm your email"))
	n.dispatcher.Subscribe(events.EventAccountLocked, n.handleAccountLocked)
	n.dispatcher.Subscribe(events.EventDoctorVerificationChanged, n.handleVerificationChanged)
}

func (n *NotificationService) handleCodeIssued(subject string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.CodeIssuedPayload)
		if !ok {
			return nil
		}
		return n.sender.Send(ctx, payload.Email, subject, payload.Code)
	}
}

func (n *NotificationService) handleAccountLocked(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccountLockedPayload)
	if !ok {
		return nil
	}
	n.logger.Warn("account locked",
		zap.String("user_id", event.UserID),
		zap.Time("until", payload.LockoutUntil))
	return n.sender.Send(ctx, payload.Email, "Account locked", "Your account has been temporarily locked.")
}

func (n *NotificationService) handleVerificationChanged(_ context.Context, event events.Event) error {
	n.logger.Info("doctor verification changed", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}
