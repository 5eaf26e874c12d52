package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/events"
	"github.com/clearsight/auth-service/internal/repository"
)

// In-memory repository fakes. They mirror the contract of the Postgres
// implementations, including pgx.ErrNoRows for missing rows.

type fakeUserRepo struct {
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) AddRole(_ context.Context, userID string, role domain.Role) error {
	user, ok := r.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, existing := range user.Roles {
		if existing == role {
			return nil
		}
	}
	user.Roles = append(user.Roles, role)
	return nil
}

type fakeRefreshRepo struct {
	seq    int
	tokens []*domain.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{}
}

func (r *fakeRefreshRepo) Create(_ context.Context, token *domain.RefreshToken) error {
	r.seq++
	token.ID = fmt.Sprintf("rt-%d", r.seq)
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens = append(r.tokens, &copied)
	return nil
}

func (r *fakeRefreshRepo) GetActiveByUserID(_ context.Context, userID string) (*domain.RefreshToken, error) {
	now := time.Now()
	for i := len(r.tokens) - 1; i >= 0; i-- {
		token := r.tokens[i]
		if token.UserID == userID && token.IsActive(now) {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefreshRepo) GetByToken(_ context.Context, tokenStr string) (*domain.RefreshToken, error) {
	for _, token := range r.tokens {
		if token.Token == tokenStr {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefreshRepo) Rotate(ctx context.Context, presented string, replacement *domain.RefreshToken) (*domain.RefreshToken, error) {
	for _, token := range r.tokens {
		if token.Token != presented {
			continue
		}
		if !token.IsActive(time.Now()) {
			return nil, repository.ErrTokenInactive
		}
		now := time.Now()
		token.RevokedAt = &now
		replacement.UserID = token.UserID
		if err := r.Create(ctx, replacement); err != nil {
			return nil, err
		}
		copied := *token
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRefreshRepo) Revoke(_ context.Context, tokenStr string) error {
	for _, token := range r.tokens {
		if token.Token != tokenStr {
			continue
		}
		if !token.IsActive(time.Now()) {
			return repository.ErrTokenInactive
		}
		now := time.Now()
		token.RevokedAt = &now
		return nil
	}
	return pgx.ErrNoRows
}

func (r *fakeRefreshRepo) RevokeAllForUser(_ context.Context, userID string) error {
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			revokedAt := now
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *fakeRefreshRepo) DeleteExpiredRevoked(_ context.Context, before time.Time) (int64, error) {
	kept := r.tokens[:0]
	var deleted int64
	for _, token := range r.tokens {
		if token.RevokedAt != nil && token.ExpiresAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, token)
	}
	r.tokens = kept
	return deleted, nil
}

func (r *fakeRefreshRepo) activeCount(userID string) int {
	now := time.Now()
	count := 0
	for _, token := range r.tokens {
		if token.UserID == userID && token.IsActive(now) {
			count++
		}
	}
	return count
}

type fakeDoctorRepo struct {
	verifications map[string]*domain.DoctorVerification
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{verifications: make(map[string]*domain.DoctorVerification)}
}

func (r *fakeDoctorRepo) Create(_ context.Context, verification *domain.DoctorVerification) error {
	verification.CreatedAt = time.Now()
	verification.UpdatedAt = verification.CreatedAt
	copied := *verification
	r.verifications[verification.UserID] = &copied
	return nil
}

func (r *fakeDoctorRepo) GetByUserID(_ context.Context, userID string) (*domain.DoctorVerification, error) {
	verification, ok := r.verifications[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *verification
	return &copied, nil
}

func (r *fakeDoctorRepo) UpdateStatus(_ context.Context, userID string, status domain.VerificationStatus, decidedBy string) error {
	verification, ok := r.verifications[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	verification.Status = status
	verification.DecidedBy = &decidedBy
	verification.DecidedAt = &now
	verification.UpdatedAt = now
	return nil
}

type fakeCodeRepo struct {
	seq   int
	users *fakeUserRepo
	codes []*domain.UserCode
}

func newFakeCodeRepo(users *fakeUserRepo) *fakeCodeRepo {
	return &fakeCodeRepo{users: users}
}

func (r *fakeCodeRepo) Create(_ context.Context, code *domain.UserCode) error {
	r.seq++
	code.ID = fmt.Sprintf("code-%d", r.seq)
	code.CreatedAt = time.Now()
	copied := *code
	r.codes = append(r.codes, &copied)
	return nil
}

func (r *fakeCodeRepo) GetActiveByHash(ctx context.Context, email, codeHash string, purpose domain.CodePurpose) (*domain.UserCode, error) {
	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for i := len(r.codes) - 1; i >= 0; i-- {
		code := r.codes[i]
		if code.UserID == user.ID && code.CodeHash == codeHash && code.Purpose == purpose &&
			!code.Used && code.ExpiresAt.After(now) {
			copied := *code
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id string) error {
	for _, code := range r.codes {
		if code.ID == id {
			code.Used = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

// recordingDispatcher collects published events for assertions.
type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) lastOfType(eventType events.EventType) (events.Event, bool) {
	for i := len(d.events) - 1; i >= 0; i-- {
		if d.events[i].Type == eventType {
			return d.events[i], true
		}
	}
	return events.Event{}, false
}
