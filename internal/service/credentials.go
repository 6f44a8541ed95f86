package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/validator"
)

const (
	msgEmailTaken   = "user with this email already exists"
	msgEmailInvalid = "Enter a valid email address."
)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Anything that does not look like a single mailbox is a validation error
// on the "email" field.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.FieldInvalid("email", "is required")
	}
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" {
		return "", apperrors.FieldInvalid("email", msgEmailInvalid)
	}
	if err := validator.Var(email, "email"); err != nil {
		return "", apperrors.FieldInvalid("email", msgEmailInvalid)
	}
	return email, nil
}

// UserExtra carries the optional flags accepted by CreateUser.
type UserExtra struct {
	IsStaff    bool
	IsAdmin    bool
	IsVerified bool
}

// CredentialStore owns user records and their password hashes.
type CredentialStore struct {
	users      repository.UserRepository
	cost       int
	minPassLen int
	now        func() time.Time
}

// NewCredentialStore creates a CredentialStore hashing with the given bcrypt
// cost and rejecting passwords shorter than minPassLen characters.
func NewCredentialStore(users repository.UserRepository, cost, minPassLen int) *CredentialStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{
		users:      users,
		cost:       cost,
		minPassLen: minPassLen,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *CredentialStore) checkPassword(password string) error {
	if utf8.RuneCountInString(password) < s.minPassLen {
		return apperrors.FieldInvalid("password",
			fmt.Sprintf("Ensure this field has at least %d characters.", s.minPassLen))
	}
	// bcrypt silently ignores everything past 72 bytes.
	if len(password) > 72 {
		return apperrors.FieldInvalid("password", "Ensure this field has no more than 72 bytes.")
	}
	return nil
}

func (s *CredentialStore) hash(password string) (string, error) {
	if err := s.checkPassword(password); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateUser validates and persists a new, active, unverified user.
func (s *CredentialStore) CreateUser(ctx context.Context, email, password, name string, extra UserExtra) (*domain.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.FieldInvalid("name", "This field may not be blank.")
	}

	if _, err := s.users.GetByEmail(ctx, normalized); err == nil {
		return nil, apperrors.FieldInvalid("email", msgEmailTaken)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        normalized,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   extra.IsVerified,
		IsStaff:      extra.IsStaff,
		IsAdmin:      extra.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Lost a race with a concurrent registration of the same address.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.FieldInvalid("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// CreateSuperuser creates a staff admin. Admins bypass the verification
// gate, so the name defaults to the local part of the address.
func (s *CredentialStore) CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error) {
	name, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return s.CreateUser(ctx, email, password, name, UserExtra{IsStaff: true, IsAdmin: true})
}

// SetPassword rehashes and stores a new password for the user. Outstanding
// reset tokens stop validating because they are bound to the old hash.
func (s *CredentialStore) SetPassword(ctx context.Context, userID, password string) (*domain.User, error) {
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.UpdateFunc(ctx, userID, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	return u, nil
}

// UpdateProfile applies a partial update atomically. When the normalized
// email differs from the stored one the user drops back to unverified and
// emailChanged is true.
func (s *CredentialStore) UpdateProfile(ctx context.Context, userID string, changes domain.ProfileChanges) (*domain.User, bool, error) {
	var (
		name, email, hash string
		err               error
	)
	if changes.Name != nil {
		name = strings.TrimSpace(*changes.Name)
		if name == "" {
			return nil, false, apperrors.FieldInvalid("name", "This field may not be blank.")
		}
	}
	if changes.Email != nil {
		if email, err = NormalizeEmail(*changes.Email); err != nil {
			return nil, false, err
		}
	}
	if changes.Password != nil {
		if hash, err = s.hash(*changes.Password); err != nil {
			return nil, false, err
		}
	}

	emailChanged := false
	u, err := s.users.UpdateFunc(ctx, userID, func(u *domain.User) error {
		emailChanged = false
		if changes.Name != nil {
			u.Name = name
		}
		if changes.Email != nil && email != u.Email {
			u.Email = email
			u.IsVerified = false
			emailChanged = true
		}
		if changes.Password != nil {
			u.PasswordHash = hash
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, false, apperrors.FieldInvalid("email", msgEmailTaken)
		}
		return nil, false, fmt.Errorf("update profile: %w", err)
	}
	return u, emailChanged, nil
}

// VerifyPassword reports whether password matches the user's stored hash.
func (s *CredentialStore) VerifyPassword(u *domain.User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// MarkVerified flips is_verified on. Verifying twice is not an error; the
// second call reports alreadyVerified and writes nothing.
func (s *CredentialStore) MarkVerified(ctx context.Context, userID string) (*domain.User, bool, error) {
	already := false
	u, err := s.users.UpdateFunc(ctx, userID, func(u *domain.User) error {
		if u.IsVerified {
			already = true
			return repository.ErrSkipUpdate
		}
		u.IsVerified = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("mark verified: %w", err)
	}
	return u, already, nil
}

// Get loads a user by id.
func (s *CredentialStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// FindByEmail normalizes email and loads the matching user.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.users.GetByEmail(ctx, normalized)
}
