package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/GymTrack/internal/auth"
	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/notify"
	"github.com/utafrali/GymTrack/internal/repository"
	"github.com/utafrali/GymTrack/internal/repository/memory"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// --- In-memory user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User

	// getErr, when set, is returned from every read.
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r *fakeUserRepo) UpdateFunc(_ context.Context, id string, fn func(u *domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	if err := fn(&u); err != nil {
		if errors.Is(err, repository.ErrSkipUpdate) {
			stored := r.users[id]
			return &stored, nil
		}
		return nil, err
	}
	for otherID, other := range r.users {
		if otherID != id && other.Email == u.Email {
			return nil, apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	r.users[id] = u
	return &u, nil
}

// insert stores u directly, hashing password at the minimum cost.
func (r *fakeUserRepo) insert(t *testing.T, u domain.User, password string) *domain.User {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(h)
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return &u
}

func (r *fakeUserRepo) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

// --- Recording notification sender ---

type sentEmail struct {
	To, Subject, Body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, Body: body})
	return s.err
}

func (s *recordingSender) messages() []sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentEmail(nil), s.sent...)
}

var _ notify.Sender = (*recordingSender)(nil)

var linkPattern = regexp.MustCompile(`https?://\S+`)

// linkIn extracts the single URL from an email body.
func linkIn(t *testing.T, body string) string {
	t.Helper()
	link := linkPattern.FindString(body)
	require.NotEmpty(t, link, "no link in body %q", body)
	return link
}

// --- Mock event publisher ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockEventPublisher) PublishUserVerified(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockEventPublisher) PublishUserUpdated(ctx context.Context, u *domain.User, emailChanged, passwordChanged bool) error {
	return m.Called(ctx, u, emailChanged, passwordChanged).Error(0)
}

func (m *mockEventPublisher) PublishUserPasswordReset(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}

// --- Fixture ---

const testBaseURL = "https://gymtrack.test"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	m, err := auth.NewTokenManager(auth.Config{
		Secret:     "test-secret-key-for-testing-only",
		Issuer:     "gymtrack",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		VerifyTTL:  24 * time.Hour,
		ResetTTL:   72 * time.Hour,
	})
	require.NoError(t, err)
	return m
}

type accountFixture struct {
	svc     *AccountService
	users   *fakeUserRepo
	creds   *CredentialStore
	tokens  *auth.TokenManager
	revoked *memory.RevocationList
	mail    *recordingSender
}

// newAccountFixture wires an AccountService without an event publisher.
func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	return newAccountFixtureWithEvents(t, nil)
}

func newAccountFixtureWithEvents(t *testing.T, events EventPublisher) *accountFixture {
	t.Helper()
	f := &accountFixture{
		users:   newFakeUserRepo(),
		tokens:  newTestTokens(t),
		revoked: memory.NewRevocationList(),
		mail:    &recordingSender{},
	}
	f.creds = NewCredentialStore(f.users, bcrypt.MinCost, 5)
	f.svc = NewAccountService(f.creds, f.tokens, f.revoked, f.mail, events, testBaseURL+"/", newTestLogger())
	return f
}

// verifiedUser inserts an active, verified user.
func (f *accountFixture) verifiedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	return f.users.insert(t, domain.User{
		ID:         "7b0c4a52-5d8e-4c44-9b76-2f0c59a1c2d3",
		Email:      email,
		Name:       "Vera",
		IsActive:   true,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, password)
}
