package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/config"
)

type userRepoMock struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newUserRepoMock() *userRepoMock {
	return &userRepoMock{users: make(map[string]*domain.User)}
}

func (m *userRepoMock) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *userRepoMock) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour}
}

func TestSignupThenLoginThenAuthorize(t *testing.T) {
	repo := newUserRepoMock()
	svc := New(repo, newLogger(), testConfig())

	user, tokens, err := svc.Signup(context.Background(), "  Ada@Example.com ", "lovelace")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if tokens.AccessToken == "" || tokens.ExpiresIn != time.Hour {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}

	_, loginTokens, err := svc.Login(context.Background(), "ADA@example.com", "lovelace")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	got, claims, err := svc.Authorize(context.Background(), loginTokens.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got.ID != user.ID || claims.UserID != user.ID {
		t.Fatalf("authorize returned wrong user: %s / %s", got.ID, claims.UserID)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := New(newUserRepoMock(), newLogger(), testConfig())
	if _, _, err := svc.Signup(context.Background(), "not-an-email", "lovelace"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for bad email, got %v", err)
	}
	if _, _, err := svc.Signup(context.Background(), "a@b.co", "123"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for short password, got %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := New(newUserRepoMock(), newLogger(), testConfig())
	if _, _, err := svc.Signup(context.Background(), "a@b.co", "password"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, _, err := svc.Signup(context.Background(), "a@b.co", "password")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := New(newUserRepoMock(), newLogger(), testConfig())
	if _, _, err := svc.Signup(context.Background(), "a@b.co", "password"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "a@b.co", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ghost@b.co", "password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthorizeRejectsEmptyToken(t *testing.T) {
	svc := New(newUserRepoMock(), newLogger(), testConfig())
	if _, _, err := svc.Authorize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
