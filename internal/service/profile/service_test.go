package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/crypto"
)

type stubProfileRepository struct {
	profiles map[string]*domain.Profile
}

func (s *stubProfileRepository) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *stubProfileRepository) UpdateProfile(_ context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.DisplayName = update.DisplayName
	p.Bio = update.Bio
	p.Company = update.Company
	p.AvatarURL = update.AvatarURL
	copy := *p
	return &copy, nil
}

func (s *stubProfileRepository) SetTwoFactor(_ context.Context, userID string, secret []byte, enabled bool) error {
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.TwoFactorSecret = secret
	p.TwoFactorEnabled = enabled
	return nil
}

func newService(t *testing.T) (Service, *stubProfileRepository) {
	t.Helper()
	box, err := crypto.NewBox("test-secret")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	repo := &stubProfileRepository{profiles: map[string]*domain.Profile{"user-1": {UserID: "user-1"}}}
	return New(repo, box, "", slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestUpdateTrimsAndValidates(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.Update(context.Background(), "user-1", domain.ProfileUpdate{DisplayName: "  Ada  ", Company: "Nebula"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.DisplayName != "Ada" || p.Company != "Nebula" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := svc.Update(context.Background(), "user-1", domain.ProfileUpdate{AvatarURL: "ftp://example.com/a.png"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for avatar URL, got %v", err)
	}
}

func TestTwoFactorEnrollment(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	if _, err := svc.VerifyTwoFactor(ctx, "user-1", "123456"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected setup-required error, got %v", err)
	}

	enrollment, err := svc.SetupTwoFactor(ctx, "user-1", "ada@example.com")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	stored := repo.profiles["user-1"]
	if stored.TwoFactorEnabled {
		t.Fatal("two-factor must stay disabled until verified")
	}
	if string(stored.TwoFactorSecret) == enrollment.Secret {
		t.Fatal("secret stored in plaintext")
	}

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := svc.VerifyTwoFactor(ctx, "user-1", wrongCode(code)); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	p, err := svc.VerifyTwoFactor(ctx, "user-1", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !p.TwoFactorEnabled || !repo.profiles["user-1"].TwoFactorEnabled {
		t.Fatal("expected two-factor enabled after verification")
	}
}

func wrongCode(code string) string {
	out := []byte(code)
	for i := range out {
		out[i] = '0' + (out[i]-'0'+5)%10
	}
	return string(out)
}
