package profile

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"log/slog"

	"github.com/pquerna/otp/totp"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/crypto"
)

const (
	maxDisplayName = 80
	maxBio         = 500
	maxCompany     = 120
)

var (
	errDisplayName   = domain.Invalid("display name must be at most 80 characters")
	errBio           = domain.Invalid("bio must be at most 500 characters")
	errCompany       = domain.Invalid("company must be at most 120 characters")
	errAvatarURL     = domain.Invalid("avatar URL must be an http(s) URL")
	errCodeRequired  = domain.Invalid("verification code required")
	errSetupRequired = domain.Invalid("two-factor setup has not been started")

	// ErrInvalidCode is returned when a TOTP code does not verify.
	ErrInvalidCode = errors.New("invalid verification code")
)

// Enrollment is returned when a two-factor secret is issued.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// Service manages the caller's profile row.
type Service struct {
	repo   repository.ProfileRepository
	box    *crypto.Box
	issuer string
	logger *slog.Logger
}

// New returns a profile service.
func New(repo repository.ProfileRepository, box *crypto.Box, issuer string, logger *slog.Logger) Service {
	if issuer == "" {
		issuer = "Nebula Cloud"
	}
	return Service{repo: repo, box: box, issuer: issuer, logger: logger}
}

// Get returns the caller's profile.
func (s Service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// Update replaces the editable fields.
func (s Service) Update(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	update.DisplayName = strings.TrimSpace(update.DisplayName)
	update.Bio = strings.TrimSpace(update.Bio)
	update.Company = strings.TrimSpace(update.Company)
	update.AvatarURL = strings.TrimSpace(update.AvatarURL)
	switch {
	case len(update.DisplayName) > maxDisplayName:
		return nil, errDisplayName
	case len(update.Bio) > maxBio:
		return nil, errBio
	case len(update.Company) > maxCompany:
		return nil, errCompany
	}
	if update.AvatarURL != "" {
		u, err := url.Parse(update.AvatarURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, errAvatarURL
		}
	}
	p, err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", userID)
	return p, nil
}

// SetupTwoFactor issues a fresh TOTP secret. It stays disabled until verified.
func (s Service) SetupTwoFactor(ctx context.Context, userID, email string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: email})
	if err != nil {
		return nil, err
	}
	sealed, err := s.box.Seal(key.Secret())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetTwoFactor(ctx, userID, sealed, false); err != nil {
		return nil, err
	}
	s.logger.Info("two-factor setup started", "user_id", userID)
	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyTwoFactor enables two-factor when code matches the pending secret.
func (s Service) VerifyTwoFactor(ctx context.Context, userID, code string) (*domain.Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errCodeRequired
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(p.TwoFactorSecret) == 0 {
		return nil, errSetupRequired
	}
	secret, err := s.box.Open(p.TwoFactorSecret)
	if err != nil {
		return nil, err
	}
	if !totp.Validate(code, secret) {
		s.logger.Warn("two-factor verification failed", "user_id", userID)
		return nil, ErrInvalidCode
	}
	if err := s.repo.SetTwoFactor(ctx, userID, p.TwoFactorSecret, true); err != nil {
		return nil, err
	}
	p.TwoFactorEnabled = true
	s.logger.Info("two-factor enabled", "user_id", userID)
	return p, nil
}
