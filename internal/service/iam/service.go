package iam

import (
	"context"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/provider"
)

// Service serves the team and API key listings.
type Service struct {
	team provider.TeamDirectory
	keys provider.APIKeyStore
}

// New returns an IAM service.
func New(team provider.TeamDirectory, keys provider.APIKeyStore) Service {
	return Service{team: team, keys: keys}
}

// Members lists the members of the caller's team.
func (s Service) Members(ctx context.Context, ownerID string) ([]domain.TeamMember, error) {
	return s.team.Members(ctx, ownerID)
}

// APIKeys lists the caller's API keys with secrets masked.
func (s Service) APIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	return s.keys.APIKeys(ctx, ownerID)
}
