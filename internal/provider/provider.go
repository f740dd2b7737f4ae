// Package provider supplies the read-only collections that have no backing table:
// build history, bucket file listings, team members and API keys.
package provider

import (
	"context"

	"github.com/nebulacloud/console/internal/domain"
)

// BuildHistory lists recent builds of a pipeline.
type BuildHistory interface {
	Builds(ctx context.Context, pipeline domain.Pipeline) ([]domain.Build, error)
}

// FileListing lists the objects stored in a bucket.
type FileListing interface {
	ListFiles(ctx context.Context, bucket domain.StorageBucket) ([]domain.StoredFile, error)
}

// TeamDirectory lists the members visible to an account.
type TeamDirectory interface {
	Members(ctx context.Context, ownerID string) ([]domain.TeamMember, error)
}

// APIKeyStore lists the API keys of an account.
type APIKeyStore interface {
	APIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error)
}
