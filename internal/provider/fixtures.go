package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/nebulacloud/console/internal/domain"
)

// Fixtures serves deterministic demo data for every provider interface.
type Fixtures struct{}

var (
	_ BuildHistory  = Fixtures{}
	_ FileListing   = Fixtures{}
	_ TeamDirectory = Fixtures{}
	_ APIKeyStore   = Fixtures{}
)

var fixtureEpoch = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

type buildSeed struct {
	status   string
	commit   string
	message  string
	author   string
	offset   time.Duration
	duration time.Duration
}

var buildSeeds = []buildSeed{
	{status: domain.PipelineRunning, commit: "i7j8k9l", message: "Add new feature", author: "bob.wilson@example.com", offset: 11 * time.Hour},
	{status: domain.PipelineSuccess, commit: "a1b2c3d", message: "Fix authentication bug", author: "john.doe@example.com", offset: 10*time.Hour + 30*time.Minute, duration: 5 * time.Minute},
	{status: domain.PipelineFailed, commit: "e4f5g6h", message: "Update dependencies", author: "jane.smith@example.com", offset: 9*time.Hour + 15*time.Minute, duration: 7 * time.Minute},
}

// Builds returns the three demo builds, newest first, only once the pipeline has run.
func (Fixtures) Builds(_ context.Context, pipeline domain.Pipeline) ([]domain.Build, error) {
	if pipeline.LastRunAt == nil {
		return []domain.Build{}, nil
	}
	out := make([]domain.Build, 0, len(buildSeeds))
	for i, seed := range buildSeeds {
		out = append(out, domain.Build{
			ID:         fmt.Sprintf("%s-build-%d", pipeline.ID, len(buildSeeds)-i),
			PipelineID: pipeline.ID,
			Number:     len(buildSeeds) - i,
			Commit:     seed.commit,
			Message:    seed.message,
			Author:     seed.author,
			Status:     seed.status,
			Duration:   seed.duration,
			StartedAt:  fixtureEpoch.Add(seed.offset),
		})
	}
	return out, nil
}

// ListFiles returns the demo objects for any bucket.
func (Fixtures) ListFiles(_ context.Context, bucket domain.StorageBucket) ([]domain.StoredFile, error) {
	return []domain.StoredFile{
		{Key: "product-image.jpg", SizeBytes: 2048576, ContentType: "image/jpeg", LastModified: fixtureEpoch.Add(10*time.Hour + 30*time.Minute)},
		{Key: "user-manual.pdf", SizeBytes: 5242880, ContentType: "application/pdf", LastModified: fixtureEpoch.Add(-8*time.Hour - 15*time.Minute)},
		{Key: "backup-data.zip", SizeBytes: 104857600, ContentType: "application/zip", LastModified: fixtureEpoch.Add(-38*time.Hour - 40*time.Minute)},
	}, nil
}

// Members returns the demo team.
func (Fixtures) Members(_ context.Context, _ string) ([]domain.TeamMember, error) {
	return []domain.TeamMember{
		{ID: "1", Name: "John Doe", Email: "john@example.com", Role: "Admin", Status: "active", LastSeen: fixtureEpoch.Add(10*time.Hour + 30*time.Minute)},
		{ID: "2", Name: "Jane Smith", Email: "jane@example.com", Role: "Developer", Status: "active", LastSeen: fixtureEpoch.Add(-8*time.Hour - 15*time.Minute)},
		{ID: "3", Name: "Bob Wilson", Email: "bob@example.com", Role: "Viewer", Status: "inactive", LastSeen: fixtureEpoch.Add(-5*24*time.Hour + 9*time.Hour + 20*time.Minute)},
	}, nil
}

// APIKeys returns the demo keys with their secrets masked.
func (Fixtures) APIKeys(_ context.Context, _ string) ([]domain.APIKey, error) {
	used := fixtureEpoch.Add(14*time.Hour + 30*time.Minute)
	return []domain.APIKey{
		{ID: "1", Name: "Production API Key", Prefix: maskKey("neb_prod_1a2b3c4d5e6f7g8h9i0j"), Scopes: []string{"read:all", "write:vps", "write:database"}, CreatedAt: fixtureEpoch.Add(-14 * 24 * time.Hour), LastUsed: &used},
		{ID: "2", Name: "Development API Key", Prefix: maskKey("neb_dev_k1l2m3n4o5p6q7r8s9t0"), Scopes: []string{"read:all"}, CreatedAt: fixtureEpoch.Add(-5 * 24 * time.Hour)},
	}, nil
}

func maskKey(key string) string {
	const visible = 12
	if len(key) <= visible {
		return key
	}
	return key[:visible] + "••••••••"
}
