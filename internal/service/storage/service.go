package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/provider"
	"github.com/nebulacloud/console/internal/repository"
)

// CreateInput holds the fields of the create form.
type CreateInput struct {
	Name         string `json:"name"`
	Region       string `json:"region"`
	PublicAccess bool   `json:"public_access"`
}

var bucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

var (
	errNameRequired = domain.Invalid("bucket name is required")
	errNameFormat   = domain.Invalid("bucket name must be 3-63 lowercase letters, digits, dots or hyphens")
	errNameTaken    = domain.Invalid("a bucket with this name already exists")
	errRegion       = domain.Invalid("unknown region")
	errMissingID    = domain.Invalid("bucket id required")
)

// Service manages storage bucket records.
type Service struct {
	repo   repository.BucketRepository
	files  provider.FileListing
	logger *slog.Logger
	now    func() time.Time
}

// New returns a storage service.
func New(repo repository.BucketRepository, files provider.FileListing, logger *slog.Logger) Service {
	return Service{repo: repo, files: files, logger: logger, now: time.Now}
}

// Create records an empty bucket at the flat monthly fee.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.StorageBucket, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	if !bucketName.MatchString(name) {
		return nil, errNameFormat
	}
	region := strings.TrimSpace(input.Region)
	if region == "" {
		region = catalog.DefaultRegion
	}
	if !catalog.ValidRegion(region) {
		return nil, errRegion
	}
	bucket := &domain.StorageBucket{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Region:       region,
		PublicAccess: input.PublicAccess,
		MonthlyCost:  catalog.BucketMonthlyCost,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateBucket(ctx, bucket); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errNameTaken
		}
		return nil, err
	}
	s.logger.Info("bucket created", "user_id", userID, "bucket_id", bucket.ID)
	return bucket, nil
}

// List returns the caller's buckets.
func (s Service) List(ctx context.Context, userID string) ([]domain.StorageBucket, error) {
	return s.repo.ListBuckets(ctx, userID)
}

// Delete removes a bucket record.
func (s Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.repo.DeleteBucket(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("bucket deleted", "user_id", userID, "bucket_id", id)
	return nil
}

// Files lists the objects of an owned bucket.
func (s Service) Files(ctx context.Context, userID, id string) ([]domain.StoredFile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errMissingID
	}
	bucket, err := s.repo.GetBucket(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.files.ListFiles(ctx, *bucket)
}
