package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/provider"
	"github.com/nebulacloud/console/internal/repository"
)

type stubBucketRepository struct {
	items map[string]domain.StorageBucket
}

func (s *stubBucketRepository) CreateBucket(_ context.Context, bucket *domain.StorageBucket) error {
	for _, b := range s.items {
		if b.UserID == bucket.UserID && b.Name == bucket.Name {
			return repository.ErrConflict
		}
	}
	s.items[bucket.ID] = *bucket
	return nil
}

func (s *stubBucketRepository) ListBuckets(_ context.Context, userID string) ([]domain.StorageBucket, error) {
	var out []domain.StorageBucket
	for _, b := range s.items {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBucketRepository) GetBucket(_ context.Context, userID, id string) (*domain.StorageBucket, error) {
	b, ok := s.items[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (s *stubBucketRepository) DeleteBucket(_ context.Context, userID, id string) error {
	b, ok := s.items[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func newService() Service {
	repo := &stubBucketRepository{items: make(map[string]domain.StorageBucket)}
	return New(repo, provider.Fixtures{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateBucket(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	bucket, err := svc.Create(ctx, "user-1", CreateInput{Name: "assets-prod"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bucket.MonthlyCost != 500 || bucket.FileCount != 0 || bucket.Region != "us-east-1" {
		t.Fatalf("unexpected bucket %+v", bucket)
	}
	if _, err := svc.Create(ctx, "user-1", CreateInput{Name: "assets-prod"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate name to be rejected, got %v", err)
	}
	if _, err := svc.Create(ctx, "user-2", CreateInput{Name: "assets-prod"}); err != nil {
		t.Fatalf("same name for another owner: %v", err)
	}
	for _, bad := range []string{"", "AB", "Has_Upper", "-leading"} {
		if _, err := svc.Create(ctx, "user-1", CreateInput{Name: bad}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("name %q: expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestFilesRequiresOwnership(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	bucket, err := svc.Create(ctx, "user-1", CreateInput{Name: "logs"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	files, err := svc.Files(ctx, "user-1", bucket.ID)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected fixture files")
	}
	if _, err := svc.Files(ctx, "user-2", bucket.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
