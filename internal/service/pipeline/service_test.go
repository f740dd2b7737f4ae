package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/provider"
	"github.com/nebulacloud/console/internal/repository"
)

type memoryPipelineRepository struct {
	items map[string]*domain.Pipeline
}

func (m *memoryPipelineRepository) CreatePipeline(_ context.Context, p *domain.Pipeline) error {
	copy := *p
	m.items[p.ID] = &copy
	return nil
}

func (m *memoryPipelineRepository) ListPipelines(_ context.Context, userID string) ([]domain.Pipeline, error) {
	var out []domain.Pipeline
	for _, p := range m.items {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryPipelineRepository) GetPipeline(_ context.Context, userID, id string) (*domain.Pipeline, error) {
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *memoryPipelineRepository) UpdatePipelineStatus(_ context.Context, userID, id, status string, runAt time.Time) (*domain.Pipeline, error) {
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	p.Status = status
	at := runAt
	p.LastRunAt = &at
	p.UpdatedAt = runAt
	copy := *p
	return &copy, nil
}

func (m *memoryPipelineRepository) DeletePipeline(_ context.Context, userID, id string) error {
	p, ok := m.items[id]
	if !ok || p.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newService() Service {
	repo := &memoryPipelineRepository{items: make(map[string]*domain.Pipeline)}
	return New(repo, provider.Fixtures{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateDefaultsBranchAndIdle(t *testing.T) {
	svc := newService()
	p, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "api", RepositoryURL: "https://github.com/acme/api"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Branch != "main" || p.Status != domain.PipelineIdle || p.LastRunAt != nil {
		t.Fatalf("unexpected pipeline %+v", p)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	cases := []CreateInput{
		{RepositoryURL: "https://github.com/acme/api"},
		{Name: "api"},
		{Name: "api", RepositoryURL: "not a url"},
	}
	for _, input := range cases {
		if _, err := svc.Create(context.Background(), "user-1", input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
	if _, err := svc.Create(context.Background(), "user-1", CreateInput{Name: "api", RepositoryURL: "git@github.com:acme/api.git"}); err != nil {
		t.Fatalf("scp-style URL rejected: %v", err)
	}
}

func TestRunStopAndBuilds(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, "user-1", CreateInput{Name: "api", RepositoryURL: "https://github.com/acme/api"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	builds, err := svc.Builds(ctx, "user-1", p.ID)
	if err != nil {
		t.Fatalf("builds: %v", err)
	}
	if len(builds) != 0 {
		t.Fatalf("expected no builds before first run, got %d", len(builds))
	}

	running, err := svc.Run(ctx, "user-1", p.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if running.Status != domain.PipelineRunning || running.LastRunAt == nil {
		t.Fatalf("unexpected pipeline after run %+v", running)
	}
	stopped, err := svc.Stop(ctx, "user-1", p.ID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Status != domain.PipelineCancelled {
		t.Fatalf("expected cancelled, got %q", stopped.Status)
	}

	builds, err = svc.Builds(ctx, "user-1", p.ID)
	if err != nil {
		t.Fatalf("builds: %v", err)
	}
	if len(builds) != 3 || builds[0].Number != 3 {
		t.Fatalf("unexpected builds %+v", builds)
	}
	if _, err := svc.Run(ctx, "user-2", p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}
