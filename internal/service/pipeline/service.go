package pipeline

import (
	"context"
	"net/url"
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
	Name          string `json:"name"`
	RepositoryURL string `json:"repository_url"`
	Branch        string `json:"branch"`
}

var (
	errNameRequired = domain.Invalid("pipeline name is required")
	errRepoRequired = domain.Invalid("repository URL is required")
	errRepoFormat   = domain.Invalid("repository URL must be an http(s) or git URL")
	errMissingID    = domain.Invalid("pipeline id required")
)

// Service manages pipeline metadata. Run and stop only write status labels.
type Service struct {
	repo   repository.PipelineRepository
	builds provider.BuildHistory
	logger *slog.Logger
	now    func() time.Time
}

// New returns a pipeline service.
func New(repo repository.PipelineRepository, builds provider.BuildHistory, logger *slog.Logger) Service {
	return Service{repo: repo, builds: builds, logger: logger, now: time.Now}
}

// Create records an idle pipeline.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.Pipeline, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	repoURL := strings.TrimSpace(input.RepositoryURL)
	if repoURL == "" {
		return nil, errRepoRequired
	}
	if !validRepositoryURL(repoURL) {
		return nil, errRepoFormat
	}
	branch := strings.TrimSpace(input.Branch)
	if branch == "" {
		branch = catalog.DefaultPipelineBranch
	}
	p := &domain.Pipeline{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		RepositoryURL: repoURL,
		Branch:        branch,
		Status:        domain.PipelineIdle,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreatePipeline(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("pipeline created", "user_id", userID, "pipeline_id", p.ID)
	return p, nil
}

// List returns the caller's pipelines.
func (s Service) List(ctx context.Context, userID string) ([]domain.Pipeline, error) {
	return s.repo.ListPipelines(ctx, userID)
}

// Run marks a pipeline running and stamps last_run_at.
func (s Service) Run(ctx context.Context, userID, id string) (*domain.Pipeline, error) {
	return s.transition(ctx, userID, id, domain.PipelineRunning)
}

// Stop marks a pipeline cancelled and stamps last_run_at.
func (s Service) Stop(ctx context.Context, userID, id string) (*domain.Pipeline, error) {
	return s.transition(ctx, userID, id, domain.PipelineCancelled)
}

func (s Service) transition(ctx context.Context, userID, id, status string) (*domain.Pipeline, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errMissingID
	}
	p, err := s.repo.UpdatePipelineStatus(ctx, userID, id, status, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("pipeline status changed", "user_id", userID, "pipeline_id", id, "status", status)
	return p, nil
}

// Delete removes a pipeline.
func (s Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.repo.DeletePipeline(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("pipeline deleted", "user_id", userID, "pipeline_id", id)
	return nil
}

// Builds returns the build history of an owned pipeline.
func (s Service) Builds(ctx context.Context, userID, id string) ([]domain.Build, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errMissingID
	}
	p, err := s.repo.GetPipeline(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.builds.Builds(ctx, *p)
}

func validRepositoryURL(raw string) bool {
	if strings.HasPrefix(raw, "git@") && strings.Contains(raw, ":") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh":
		return true
	}
	return false
}
