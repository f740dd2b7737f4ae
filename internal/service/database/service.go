package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
	"github.com/nebulacloud/console/pkg/crypto"
)

// CreateInput holds the fields of the create form.
type CreateInput struct {
	Name         string `json:"name"`
	DatabaseType string `json:"database_type"`
	Version      string `json:"version"`
	InstanceSize string `json:"instance_size"`
	StorageGB    int    `json:"storage_gb"`
	Region       string `json:"region"`
}

var (
	errNameRequired = domain.Invalid("database name is required")
	errEngine       = domain.Invalid("unsupported database type")
	errRegion       = domain.Invalid("unknown region")
	errStorage      = domain.Invalid("storage must be between 10 and 4096 GB")
	errStatus       = domain.Invalid("status must be one of creating, running, stopped, error")
	errMissingID    = domain.Invalid("database id required")
)

var enginePorts = map[string]int{
	"postgresql": 5432,
	"mysql":      3306,
	"mongodb":    27017,
	"redis":      6379,
}

// Service manages managed database records. Connection strings are sealed at rest.
type Service struct {
	repo   repository.DatabaseRepository
	box    *crypto.Box
	logger *slog.Logger
	now    func() time.Time
}

// New returns a database service.
func New(repo repository.DatabaseRepository, box *crypto.Box, logger *slog.Logger) Service {
	return Service{repo: repo, box: box, logger: logger, now: time.Now}
}

// Create records a database in the creating state.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.ManagedDatabase, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	engine := strings.ToLower(defaultString(input.DatabaseType, catalog.DefaultDatabaseType))
	if !catalog.ValidDatabaseEngine(engine) {
		return nil, errEngine
	}
	region := defaultString(input.Region, catalog.DefaultRegion)
	if !catalog.ValidRegion(region) {
		return nil, errRegion
	}
	storage := input.StorageGB
	if storage == 0 {
		storage = catalog.DefaultStorageGB
	}
	if storage < 10 || storage > 4096 {
		return nil, errStorage
	}
	size := defaultString(input.InstanceSize, catalog.DefaultDatabaseSize)
	db := &domain.ManagedDatabase{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		DatabaseType: engine,
		Version:      defaultString(input.Version, catalog.DefaultDatabaseVer),
		InstanceSize: size,
		StorageGB:    storage,
		Region:       region,
		Status:       domain.DatabaseCreating,
		MonthlyCost:  catalog.DatabasePrice(size),
		CreatedAt:    s.now().UTC(),
	}
	db.ConnectionString = connectionString(db)
	sealed, err := s.box.Seal(db.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("seal connection string: %w", err)
	}
	db.EncryptedConnection = sealed
	if err := s.repo.CreateDatabase(ctx, db); err != nil {
		return nil, err
	}
	s.logger.Info("database created", "user_id", userID, "database_id", db.ID, "engine", engine)
	return db, nil
}

// List returns the caller's databases with connection strings opened.
func (s Service) List(ctx context.Context, userID string) ([]domain.ManagedDatabase, error) {
	dbs, err := s.repo.ListDatabases(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range dbs {
		s.open(&dbs[i])
	}
	return dbs, nil
}

// SetStatus writes a new status label.
func (s Service) SetStatus(ctx context.Context, userID, id, status string) (*domain.ManagedDatabase, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errMissingID
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.ValidDatabaseStatus(status) {
		return nil, errStatus
	}
	db, err := s.repo.UpdateDatabaseStatus(ctx, userID, id, status)
	if err != nil {
		return nil, err
	}
	s.open(db)
	s.logger.Info("database status changed", "user_id", userID, "database_id", id, "status", status)
	return db, nil
}

// Delete removes a database.
func (s Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.repo.DeleteDatabase(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("database deleted", "user_id", userID, "database_id", id)
	return nil
}

func (s Service) open(db *domain.ManagedDatabase) {
	plain, err := s.box.Open(db.EncryptedConnection)
	if err != nil {
		s.logger.Warn("connection string unreadable", "database_id", db.ID, "error", err)
		return
	}
	db.ConnectionString = plain
}

func connectionString(db *domain.ManagedDatabase) string {
	host := fmt.Sprintf("%s.%s.db.nebula.cloud", db.ID[:8], db.Region)
	scheme := db.DatabaseType
	if scheme == "postgresql" {
		scheme = "postgres"
	}
	return fmt.Sprintf("%s://admin@%s:%d/%s", scheme, host, enginePorts[db.DatabaseType], slug(db.Name))
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
