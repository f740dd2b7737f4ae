package vps

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
)

// CreateInput holds the fields of the create form.
type CreateInput struct {
	Name         string `json:"name"`
	InstanceType string `json:"instance_type"`
	Region       string `json:"region"`
	Image        string `json:"image"`
	StorageGB    int    `json:"storage_gb"`
}

var (
	errNameRequired = domain.Invalid("instance name is required")
	errInstanceType = domain.Invalid("unknown instance type")
	errRegion       = domain.Invalid("unknown region")
	errImage        = domain.Invalid("unknown image")
	errStorage      = domain.Invalid("storage must be between 10 and 2048 GB")
	errStatus       = domain.Invalid("status must be one of stopped, starting, running, stopping")
	errMissingID    = domain.Invalid("instance id required")
)

// Service manages VPS instance records.
type Service struct {
	repo   repository.VPSRepository
	logger *slog.Logger
	now    func() time.Time
	ip     func() string
}

// New returns a VPS service.
func New(repo repository.VPSRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger, now: time.Now, ip: privateIP}
}

// Create records a stopped instance priced from the catalog.
func (s Service) Create(ctx context.Context, userID string, input CreateInput) (*domain.VPSInstance, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	typeName := strings.TrimSpace(input.InstanceType)
	if typeName == "" {
		typeName = catalog.DefaultInstanceType
	}
	it, err := catalog.LookupInstanceType(typeName)
	if err != nil {
		return nil, errInstanceType
	}
	region := defaultString(input.Region, catalog.DefaultRegion)
	if !catalog.ValidRegion(region) {
		return nil, errRegion
	}
	image := defaultString(input.Image, catalog.DefaultImage)
	if !catalog.ValidImage(image) {
		return nil, errImage
	}
	storage := input.StorageGB
	if storage == 0 {
		storage = catalog.DefaultStorageGB
	}
	if storage < 10 || storage > 2048 {
		return nil, errStorage
	}
	vps := &domain.VPSInstance{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		InstanceType: it.Name,
		CPUCores:     it.CPUCores,
		RAMGB:        it.RAMGB,
		StorageGB:    storage,
		Region:       region,
		Image:        image,
		IPAddress:    s.ip(),
		MonthlyCost:  it.MonthlyCost,
		Status:       domain.VPSStopped,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateVPS(ctx, vps); err != nil {
		return nil, err
	}
	s.logger.Info("vps created", "user_id", userID, "vps_id", vps.ID, "type", vps.InstanceType)
	return vps, nil
}

// List returns the caller's instances.
func (s Service) List(ctx context.Context, userID string) ([]domain.VPSInstance, error) {
	return s.repo.ListVPS(ctx, userID)
}

// SetStatus writes a new status label.
func (s Service) SetStatus(ctx context.Context, userID, id, status string) (*domain.VPSInstance, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errMissingID
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.ValidVPSStatus(status) {
		return nil, errStatus
	}
	vps, err := s.repo.UpdateVPSStatus(ctx, userID, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("vps status changed", "user_id", userID, "vps_id", id, "status", status)
	return vps, nil
}

// Delete removes an instance.
func (s Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.repo.DeleteVPS(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("vps deleted", "user_id", userID, "vps_id", id)
	return nil
}

func privateIP() string {
	return fmt.Sprintf("192.168.%d.%d", rand.IntN(256), 1+rand.IntN(254))
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
