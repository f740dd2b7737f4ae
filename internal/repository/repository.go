package repository

import (
	"context"
	"time"

	"github.com/nebulacloud/console/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// ProfileRepository manages the one-to-one profile row.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)
	SetTwoFactor(ctx context.Context, userID string, secret []byte, enabled bool) error
}

// VPSRepository persists VPS instance records.
type VPSRepository interface {
	CreateVPS(ctx context.Context, vps *domain.VPSInstance) error
	ListVPS(ctx context.Context, userID string) ([]domain.VPSInstance, error)
	UpdateVPSStatus(ctx context.Context, userID, id, status string) (*domain.VPSInstance, error)
	DeleteVPS(ctx context.Context, userID, id string) error
}

// DatabaseRepository persists managed database records.
type DatabaseRepository interface {
	CreateDatabase(ctx context.Context, db *domain.ManagedDatabase) error
	ListDatabases(ctx context.Context, userID string) ([]domain.ManagedDatabase, error)
	UpdateDatabaseStatus(ctx context.Context, userID, id, status string) (*domain.ManagedDatabase, error)
	DeleteDatabase(ctx context.Context, userID, id string) error
}

// BucketRepository persists storage bucket records.
type BucketRepository interface {
	CreateBucket(ctx context.Context, bucket *domain.StorageBucket) error
	ListBuckets(ctx context.Context, userID string) ([]domain.StorageBucket, error)
	GetBucket(ctx context.Context, userID, id string) (*domain.StorageBucket, error)
	DeleteBucket(ctx context.Context, userID, id string) error
}

// SecurityRepository persists security groups and their rules.
type SecurityRepository interface {
	CreateSecurityGroup(ctx context.Context, group *domain.SecurityGroup) error
	ListSecurityGroups(ctx context.Context, userID string) ([]domain.SecurityGroup, error)
	// DeleteSecurityGroup removes the group and all of its rules atomically.
	DeleteSecurityGroup(ctx context.Context, userID, id string) (rulesRemoved int64, err error)
	CreateSecurityRule(ctx context.Context, rule *domain.SecurityGroupRule) error
	ListSecurityRules(ctx context.Context, userID string) ([]domain.SecurityGroupRule, error)
	DeleteSecurityRule(ctx context.Context, userID, id string) error
}

// CreditRepository persists the credit ledger.
type CreditRepository interface {
	InsertCredit(ctx context.Context, entry *domain.CreditEntry) error
	ListCredits(ctx context.Context, userID string) ([]domain.CreditEntry, error)
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	InsertNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, id string) error
}

// PipelineRepository persists CI/CD pipeline metadata.
type PipelineRepository interface {
	CreatePipeline(ctx context.Context, p *domain.Pipeline) error
	ListPipelines(ctx context.Context, userID string) ([]domain.Pipeline, error)
	GetPipeline(ctx context.Context, userID, id string) (*domain.Pipeline, error)
	UpdatePipelineStatus(ctx context.Context, userID, id, status string, runAt time.Time) (*domain.Pipeline, error)
	DeletePipeline(ctx context.Context, userID, id string) error
}
