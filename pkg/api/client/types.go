package client

import (
	"github.com/nebulacloud/console/internal/catalog"
	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/service/database"
	"github.com/nebulacloud/console/internal/service/pipeline"
	"github.com/nebulacloud/console/internal/service/profile"
	"github.com/nebulacloud/console/internal/service/security"
	"github.com/nebulacloud/console/internal/service/storage"
	"github.com/nebulacloud/console/internal/service/vps"
)

// Payloads shared with the API server.
type (
	VPS           = domain.VPSInstance
	Database      = domain.ManagedDatabase
	Bucket        = domain.StorageBucket
	StoredFile    = domain.StoredFile
	SecurityGroup = domain.SecurityGroup
	SecurityRule  = domain.SecurityGroupRule
	CreditEntry   = domain.CreditEntry
	Notification  = domain.Notification
	Pipeline      = domain.Pipeline
	Build         = domain.Build
	Profile       = domain.Profile
	ProfileUpdate = domain.ProfileUpdate
	TeamMember    = domain.TeamMember
	APIKey        = domain.APIKey
	Catalog       = catalog.Snapshot

	TwoFactorEnrollment = profile.Enrollment

	CreateVPSInput           = vps.CreateInput
	CreateDatabaseInput      = database.CreateInput
	CreateBucketInput        = storage.CreateInput
	CreateSecurityGroupInput = security.GroupInput
	CreateSecurityRuleInput  = security.RuleInput
	CreatePipelineInput      = pipeline.CreateInput
)
