package domain

import (
	"time"

	"github.com/nebulacloud/console/pkg/money"
)

// VPS lifecycle states.
const (
	VPSStopped  = "stopped"
	VPSStarting = "starting"
	VPSRunning  = "running"
	VPSStopping = "stopping"
)

// VPSInstance is a virtual server record. Nothing is provisioned; status is a label.
type VPSInstance struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	InstanceType string      `json:"instance_type"`
	CPUCores     int         `json:"cpu_cores"`
	RAMGB        int         `json:"ram_gb"`
	StorageGB    int         `json:"storage_gb"`
	Region       string      `json:"region"`
	Image        string      `json:"image"`
	IPAddress    string      `json:"ip_address,omitempty"`
	MonthlyCost  money.Cents `json:"monthly_cost_cents"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ValidVPSStatus reports whether status is a known VPS state.
func ValidVPSStatus(status string) bool {
	switch status {
	case VPSStopped, VPSStarting, VPSRunning, VPSStopping:
		return true
	}
	return false
}

// Database lifecycle states.
const (
	DatabaseCreating = "creating"
	DatabaseRunning  = "running"
	DatabaseStopped  = "stopped"
	DatabaseError    = "error"
)

// ManagedDatabase is a managed database record.
type ManagedDatabase struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	Name             string      `json:"name"`
	DatabaseType     string      `json:"database_type"`
	Version          string      `json:"version"`
	InstanceSize     string      `json:"instance_size"`
	StorageGB        int         `json:"storage_gb"`
	Region           string      `json:"region"`
	Status           string      `json:"status"`
	ConnectionString string      `json:"connection_string,omitempty"`
	MonthlyCost      money.Cents `json:"monthly_cost_cents"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// EncryptedConnection is the at-rest form of ConnectionString.
	EncryptedConnection []byte `json:"-"`
}

// ValidDatabaseStatus reports whether status is a known database state.
func ValidDatabaseStatus(status string) bool {
	switch status {
	case DatabaseCreating, DatabaseRunning, DatabaseStopped, DatabaseError:
		return true
	}
	return false
}

// StorageBucket is an object storage bucket record.
type StorageBucket struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Name         string      `json:"name"`
	Region       string      `json:"region"`
	PublicAccess bool        `json:"public_access"`
	FileCount    int64       `json:"file_count"`
	SizeBytes    int64       `json:"size_bytes"`
	MonthlyCost  money.Cents `json:"monthly_cost_cents"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// StoredFile is a single object inside a bucket.
type StoredFile struct {
	Key          string    `json:"key"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}
