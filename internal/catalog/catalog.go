// Package catalog holds the static price and option tables for billable resources.
package catalog

import (
	"errors"
	"sort"

	"github.com/nebulacloud/console/pkg/money"
)

// InstanceType describes a VPS size.
type InstanceType struct {
	Name        string      `json:"name"`
	CPUCores    int         `json:"cpu_cores"`
	RAMGB       int         `json:"ram_gb"`
	MonthlyCost money.Cents `json:"monthly_cost_cents"`
}

// DatabaseSize describes a managed database size.
type DatabaseSize struct {
	Name        string      `json:"name"`
	MonthlyCost money.Cents `json:"monthly_cost_cents"`
}

// Region is a deployable location.
type Region struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// CreditPackage is a purchasable bundle. Buying it credits Amount plus Bonus.
type CreditPackage struct {
	Amount  money.Cents `json:"amount_cents"`
	Bonus   money.Cents `json:"bonus_cents"`
	Popular bool        `json:"popular"`
}

// Defaults applied when a create form omits a field.
const (
	DefaultRegion         = "us-east-1"
	DefaultImage          = "ubuntu-22.04"
	DefaultInstanceType   = "nano"
	DefaultStorageGB      = 20
	DefaultDatabaseType   = "postgresql"
	DefaultDatabaseVer    = "15"
	DefaultDatabaseSize   = "db.t3.micro"
	DefaultPipelineBranch = "main"
)

// BucketMonthlyCost is the flat fee charged per storage bucket.
const BucketMonthlyCost money.Cents = 500

// ErrUnknownInstanceType is returned for instance types outside the table.
var ErrUnknownInstanceType = errors.New("unknown instance type")

var instanceTypes = map[string]InstanceType{
	"nano":   {Name: "nano", CPUCores: 1, RAMGB: 1, MonthlyCost: 599},
	"micro":  {Name: "micro", CPUCores: 1, RAMGB: 2, MonthlyCost: 1099},
	"small":  {Name: "small", CPUCores: 2, RAMGB: 4, MonthlyCost: 2099},
	"medium": {Name: "medium", CPUCores: 2, RAMGB: 8, MonthlyCost: 4099},
	"large":  {Name: "large", CPUCores: 4, RAMGB: 16, MonthlyCost: 8099},
	"xlarge": {Name: "xlarge", CPUCores: 8, RAMGB: 32, MonthlyCost: 16099},
}

var databaseSizes = map[string]DatabaseSize{
	"db.t3.micro":  {Name: "db.t3.micro", MonthlyCost: 999},
	"db.t3.small":  {Name: "db.t3.small", MonthlyCost: 1999},
	"db.t3.medium": {Name: "db.t3.medium", MonthlyCost: 3999},
	"db.t3.large":  {Name: "db.t3.large", MonthlyCost: 7999},
	"db.t3.xlarge": {Name: "db.t3.xlarge", MonthlyCost: 15999},
}

var regions = []Region{
	{Code: "us-east-1", Label: "US East (Virginia)"},
	{Code: "us-west-2", Label: "US West (Oregon)"},
	{Code: "eu-west-1", Label: "EU (Ireland)"},
	{Code: "ap-southeast-1", Label: "Asia Pacific (Singapore)"},
}

var images = []string{"ubuntu-20.04", "ubuntu-22.04", "centos-8", "debian-11"}

var databaseEngines = map[string][]string{
	"postgresql": {"13", "14", "15", "16"},
	"mysql":      {"5.7", "8.0"},
	"mongodb":    {"6.0", "7.0"},
	"redis":      {"6.2", "7.2"},
}

var creditPackages = []CreditPackage{
	{Amount: 2500, Bonus: 0},
	{Amount: 5000, Bonus: 500},
	{Amount: 10000, Bonus: 1500, Popular: true},
	{Amount: 25000, Bonus: 5000},
	{Amount: 50000, Bonus: 12500},
}

// LookupInstanceType returns the table entry for name.
func LookupInstanceType(name string) (InstanceType, error) {
	it, ok := instanceTypes[name]
	if !ok {
		return InstanceType{}, ErrUnknownInstanceType
	}
	return it, nil
}

// InstanceTypes lists VPS sizes from cheapest to most expensive.
func InstanceTypes() []InstanceType {
	out := make([]InstanceType, 0, len(instanceTypes))
	for _, it := range instanceTypes {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlyCost < out[j].MonthlyCost })
	return out
}

// DatabasePrice returns the monthly cost for size. Unknown sizes get the cheapest price.
func DatabasePrice(size string) money.Cents {
	if s, ok := databaseSizes[size]; ok {
		return s.MonthlyCost
	}
	return databaseSizes[DefaultDatabaseSize].MonthlyCost
}

// DatabaseSizes lists database sizes from cheapest to most expensive.
func DatabaseSizes() []DatabaseSize {
	out := make([]DatabaseSize, 0, len(databaseSizes))
	for _, s := range databaseSizes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlyCost < out[j].MonthlyCost })
	return out
}

// DatabaseEngines lists supported engines.
func DatabaseEngines() []string {
	out := make([]string, 0, len(databaseEngines))
	for name := range databaseEngines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidDatabaseEngine reports whether engine is supported.
func ValidDatabaseEngine(engine string) bool {
	_, ok := databaseEngines[engine]
	return ok
}

// Regions lists deployable regions.
func Regions() []Region {
	return append([]Region(nil), regions...)
}

// ValidRegion reports whether code names a known region.
func ValidRegion(code string) bool {
	for _, r := range regions {
		if r.Code == code {
			return true
		}
	}
	return false
}

// Images lists VPS base images.
func Images() []string {
	return append([]string(nil), images...)
}

// ValidImage reports whether image is offered.
func ValidImage(image string) bool {
	for _, candidate := range images {
		if candidate == image {
			return true
		}
	}
	return false
}

// Total is what the package adds to the balance.
func (p CreditPackage) Total() money.Cents {
	return p.Amount + p.Bonus
}

// LookupCreditPackage finds the package sold at price.
func LookupCreditPackage(price money.Cents) (CreditPackage, bool) {
	for _, p := range creditPackages {
		if p.Amount == price {
			return p, true
		}
	}
	return CreditPackage{}, false
}

// CreditPackages lists the purchasable credit bundles.
func CreditPackages() []CreditPackage {
	return append([]CreditPackage(nil), creditPackages...)
}

// Snapshot bundles every table for clients that render forms.
type Snapshot struct {
	InstanceTypes     []InstanceType  `json:"instance_types"`
	DatabaseSizes     []DatabaseSize  `json:"database_sizes"`
	DatabaseEngines   []string        `json:"database_engines"`
	Regions           []Region        `json:"regions"`
	Images            []string        `json:"images"`
	CreditPackages    []CreditPackage `json:"credit_packages"`
	BucketMonthlyCost money.Cents     `json:"bucket_monthly_cost_cents"`
}

// All returns a Snapshot of the catalog.
func All() Snapshot {
	return Snapshot{
		InstanceTypes:     InstanceTypes(),
		DatabaseSizes:     DatabaseSizes(),
		DatabaseEngines:   DatabaseEngines(),
		Regions:           Regions(),
		Images:            Images(),
		CreditPackages:    CreditPackages(),
		BucketMonthlyCost: BucketMonthlyCost,
	}
}
