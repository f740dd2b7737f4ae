// Package aggregate derives dashboard figures from rows that were already fetched.
// Nothing here is stored; every value is recomputed per render.
package aggregate

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/pkg/money"
)

// CreditBalance is the sum of purchases minus the sum of usage.
func CreditBalance(entries []domain.CreditEntry) money.Cents {
	var balance money.Cents
	for _, e := range entries {
		switch e.TransactionType {
		case domain.CreditPurchase:
			balance += e.Amount
		case domain.CreditUsage:
			balance -= e.Amount
		}
	}
	return balance
}

// MonthlySpend totals the monthly cost of every resource.
func MonthlySpend(vps []domain.VPSInstance, dbs []domain.ManagedDatabase, buckets []domain.StorageBucket) money.Cents {
	return vpsCost(vps) + databaseCost(dbs) + BucketTotals(buckets).MonthlyCost
}

func vpsCost(items []domain.VPSInstance) money.Cents {
	var total money.Cents
	for _, v := range items {
		total += v.MonthlyCost
	}
	return total
}

func databaseCost(items []domain.ManagedDatabase) money.Cents {
	var total money.Cents
	for _, d := range items {
		total += d.MonthlyCost
	}
	return total
}

// RunwayMonths is how many whole months the balance covers. ok is false when nothing is spent.
func RunwayMonths(balance, spend money.Cents) (months int64, ok bool) {
	if spend <= 0 {
		return 0, false
	}
	if balance <= 0 {
		return 0, true
	}
	return int64(balance / spend), true
}

// Balance health labels.
const (
	HealthExcellent = "Excellent balance"
	HealthGood      = "Good balance"
	HealthLow       = "Consider adding credits"
)

// BalanceHealth labels a balance: above $100 is excellent, above $25 good.
func BalanceHealth(balance money.Cents) string {
	switch {
	case balance > money.FromDollars(100):
		return HealthExcellent
	case balance > money.FromDollars(25):
		return HealthGood
	default:
		return HealthLow
	}
}

// Share is one resource kind's slice of the monthly spend.
type Share struct {
	Kind    string
	Count   int
	Cost    money.Cents
	Percent int
}

// SpendShare splits the monthly spend by resource kind. Percentages round to the nearest integer.
func SpendShare(vps []domain.VPSInstance, dbs []domain.ManagedDatabase, buckets []domain.StorageBucket) []Share {
	shares := []Share{
		{Kind: "vps", Count: len(vps), Cost: vpsCost(vps)},
		{Kind: "databases", Count: len(dbs), Cost: databaseCost(dbs)},
		{Kind: "storage", Count: len(buckets), Cost: BucketTotals(buckets).MonthlyCost},
	}
	var total money.Cents
	for _, s := range shares {
		total += s.Cost
	}
	if total <= 0 {
		return shares
	}
	for i := range shares {
		shares[i].Percent = int(math.Round(float64(shares[i].Cost) / float64(total) * 100))
	}
	return shares
}

// UnreadCount counts notifications not yet read.
func UnreadCount(items []domain.Notification) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}

// CountByType counts notifications of one severity.
func CountByType(items []domain.Notification, kind string) int {
	n := 0
	for _, item := range items {
		if item.Type == kind {
			n++
		}
	}
	return n
}

// CountSince counts notifications created after since.
func CountSince(items []domain.Notification, since time.Time) int {
	n := 0
	for _, item := range items {
		if item.CreatedAt.After(since) {
			n++
		}
	}
	return n
}

var unsafePorts = map[string]bool{"22": true, "3389": true, "21": true}

// RuleUnsafe flags rules that open SSH, RDP or FTP to the whole internet.
func RuleUnsafe(rule domain.SecurityGroupRule) bool {
	return rule.SourceDestination == "0.0.0.0/0" && unsafePorts[rule.PortRange]
}

// RulesForGroup returns the rules belonging to groupID, preserving order.
func RulesForGroup(rules []domain.SecurityGroupRule, groupID string) []domain.SecurityGroupRule {
	var out []domain.SecurityGroupRule
	for _, r := range rules {
		if r.SecurityGroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

// Totals summarises a bucket list.
type Totals struct {
	Files       int64
	Bytes       int64
	MonthlyCost money.Cents
}

// BucketTotals adds up files, bytes and cost across buckets.
func BucketTotals(buckets []domain.StorageBucket) Totals {
	var t Totals
	for _, b := range buckets {
		t.Files += b.FileCount
		t.Bytes += b.SizeBytes
		t.MonthlyCost += b.MonthlyCost
	}
	return t
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size in binary units with at most one decimal, e.g. "1.5 KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i := 0
	v := float64(n)
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*10) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[i]
}

// RunningCount counts rows whose status is "running".
func RunningCount[T any](items []T, status func(T) string) int {
	n := 0
	for _, item := range items {
		if status(item) == "running" {
			n++
		}
	}
	return n
}

// VPSStatus, DatabaseStatus and PipelineStatus are accessors for RunningCount.
func VPSStatus(v domain.VPSInstance) string          { return v.Status }
func DatabaseStatus(d domain.ManagedDatabase) string { return d.Status }
func PipelineStatus(p domain.Pipeline) string        { return p.Status }

// FilterNotifications applies the notification page filter and search box.
// filter is "all", "unread", "read", a severity or a service type. search matches
// title or message case-insensitively.
func FilterNotifications(items []domain.Notification, filter, search string) []domain.Notification {
	filter = strings.TrimSpace(filter)
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Notification, 0, len(items))
	for _, n := range items {
		if !matchesFilter(n, filter) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(n.Title), needle) &&
			!strings.Contains(strings.ToLower(n.Message), needle) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matchesFilter(n domain.Notification, filter string) bool {
	switch filter {
	case "", "all":
		return true
	case "unread":
		return !n.Read
	case "read":
		return n.Read
	}
	return n.Type == filter || n.ServiceType == filter
}
