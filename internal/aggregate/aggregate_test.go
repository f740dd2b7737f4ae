package aggregate

import (
	"testing"
	"time"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/pkg/money"
)

func TestCreditBalance(t *testing.T) {
	if got := CreditBalance(nil); got != 0 {
		t.Fatalf("empty ledger: expected 0, got %s", got)
	}
	entries := []domain.CreditEntry{
		{Amount: money.FromDollars(25), TransactionType: domain.CreditPurchase},
	}
	if got := CreditBalance(entries); got.String() != "$25.00" {
		t.Fatalf("expected $25.00, got %s", got)
	}
	entries = append(entries,
		domain.CreditEntry{Amount: 1050, TransactionType: domain.CreditUsage},
		domain.CreditEntry{Amount: money.FromDollars(10), TransactionType: domain.CreditPurchase},
		domain.CreditEntry{Amount: 99, TransactionType: "refund"},
	)
	if got := CreditBalance(entries); got != 2450 {
		t.Fatalf("expected 2450 cents, got %d", got)
	}
}

func TestMonthlySpendAndShare(t *testing.T) {
	vps := []domain.VPSInstance{{MonthlyCost: 2099}, {MonthlyCost: 599}}
	dbs := []domain.ManagedDatabase{{MonthlyCost: 999}}
	buckets := []domain.StorageBucket{{MonthlyCost: 500, FileCount: 3, SizeBytes: 2048}}

	if got := MonthlySpend(vps, dbs, buckets); got != 4197 {
		t.Fatalf("expected 4197, got %d", got)
	}
	shares := SpendShare(vps, dbs, buckets)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	if shares[0].Kind != "vps" || shares[0].Count != 2 || shares[0].Percent != 64 {
		t.Fatalf("unexpected vps share %+v", shares[0])
	}
	if shares[1].Percent != 24 || shares[2].Percent != 12 {
		t.Fatalf("unexpected shares %+v", shares)
	}
	empty := SpendShare(nil, nil, nil)
	for _, s := range empty {
		if s.Percent != 0 {
			t.Fatalf("expected zero percent without spend, got %+v", s)
		}
	}
}

func TestRunwayMonths(t *testing.T) {
	if _, ok := RunwayMonths(1000, 0); ok {
		t.Fatalf("expected no runway without spend")
	}
	months, ok := RunwayMonths(money.FromDollars(100), money.FromDollars(30))
	if !ok || months != 3 {
		t.Fatalf("expected 3 months, got %d (ok=%v)", months, ok)
	}
	months, _ = RunwayMonths(-500, 100)
	if months != 0 {
		t.Fatalf("negative balance should give zero months, got %d", months)
	}
}

func TestBalanceHealth(t *testing.T) {
	cases := []struct {
		balance money.Cents
		want    string
	}{
		{money.FromDollars(150), HealthExcellent},
		{money.FromDollars(100), HealthGood},
		{money.FromDollars(26), HealthGood},
		{money.FromDollars(25), HealthLow},
		{0, HealthLow},
	}
	for _, tc := range cases {
		if got := BalanceHealth(tc.balance); got != tc.want {
			t.Fatalf("balance %s: expected %q, got %q", tc.balance, tc.want, got)
		}
	}
}

func TestRuleUnsafe(t *testing.T) {
	cases := []struct {
		cidr, ports string
		want        bool
	}{
		{"0.0.0.0/0", "22", true},
		{"0.0.0.0/0", "3389", true},
		{"0.0.0.0/0", "21", true},
		{"10.0.0.0/8", "22", false},
		{"0.0.0.0/0", "443", false},
		{"0.0.0.0/0", "20-23", false},
	}
	for _, tc := range cases {
		rule := domain.SecurityGroupRule{SourceDestination: tc.cidr, PortRange: tc.ports}
		if got := RuleUnsafe(rule); got != tc.want {
			t.Fatalf("%s %s: expected %v, got %v", tc.cidr, tc.ports, tc.want, got)
		}
	}
}

func TestRulesForGroup(t *testing.T) {
	rules := []domain.SecurityGroupRule{
		{ID: "r1", SecurityGroupID: "g1"},
		{ID: "r2", SecurityGroupID: "g2"},
		{ID: "r3", SecurityGroupID: "g1"},
	}
	got := RulesForGroup(rules, "g1")
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("unexpected rules %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:                      "0 B",
		512:                    "512 B",
		1024:                   "1 KB",
		1536:                   "1.5 KB",
		5 * 1024 * 1024:        "5 MB",
		3 * 1024 * 1024 * 1024: "3 GB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("%d: expected %q, got %q", in, want, got)
		}
	}
}

func TestBucketTotals(t *testing.T) {
	totals := BucketTotals([]domain.StorageBucket{
		{FileCount: 3, SizeBytes: 100, MonthlyCost: 500},
		{FileCount: 2, SizeBytes: 50, MonthlyCost: 500},
	})
	if totals.Files != 5 || totals.Bytes != 150 || totals.MonthlyCost != 1000 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestRunningCount(t *testing.T) {
	vps := []domain.VPSInstance{{Status: "running"}, {Status: "stopped"}, {Status: "running"}}
	if got := RunningCount(vps, VPSStatus); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	dbs := []domain.ManagedDatabase{{Status: "creating"}}
	if got := RunningCount(dbs, DatabaseStatus); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestNotificationCounts(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	items := []domain.Notification{
		{ID: "n1", Title: "Backup complete", Message: "db-1", Type: "success", ServiceType: "database", CreatedAt: now.Add(-time.Hour)},
		{ID: "n2", Title: "High CPU", Message: "web-1 at 95%", Type: "warning", ServiceType: "vps", Read: true, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "n3", Title: "Build failed", Message: "pipeline api", Type: "error", ServiceType: "pipeline", CreatedAt: now.Add(-2 * time.Hour)},
	}
	if got := UnreadCount(items); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
	if got := CountByType(items, "error"); got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
	if got := CountSince(items, now.Add(-7*24*time.Hour)); got != 2 {
		t.Fatalf("expected 2 this week, got %d", got)
	}

	cases := []struct {
		filter, search string
		want           []string
	}{
		{"all", "", []string{"n1", "n2", "n3"}},
		{"unread", "", []string{"n1", "n3"}},
		{"read", "", []string{"n2"}},
		{"warning", "", []string{"n2"}},
		{"pipeline", "", []string{"n3"}},
		{"all", "BACKUP", []string{"n1"}},
		{"unread", "web", nil},
		{"", "95%", []string{"n2"}},
	}
	for _, tc := range cases {
		got := FilterNotifications(items, tc.filter, tc.search)
		if len(got) != len(tc.want) {
			t.Fatalf("filter=%q search=%q: expected %v, got %+v", tc.filter, tc.search, tc.want, got)
		}
		for i := range got {
			if got[i].ID != tc.want[i] {
				t.Fatalf("filter=%q search=%q: expected %v at %d, got %s", tc.filter, tc.search, tc.want, i, got[i].ID)
			}
		}
	}
}
