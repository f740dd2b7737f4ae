package security

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
)

type memorySecurityRepository struct {
	mu     sync.Mutex
	groups map[string]domain.SecurityGroup
	rules  map[string]domain.SecurityGroupRule
}

func newMemorySecurityRepository() *memorySecurityRepository {
	return &memorySecurityRepository{
		groups: make(map[string]domain.SecurityGroup),
		rules:  make(map[string]domain.SecurityGroupRule),
	}
}

func (m *memorySecurityRepository) CreateSecurityGroup(_ context.Context, group *domain.SecurityGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = *group
	return nil
}

func (m *memorySecurityRepository) ListSecurityGroups(_ context.Context, userID string) ([]domain.SecurityGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SecurityGroup
	for _, g := range m.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memorySecurityRepository) DeleteSecurityGroup(_ context.Context, userID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok || g.UserID != userID {
		return 0, repository.ErrNotFound
	}
	var removed int64
	for ruleID, r := range m.rules {
		if r.SecurityGroupID == id {
			delete(m.rules, ruleID)
			removed++
		}
	}
	delete(m.groups, id)
	return removed, nil
}

func (m *memorySecurityRepository) CreateSecurityRule(_ context.Context, rule *domain.SecurityGroupRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[rule.SecurityGroupID]
	if !ok || g.UserID != rule.UserID {
		return repository.ErrNotFound
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memorySecurityRepository) ListSecurityRules(_ context.Context, userID string) ([]domain.SecurityGroupRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SecurityGroupRule
	for _, r := range m.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memorySecurityRepository) DeleteSecurityRule(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok || r.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func newService(repo repository.SecurityRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDeleteGroupRemovesItsRules(t *testing.T) {
	repo := newMemorySecurityRepository()
	svc := newService(repo)
	ctx := context.Background()

	web, err := svc.CreateGroup(ctx, "user-1", GroupInput{Name: "web"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	db, err := svc.CreateGroup(ctx, "user-1", GroupInput{Name: "db"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, port := range []string{"22", "80", "443"} {
		if _, err := svc.CreateRule(ctx, "user-1", web.ID, RuleInput{RuleType: "inbound", Protocol: "tcp", PortRange: port, SourceDestination: "0.0.0.0/0"}); err != nil {
			t.Fatalf("create rule %s: %v", port, err)
		}
	}
	if _, err := svc.CreateRule(ctx, "user-1", db.ID, RuleInput{RuleType: "inbound", Protocol: "tcp", PortRange: "5432", SourceDestination: "10.0.0.0/8"}); err != nil {
		t.Fatalf("create db rule: %v", err)
	}

	if err := svc.DeleteGroup(ctx, "user-1", web.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	rules, _ := svc.ListRules(ctx, "user-1")
	if len(rules) != 1 || rules[0].SecurityGroupID != db.ID {
		t.Fatalf("expected only the db rule to remain, got %+v", rules)
	}
	groups, _ := svc.ListGroups(ctx, "user-1")
	if len(groups) != 1 || groups[0].ID != db.ID {
		t.Fatalf("expected db group to remain, got %+v", groups)
	}
}

func TestCreateRuleRejectsForeignGroup(t *testing.T) {
	repo := newMemorySecurityRepository()
	svc := newService(repo)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, "owner", GroupInput{Name: "web"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	_, err = svc.CreateRule(ctx, "intruder", group.ID, RuleInput{RuleType: "inbound", Protocol: "tcp", PortRange: "22", SourceDestination: "0.0.0.0/0"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	svc := newService(newMemorySecurityRepository())
	cases := []RuleInput{
		{RuleType: "sideways", Protocol: "tcp", PortRange: "22", SourceDestination: "0.0.0.0/0"},
		{RuleType: "inbound", Protocol: "sctp", PortRange: "22", SourceDestination: "0.0.0.0/0"},
		{RuleType: "inbound", Protocol: "tcp", PortRange: "70000", SourceDestination: "0.0.0.0/0"},
		{RuleType: "inbound", Protocol: "tcp", PortRange: "22", SourceDestination: "not-an-ip"},
	}
	for _, input := range cases {
		if _, err := svc.CreateRule(context.Background(), "user-1", "group-1", input); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestNormalizePortRange(t *testing.T) {
	good := map[string]string{
		"22":          "22",
		" 8000-8080 ": "8000-8080",
		"ALL":         "all",
		"*":           "all",
	}
	for in, want := range good {
		got, err := NormalizePortRange(in)
		if err != nil || got != want {
			t.Fatalf("NormalizePortRange(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "0", "65536", "80-20", "a-b", "22-"} {
		if _, err := NormalizePortRange(bad); err == nil {
			t.Fatalf("NormalizePortRange(%q) expected error", bad)
		}
	}
}

func TestNormalizeCIDR(t *testing.T) {
	good := map[string]string{
		"0.0.0.0/0":     "0.0.0.0/0",
		"10.1.2.3/8":    "10.0.0.0/8",
		"192.168.1.10":  "192.168.1.10/32",
		"2001:db8::/32": "2001:db8::/32",
	}
	for in, want := range good {
		got, err := NormalizeCIDR(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeCIDR(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeCIDR("300.1.1.1"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}
