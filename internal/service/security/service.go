package security

import (
	"context"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/nebulacloud/console/internal/domain"
	"github.com/nebulacloud/console/internal/repository"
)

// GroupInput holds the fields of the group form.
type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RuleInput holds the fields of the rule form.
type RuleInput struct {
	RuleType          string `json:"rule_type"`
	Protocol          string `json:"protocol"`
	PortRange         string `json:"port_range"`
	SourceDestination string `json:"source_destination"`
	Description       string `json:"description"`
}

var (
	errNameRequired = domain.Invalid("security group name is required")
	errRuleType     = domain.Invalid("rule type must be inbound or outbound")
	errProtocol     = domain.Invalid("protocol must be tcp, udp, icmp or all")
	errPortRange    = domain.Invalid("port range must be a port, a low-high range within 1-65535, or all")
	errCIDR         = domain.Invalid("source/destination must be a CIDR block such as 0.0.0.0/0")
	errMissingID    = domain.Invalid("identifier required")
)

// Service manages security groups and rules.
type Service struct {
	repo   repository.SecurityRepository
	logger *slog.Logger
	now    func() time.Time
}

// New returns a security service.
func New(repo repository.SecurityRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger, now: time.Now}
}

// CreateGroup records a new, empty group.
func (s Service) CreateGroup(ctx context.Context, userID string, input GroupInput) (*domain.SecurityGroup, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errNameRequired
	}
	group := &domain.SecurityGroup{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSecurityGroup(ctx, group); err != nil {
		return nil, err
	}
	s.logger.Info("security group created", "user_id", userID, "group_id", group.ID)
	return group, nil
}

// ListGroups returns the caller's groups.
func (s Service) ListGroups(ctx context.Context, userID string) ([]domain.SecurityGroup, error) {
	return s.repo.ListSecurityGroups(ctx, userID)
}

// DeleteGroup removes the group and every rule it owns.
func (s Service) DeleteGroup(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	removed, err := s.repo.DeleteSecurityGroup(ctx, userID, id)
	if err != nil {
		return err
	}
	s.logger.Info("security group deleted", "user_id", userID, "group_id", id, "rules_removed", removed)
	return nil
}

// CreateRule adds a rule to an owned group.
func (s Service) CreateRule(ctx context.Context, userID, groupID string, input RuleInput) (*domain.SecurityGroupRule, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, errMissingID
	}
	ruleType := strings.ToLower(strings.TrimSpace(input.RuleType))
	if ruleType != domain.RuleInbound && ruleType != domain.RuleOutbound {
		return nil, errRuleType
	}
	protocol := strings.ToLower(strings.TrimSpace(input.Protocol))
	switch protocol {
	case domain.ProtocolTCP, domain.ProtocolUDP, domain.ProtocolICMP, domain.ProtocolAll:
	default:
		return nil, errProtocol
	}
	ports, err := NormalizePortRange(input.PortRange)
	if err != nil {
		return nil, err
	}
	cidr, err := NormalizeCIDR(input.SourceDestination)
	if err != nil {
		return nil, err
	}
	rule := &domain.SecurityGroupRule{
		ID:                uuid.NewString(),
		SecurityGroupID:   groupID,
		UserID:            userID,
		RuleType:          ruleType,
		Protocol:          protocol,
		PortRange:         ports,
		SourceDestination: cidr,
		Description:       strings.TrimSpace(input.Description),
		CreatedAt:         s.now().UTC(),
	}
	if err := s.repo.CreateSecurityRule(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("security rule created", "user_id", userID, "group_id", groupID, "rule_id", rule.ID)
	return rule, nil
}

// ListRules returns every rule the caller owns.
func (s Service) ListRules(ctx context.Context, userID string) ([]domain.SecurityGroupRule, error) {
	return s.repo.ListSecurityRules(ctx, userID)
}

// DeleteRule removes a single rule.
func (s Service) DeleteRule(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return errMissingID
	}
	if err := s.repo.DeleteSecurityRule(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("security rule deleted", "user_id", userID, "rule_id", id)
	return nil
}

// NormalizePortRange accepts "22", "8000-8080" or "all".
func NormalizePortRange(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "all" || v == "*" {
		return "all", nil
	}
	low, high, isRange := strings.Cut(v, "-")
	lo, err := parsePort(low)
	if err != nil {
		return "", errPortRange
	}
	if !isRange {
		return strconv.Itoa(lo), nil
	}
	hi, err := parsePort(high)
	if err != nil || hi < lo {
		return "", errPortRange
	}
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi), nil
}

func parsePort(raw string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || p < 1 || p > 65535 {
		return 0, errPortRange
	}
	return p, nil
}

// NormalizeCIDR accepts a prefix or a bare address, which becomes a host prefix.
func NormalizeCIDR(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", errCIDR
	}
	if prefix, err := netip.ParsePrefix(v); err == nil {
		return prefix.Masked().String(), nil
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return "", errCIDR
	}
	return netip.PrefixFrom(addr, addr.BitLen()).String(), nil
}
