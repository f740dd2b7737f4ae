package domain

import "time"

// Rule directions.
const (
	RuleInbound  = "inbound"
	RuleOutbound = "outbound"
)

// Rule protocols.
const (
	ProtocolTCP  = "tcp"
	ProtocolUDP  = "udp"
	ProtocolICMP = "icmp"
	ProtocolAll  = "all"
)

// SecurityGroup is a named collection of firewall rules.
type SecurityGroup struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SecurityGroupRule belongs to exactly one SecurityGroup and dies with it.
type SecurityGroupRule struct {
	ID                string    `json:"id"`
	SecurityGroupID   string    `json:"security_group_id"`
	UserID            string    `json:"user_id"`
	RuleType          string    `json:"rule_type"`
	Protocol          string    `json:"protocol"`
	PortRange         string    `json:"port_range"`
	SourceDestination string    `json:"source_destination"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
