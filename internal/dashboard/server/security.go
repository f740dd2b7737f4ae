package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/dashboard/query"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const securityPath = "/dashboard/security"

func (s *Server) handleSecurity(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	groupsKey := s.key(p, query.CollectionSecurityGroups)
	rulesKey := s.key(p, query.CollectionSecurityRules)
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		groups := s.groupList(r.Context(), p)
		rules := s.ruleList(r.Context(), p)
		unsafe := 0
		for _, rule := range rules {
			if aggregate.RuleUnsafe(rule) {
				unsafe++
			}
		}
		data := s.baseData(r, p, "Security Groups", "security")
		data["Groups"] = groups
		data["Rules"] = rules
		data["UnsafeCount"] = unsafe
		s.render(w, r, "security", data)
	case len(rest) == 1 && rest[0] == "create":
		if !s.parseForm(w, r) {
			return
		}
		input := apiclient.CreateSecurityGroupInput{
			Name:        strings.TrimSpace(r.PostFormValue("name")),
			Description: r.PostFormValue("description"),
		}
		if input.Name == "" {
			redirectWithFlash(w, r, securityPath, "Error: Group name is required")
			return
		}
		s.mutate(w, r, query.Guard{Entity: "security_group", ID: p.owner(), Op: "create", Payload: fmt.Sprintf("%+v", input)}, securityPath, "Security group created",
			func(ctx context.Context) error {
				_, err := s.api.CreateSecurityGroup(ctx, p.sess.Token, input)
				return err
			}, groupsKey)
	case len(rest) == 3 && rest[0] == "rules" && rest[2] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[1]
		s.mutate(w, r, query.Guard{Entity: "security_rule", ID: id, Op: "delete"}, securityPath, "Rule deleted",
			func(ctx context.Context) error {
				return s.api.DeleteSecurityRule(ctx, p.sess.Token, id)
			}, rulesKey)
	case len(rest) == 2 && rest[1] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "security_group", ID: id, Op: "delete"}, securityPath, "Security group deleted",
			func(ctx context.Context) error {
				return s.api.DeleteSecurityGroup(ctx, p.sess.Token, id)
			}, groupsKey, rulesKey)
	case len(rest) == 2 && rest[1] == "rules":
		if !s.parseForm(w, r) {
			return
		}
		groupID := rest[0]
		input := apiclient.CreateSecurityRuleInput{
			RuleType:          r.PostFormValue("rule_type"),
			Protocol:          r.PostFormValue("protocol"),
			PortRange:         strings.TrimSpace(r.PostFormValue("port_range")),
			SourceDestination: strings.TrimSpace(r.PostFormValue("source_destination")),
			Description:       r.PostFormValue("description"),
		}
		if input.PortRange == "" || input.SourceDestination == "" {
			redirectWithFlash(w, r, securityPath, "Error: Port range and source are required")
			return
		}
		s.mutate(w, r, query.Guard{Entity: "security_group", ID: groupID, Op: "add-rule", Payload: fmt.Sprintf("%+v", input)}, securityPath, "Rule added",
			func(ctx context.Context) error {
				_, err := s.api.CreateSecurityRule(ctx, p.sess.Token, groupID, input)
				return err
			}, rulesKey)
	default:
		s.notFound(w, r)
	}
}
