package policyeval

import (
	"context"
	"strings"
	"testing"
)

const testConfigYAML = `
tags:
  - fqn: PersonalData.Personal
  - fqn: Tier.Tier1
roles:
  - name: DataSteward
  - name: DataEngineer
teams:
  - name: data-platform
  - name: analytics
    parents: [data-platform]
    default_roles: [DataEngineer]
users:
  - name: bob
    teams: [analytics]
policies:
  - name: team-access
    attached_to:
      type: team
      name: data-platform
    rules:
      - name: owner-or-steward
        condition: "isOwner() || hasAnyRole('DataSteward')"
        effect: allow
      - name: personal-data
        condition: "matchAllTags('PersonalData.Personal')"
        effect: deny
`

func TestConfigLoadAndValidate(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if len(cfg.Policies) != 1 || len(cfg.Policies[0].Rules) != 2 {
		t.Fatalf("unexpected policy shape %+v", cfg.Policies)
	}
	if cfg.Policies[0].AttachedTo.Type != EntityTypeTeam {
		t.Fatalf("expected team attachment, got %s", cfg.Policies[0].AttachedTo.Type)
	}
	if errs := cfg.Validate(context.Background(), BuiltinRegistry()); len(errs) != 0 {
		t.Fatalf("expected clean validation, got %v", errs)
	}
}

func TestConfigValidateReportsAllFailures(t *testing.T) {
	bad := strings.Replace(testConfigYAML, "'DataSteward'", "'Emperor'", 1)
	bad = strings.Replace(bad, "'PersonalData.Personal'", "'Nope.Nothing'", 1)
	cfg, err := NewConfigLoader().LoadYAML([]byte(bad))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	errs := cfg.Validate(context.Background(), BuiltinRegistry())
	if len(errs) != 2 {
		t.Fatalf("expected 2 rule errors, got %v", errs)
	}
	if errs[0].Policy != "team-access" || errs[0].Rule != "owner-or-steward" {
		t.Fatalf("unexpected first error %v", errs[0])
	}
}

func TestConfigBuildGraphAndSubject(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	g := cfg.BuildGraph()
	user, ok := cfg.User("bob")
	if !ok {
		t.Fatalf("expected configured user bob")
	}
	s := NewSubjectContext(user, g)
	if !s.IsUserUnderTeam("data-platform") {
		t.Fatalf("expected bob under data-platform via analytics")
	}
	if !s.HasRole("DataEngineer") {
		t.Fatalf("expected bob to inherit DataEngineer")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	jsonData, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	cfg2, err := NewConfigLoader().LoadJSON(jsonData)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if len(cfg2.Policies) != len(cfg.Policies) || len(cfg2.Teams) != len(cfg.Teams) {
		t.Fatalf("round trip lost data")
	}
	if _, err := cfg2.ToYAML(); err != nil {
		t.Fatalf("to yaml: %v", err)
	}
}
