package policyeval

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config describes the reference data and policies loaded at startup
type Config struct {
	Tags     []TagConfig    `json:"tags" yaml:"tags"`
	Roles    []RoleConfig   `json:"roles" yaml:"roles"`
	Teams    []TeamConfig   `json:"teams" yaml:"teams"`
	Users    []UserConfig   `json:"users" yaml:"users"`
	Policies []PolicyConfig `json:"policies" yaml:"policies"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
}

type TagConfig struct {
	FQN         string `json:"fqn" yaml:"fqn"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type RoleConfig struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type TeamConfig struct {
	Name         string   `json:"name" yaml:"name"`
	Parents      []string `json:"parents,omitempty" yaml:"parents,omitempty"`
	DefaultRoles []string `json:"default_roles,omitempty" yaml:"default_roles,omitempty"`
}

type UserConfig struct {
	Name  string   `json:"name" yaml:"name"`
	Teams []string `json:"teams,omitempty" yaml:"teams,omitempty"`
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// PolicyConfig attaches a set of rules to one entity
type PolicyConfig struct {
	Name       string          `json:"name" yaml:"name"`
	AttachedTo EntityReference `json:"attached_to" yaml:"attached_to"`
	Rules      []RuleConfig    `json:"rules" yaml:"rules"`
}

// RuleConfig is one named condition within a policy
type RuleConfig struct {
	Name       string   `json:"name" yaml:"name"`
	Condition  string   `json:"condition" yaml:"condition"`
	Effect     string   `json:"effect,omitempty" yaml:"effect,omitempty"`
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// ConfigLoader loads configuration from the supported formats
type ConfigLoader struct{}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

func (l *ConfigLoader) LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) LoadJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToYAML exports config to YAML
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ToJSON exports config to JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// BuildGraph constructs the ownership hierarchy from the configured teams
// and user memberships.
func (c *Config) BuildGraph() *TeamGraph {
	g := NewTeamGraph()
	for _, t := range c.Teams {
		g.AddTeam(&Team{Name: t.Name, Parents: t.Parents, DefaultRoles: t.DefaultRoles})
	}
	for _, u := range c.Users {
		for _, team := range u.Teams {
			g.AddMember(u.Name, team)
		}
	}
	return g
}

// BuildReferenceStore seeds an in-memory reference store from the config
func (c *Config) BuildReferenceStore() *MemoryReferenceStore {
	store := NewMemoryReferenceStore()
	for _, t := range c.Tags {
		store.AddTag(&Tag{FQN: t.FQN, Description: t.Description})
	}
	for _, r := range c.Roles {
		store.AddRole(&Role{Name: r.Name, Description: r.Description})
	}
	for _, t := range c.Teams {
		store.AddTeam(&Team{Name: t.Name, Parents: t.Parents, DefaultRoles: t.DefaultRoles})
	}
	return store
}

// User returns the configured user by name
func (c *Config) User(name string) (*User, bool) {
	for _, u := range c.Users {
		if u.Name == name {
			return &User{Name: u.Name, Teams: u.Teams, Roles: u.Roles}, true
		}
	}
	return nil, false
}

// RuleError ties a validation failure to its policy and rule
type RuleError struct {
	Policy string
	Rule   string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("policy %s rule %s: %v", e.Policy, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Validate checks every rule condition in the config against the configured
// reference data, in validation mode. All failures are returned, not just
// the first, so the author can fix a config in one pass.
func (c *Config) Validate(ctx context.Context, registry *Registry) []*RuleError {
	validator := NewValidator(registry, c.BuildReferenceStore())
	var errs []*RuleError
	for _, p := range c.Policies {
		for _, r := range p.Rules {
			if err := validator.Validate(ctx, r.Condition); err != nil {
				errs = append(errs, &RuleError{Policy: p.Name, Rule: r.Name, Err: err})
			}
		}
	}
	return errs
}
