package stores

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/policyeval"
)

// SQLReferenceStore persists tags, teams and roles in SQL (squealx). It
// backs validation-mode reference lookups and can rebuild the team graph.
type SQLReferenceStore struct {
	db *squealx.DB
}

func NewSQLReferenceStore(db *squealx.DB) *SQLReferenceStore {
	return &SQLReferenceStore{db: db}
}

func (s *SQLReferenceStore) PutTag(ctx context.Context, t *policyeval.Tag) error {
	q := `INSERT INTO tags(fqn, description) VALUES(:fqn, :description)
		ON CONFLICT(fqn) DO UPDATE SET description = :description`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"fqn":         t.FQN,
		"description": t.Description,
	})
	return err
}

func (s *SQLReferenceStore) PutRole(ctx context.Context, r *policyeval.Role) error {
	q := `INSERT INTO roles(name, description) VALUES(:name, :description)
		ON CONFLICT(name) DO UPDATE SET description = :description`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"name":        r.Name,
		"description": r.Description,
	})
	return err
}

func (s *SQLReferenceStore) PutTeam(ctx context.Context, t *policyeval.Team) error {
	parents, _ := json.Marshal(t.Parents)
	roles, _ := json.Marshal(t.DefaultRoles)
	q := `INSERT INTO teams(name, parents_json, default_roles_json) VALUES(:name, :parents_json, :default_roles_json)
		ON CONFLICT(name) DO UPDATE SET parents_json = :parents_json, default_roles_json = :default_roles_json`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"name":               t.Name,
		"parents_json":       string(parents),
		"default_roles_json": string(roles),
	})
	return err
}

func (s *SQLReferenceStore) AddMember(ctx context.Context, userName, teamName string) error {
	q := `INSERT INTO team_members(user_name, team_name) VALUES(:user_name, :team_name)
		ON CONFLICT(user_name, team_name) DO NOTHING`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"user_name": userName,
		"team_name": teamName,
	})
	return err
}

func (s *SQLReferenceStore) GetTag(ctx context.Context, fqn string) (*policyeval.Tag, error) {
	q := `SELECT fqn, description FROM tags WHERE fqn = :fqn`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"fqn": fqn})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, fmt.Errorf("tag %s: %w", fqn, policyeval.ErrNotFound)
	}
	t := &policyeval.Tag{}
	if err := r.Scan(&t.FQN, &t.Description); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SQLReferenceStore) GetRole(ctx context.Context, name string) (*policyeval.Role, error) {
	q := `SELECT name, description FROM roles WHERE name = :name`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, fmt.Errorf("role %s: %w", name, policyeval.ErrNotFound)
	}
	role := &policyeval.Role{}
	if err := r.Scan(&role.Name, &role.Description); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *SQLReferenceStore) GetTeam(ctx context.Context, name string) (*policyeval.Team, error) {
	q := `SELECT name, parents_json, default_roles_json FROM teams WHERE name = :name`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, fmt.Errorf("team %s: %w", name, policyeval.ErrNotFound)
	}
	var parentsJSON, rolesJSON string
	t := &policyeval.Team{}
	if err := r.Scan(&t.Name, &parentsJSON, &rolesJSON); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(parentsJSON), &t.Parents)
	_ = json.Unmarshal([]byte(rolesJSON), &t.DefaultRoles)
	return t, nil
}

// LoadGraph rebuilds the ownership hierarchy from the teams and membership
// tables. Intended for startup and cache refresh, not per-request use.
func (s *SQLReferenceStore) LoadGraph(ctx context.Context) (*policyeval.TeamGraph, error) {
	g := policyeval.NewTeamGraph()

	r, err := s.db.NamedQueryContext(ctx, `SELECT name, parents_json, default_roles_json FROM teams`, map[string]any{})
	if err != nil {
		return nil, err
	}
	for r.Next() {
		var name, parentsJSON, rolesJSON string
		if err := r.Scan(&name, &parentsJSON, &rolesJSON); err != nil {
			r.Close()
			return nil, err
		}
		t := &policyeval.Team{Name: name}
		_ = json.Unmarshal([]byte(parentsJSON), &t.Parents)
		_ = json.Unmarshal([]byte(rolesJSON), &t.DefaultRoles)
		g.AddTeam(t)
	}
	r.Close()

	m, err := s.db.NamedQueryContext(ctx, `SELECT user_name, team_name FROM team_members`, map[string]any{})
	if err != nil {
		return nil, err
	}
	defer m.Close()
	for m.Next() {
		var user, team string
		if err := m.Scan(&user, &team); err != nil {
			return nil, err
		}
		g.AddMember(user, team)
	}
	return g, nil
}
