package policyeval

// PolicyContext identifies the policy being evaluated: which entity the
// policy is attached to. Created fresh per policy attachment being checked.
type PolicyContext struct {
	EntityType string
	EntityName string
	PolicyName string
}

func NewPolicyContext(entityType, entityName, policyName string) *PolicyContext {
	return &PolicyContext{EntityType: entityType, EntityName: entityName, PolicyName: policyName}
}

// SubjectContext is the fully resolved acting principal: the user, the
// transitive closure of teams it belongs under, and the effective role set
// (direct roles plus roles inherited from every team in the closure).
// The closure is computed once at construction, per the resolver contract.
type SubjectContext struct {
	user        *User
	graph       *TeamGraph
	teamClosure map[string]struct{}
	roles       map[string]struct{}
}

// NewSubjectContext resolves user against the team graph. A nil graph yields
// a context with direct roles only and no team membership.
func NewSubjectContext(user *User, graph *TeamGraph) *SubjectContext {
	s := &SubjectContext{
		user:        user,
		graph:       graph,
		teamClosure: make(map[string]struct{}),
		roles:       make(map[string]struct{}),
	}
	if user == nil {
		return s
	}
	for _, r := range user.Roles {
		s.roles[r] = struct{}{}
	}
	if graph == nil {
		return s
	}
	for _, direct := range user.Teams {
		for name := range graph.AncestorsOf(direct) {
			s.teamClosure[name] = struct{}{}
		}
	}
	for name := range s.teamClosure {
		if t, ok := graph.Team(name); ok {
			for _, r := range t.DefaultRoles {
				s.roles[r] = struct{}{}
			}
		}
	}
	return s
}

func (s *SubjectContext) User() *User { return s.user }

// IsUserUnderTeam reports whether the subject is a direct or transitive
// member of the named team's hierarchy.
func (s *SubjectContext) IsUserUnderTeam(team string) bool {
	_, ok := s.teamClosure[team]
	return ok
}

// HasRole reports whether the subject holds the role directly or inherited
// from a team in its closure.
func (s *SubjectContext) HasRole(role string) bool {
	_, ok := s.roles[role]
	return ok
}

// IsOwner reports whether the subject owns the given owner reference: a user
// owner must be the subject itself, a team owner must contain the subject.
func (s *SubjectContext) IsOwner(owner *EntityReference) bool {
	if owner == nil || s.user == nil {
		return false
	}
	switch owner.Type {
	case EntityTypeUser:
		return owner.Name == s.user.Name
	case EntityTypeTeam:
		return s.IsUserUnderTeam(owner.Name)
	}
	return false
}

// IsTeamAsset reports whether the owner reference denotes an asset of the
// named team: a team owner under its hierarchy, or a user owner whose direct
// teams fall under it.
func (s *SubjectContext) IsTeamAsset(team string, owner *EntityReference) bool {
	if owner == nil || s.graph == nil {
		return false
	}
	switch owner.Type {
	case EntityTypeTeam:
		return s.graph.IsUnder(owner.Name, team)
	case EntityTypeUser:
		for _, t := range s.graph.UserTeams(owner.Name) {
			if s.graph.IsUnder(t, team) {
				return true
			}
		}
	}
	return false
}

// ResourceContext is the authorization-relevant view of the target entity:
// optional owner, tag labels, and identity. Pure data, resolved by the caller.
type ResourceContext struct {
	entityType string
	name       string
	owner      *EntityReference
	tags       []TagLabel
}

func NewResourceContext(entityType, name string, owner *EntityReference, tags []TagLabel) *ResourceContext {
	return &ResourceContext{entityType: entityType, name: name, owner: owner, tags: tags}
}

func (r *ResourceContext) EntityType() string      { return r.entityType }
func (r *ResourceContext) Name() string            { return r.name }
func (r *ResourceContext) Owner() *EntityReference { return r.owner }
func (r *ResourceContext) Tags() []TagLabel        { return r.tags }

// HasTag reports whether the resource carries the tag with the given FQN
func (r *ResourceContext) HasTag(fqn string) bool {
	for _, t := range r.tags {
		if t.TagFQN == fqn {
			return true
		}
	}
	return false
}
