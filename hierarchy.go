package policyeval

import "sync"

// TeamGraph models the ownership hierarchy as a directed graph of teams
// (child -> parents) plus direct user memberships. Ancestor closures are
// memoized per team so repeated membership checks stay cheap; the walk is
// cycle-safe.
type TeamGraph struct {
	mu        sync.RWMutex
	teams     map[string]*Team
	members   map[string][]string // user name -> direct team names
	ancestors map[string]map[string]struct{}
}

func NewTeamGraph() *TeamGraph {
	return &TeamGraph{
		teams:     make(map[string]*Team),
		members:   make(map[string][]string),
		ancestors: make(map[string]map[string]struct{}),
	}
}

// AddTeam registers or replaces a team. Memoized closures are discarded
// because the hierarchy may have changed.
func (g *TeamGraph) AddTeam(t *Team) {
	if t == nil || t.Name == "" {
		return
	}
	g.mu.Lock()
	g.teams[t.Name] = t
	g.ancestors = make(map[string]map[string]struct{})
	g.mu.Unlock()
}

// AddMember records a direct user -> team membership
func (g *TeamGraph) AddMember(user, team string) {
	if user == "" || team == "" {
		return
	}
	g.mu.Lock()
	g.members[user] = append(g.members[user], team)
	g.mu.Unlock()
}

// Team returns the registered team by name
func (g *TeamGraph) Team(name string) (*Team, bool) {
	g.mu.RLock()
	t, ok := g.teams[name]
	g.mu.RUnlock()
	return t, ok
}

// UserTeams returns the direct team memberships of a user
func (g *TeamGraph) UserTeams(user string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.members[user]))
	copy(out, g.members[user])
	return out
}

// AncestorsOf returns the ancestors-or-self set for a team. Unknown teams
// yield a set containing only the name itself so lookups stay total.
func (g *TeamGraph) AncestorsOf(team string) map[string]struct{} {
	g.mu.RLock()
	if set, ok := g.ancestors[team]; ok {
		g.mu.RUnlock()
		return set
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if set, ok := g.ancestors[team]; ok {
		return set
	}
	set := make(map[string]struct{})
	stack := []string{team}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := set[cur]; seen {
			continue
		}
		set[cur] = struct{}{}
		if t, ok := g.teams[cur]; ok {
			stack = append(stack, t.Parents...)
		}
	}
	g.ancestors[team] = set
	return set
}

// IsUnder reports whether team lies under ancestor in the hierarchy
// (ancestor-or-self relation).
func (g *TeamGraph) IsUnder(team, ancestor string) bool {
	_, ok := g.AncestorsOf(team)[ancestor]
	return ok
}
