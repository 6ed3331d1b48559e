package policyeval

import "testing"

func TestAncestorClosure(t *testing.T) {
	g := NewTeamGraph()
	g.AddTeam(&Team{Name: "org"})
	g.AddTeam(&Team{Name: "eng", Parents: []string{"org"}})
	g.AddTeam(&Team{Name: "infra", Parents: []string{"eng"}})
	g.AddTeam(&Team{Name: "sre", Parents: []string{"infra", "org"}})

	set := g.AncestorsOf("sre")
	for _, want := range []string{"sre", "infra", "eng", "org"} {
		if _, ok := set[want]; !ok {
			t.Fatalf("expected %s in ancestor closure, got %v", want, set)
		}
	}
	if !g.IsUnder("sre", "org") {
		t.Fatalf("expected sre under org")
	}
	if g.IsUnder("eng", "sre") {
		t.Fatalf("descendant must not count as ancestor")
	}
}

func TestAncestorClosureCycleSafe(t *testing.T) {
	g := NewTeamGraph()
	g.AddTeam(&Team{Name: "a", Parents: []string{"b"}})
	g.AddTeam(&Team{Name: "b", Parents: []string{"a"}})

	// a bad hierarchy must not hang or blow the stack
	set := g.AncestorsOf("a")
	if len(set) != 2 {
		t.Fatalf("expected closure {a,b}, got %v", set)
	}
}

func TestUnknownTeamClosure(t *testing.T) {
	g := NewTeamGraph()
	set := g.AncestorsOf("ghost")
	if len(set) != 1 {
		t.Fatalf("unknown team closure should contain only itself, got %v", set)
	}
}

func TestSubjectContextClosure(t *testing.T) {
	g := NewTeamGraph()
	g.AddTeam(&Team{Name: "org", DefaultRoles: []string{"Everyone"}})
	g.AddTeam(&Team{Name: "eng", Parents: []string{"org"}, DefaultRoles: []string{"Engineer"}})
	g.AddMember("carol", "eng")

	s := NewSubjectContext(&User{Name: "carol", Teams: []string{"eng"}, Roles: []string{"Admin"}}, g)
	if !s.IsUserUnderTeam("eng") || !s.IsUserUnderTeam("org") {
		t.Fatalf("expected carol under eng and org")
	}
	if s.IsUserUnderTeam("marketing") {
		t.Fatalf("expected carol not under marketing")
	}
	for _, role := range []string{"Admin", "Engineer", "Everyone"} {
		if !s.HasRole(role) {
			t.Fatalf("expected carol to hold role %s", role)
		}
	}
	if s.HasRole("Root") {
		t.Fatalf("unexpected role Root")
	}
}

func TestIsTeamAssetUserOwner(t *testing.T) {
	g := NewTeamGraph()
	g.AddTeam(&Team{Name: "org"})
	g.AddTeam(&Team{Name: "eng", Parents: []string{"org"}})
	g.AddMember("dave", "eng")

	s := NewSubjectContext(&User{Name: "viewer"}, g)
	owner := &EntityReference{Type: EntityTypeUser, Name: "dave"}
	if !s.IsTeamAsset("org", owner) {
		t.Fatalf("expected asset owned by eng member to count as org asset")
	}
	if s.IsTeamAsset("marketing", owner) {
		t.Fatalf("unexpected asset match for foreign team")
	}
}
