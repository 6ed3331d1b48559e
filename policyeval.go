package policyeval

import (
	"context"
	"errors"
)

// ============================================================================
// DOMAIN OBJECTS
// ============================================================================

// Well-known entity types used by policy attachment and ownership checks.
const (
	EntityTypeUser  = "user"
	EntityTypeTeam  = "team"
	EntityTypeTable = "table"
)

// EntityReference points at a single entity by type and name
type EntityReference struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// TagLabel is a tag applied to an entity, identified by its fully
// qualified name (e.g. "PersonalData.Personal")
type TagLabel struct {
	TagFQN string `json:"tag_fqn"`
}

// Tag is a classification tag definition
type Tag struct {
	FQN         string `json:"fqn"`
	Description string `json:"description,omitempty"`
}

// Role is a named role assignable to users directly or inherited via teams
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Team is a node in the ownership hierarchy. A team may have multiple
// parent teams; DefaultRoles are inherited by every user under the team.
type Team struct {
	Name         string   `json:"name"`
	Parents      []string `json:"parents,omitempty"`
	DefaultRoles []string `json:"default_roles,omitempty"`
}

// User is the acting principal
type User struct {
	ID    string   `json:"id,omitempty"`
	Name  string   `json:"name"`
	Teams []string `json:"teams,omitempty"` // direct team memberships
	Roles []string `json:"roles,omitempty"` // directly assigned roles
}

// ============================================================================
// LISTING FILTERS
// ============================================================================

// Include selects which rows a listing considers with respect to soft deletes
type Include string

const (
	IncludeNonDeleted Include = "non-deleted"
	IncludeDeleted    Include = "deleted"
	IncludeAll        Include = "all"
)

// ListFilter scopes a listing request. The same filter drives both the page
// query and the total count so pages and totals stay consistent.
type ListFilter struct {
	Include Include `json:"include"`
}

// Matches reports whether a row with the given deleted flag passes the filter
func (f ListFilter) Matches(deleted bool) bool {
	switch f.Include {
	case IncludeDeleted:
		return deleted
	case IncludeAll:
		return true
	default:
		return !deleted
	}
}

// ============================================================================
// STORAGE INTERFACES
// ============================================================================

// ErrNotFound is returned by reference lookups when the named tag, team or
// role does not exist.
var ErrNotFound = errors.New("not found")

// ReferenceStore answers existence lookups for tags, teams and roles.
// It is consulted only in validation mode, never during live evaluation.
type ReferenceStore interface {
	GetTag(ctx context.Context, fqn string) (*Tag, error)
	GetTeam(ctx context.Context, name string) (*Team, error)
	GetRole(ctx context.Context, name string) (*Role, error)
}

// Record is one row of an ordered entity listing. Name is the ordering key.
type Record struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
}

// EntityStore is the storage-side pagination primitive. Implementations must
// order rows by Name ascending for ListAfter and descending for ListBefore,
// returning rows strictly beyond the bound key (empty bound means unbounded).
type EntityStore interface {
	ListAfter(ctx context.Context, filter ListFilter, limit int, after string) ([]Record, error)
	ListBefore(ctx context.Context, filter ListFilter, limit int, before string) ([]Record, error)
	ListCount(ctx context.Context, filter ListFilter) (int, error)
}
