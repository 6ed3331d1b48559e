package policyeval

import (
	"errors"
	"fmt"
)

// The builtin predicate set. Missing optional context (nil resource, nil
// subject) degrades to false so evaluation stays total; only genuine lookup
// failures produce errors.

func requireArgs(name string, args []string) error {
	if len(args) == 0 {
		return &ExpressionSyntaxError{Expression: name, Message: "at least one argument required"}
	}
	return nil
}

func requireNoArgs(name string, args []string) error {
	if len(args) != 0 {
		return &ExpressionSyntaxError{Expression: name, Message: "takes no arguments"}
	}
	return nil
}

func checkReference(ec *EvalContext, kind, name string, lookup func() error) error {
	if ec.refs == nil {
		return nil
	}
	if err := lookup(); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ExpressionReferenceError{Kind: kind, Name: name, Err: err}
		}
		return fmt.Errorf("lookup %s %s: %w", kind, name, err)
	}
	return nil
}

type noOwnerFn struct{}

func (noOwnerFn) Name() string  { return "noOwner" }
func (noOwnerFn) Input() string { return "none" }
func (noOwnerFn) Description() string {
	return "Returns true if the entity being accessed has no owner"
}
func (noOwnerFn) Examples() []string {
	return []string{"noOwner()", "!noOwner", "noOwner() || isOwner()"}
}

func (f noOwnerFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireNoArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		return false, nil
	}
	return ec.Resource != nil && ec.Resource.Owner() == nil, nil
}

type isOwnerFn struct{}

func (isOwnerFn) Name() string  { return "isOwner" }
func (isOwnerFn) Input() string { return "none" }
func (isOwnerFn) Description() string {
	return "Returns true if the logged in user is the owner of the entity being accessed"
}
func (isOwnerFn) Examples() []string {
	return []string{"isOwner()", "!isOwner", "noOwner() || isOwner()"}
}

func (f isOwnerFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireNoArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		return false, nil
	}
	if ec.Subject == nil || ec.Resource == nil {
		return false, nil
	}
	return ec.Subject.IsOwner(ec.Resource.Owner()), nil
}

type matchAllTagsFn struct{}

func (matchAllTagsFn) Name() string  { return "matchAllTags" }
func (matchAllTagsFn) Input() string { return "List of comma separated tag fully qualified names" }
func (matchAllTagsFn) Description() string {
	return "Returns true if the entity being accessed has all the tags given as input"
}
func (matchAllTagsFn) Examples() []string {
	return []string{"matchAllTags('PersonalData.Personal', 'Tier.Tier1')"}
}

func (f matchAllTagsFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		for _, fqn := range args {
			if err := checkReference(ec, RefTag, fqn, func() error {
				_, err := ec.refs.GetTag(ec.Context(), fqn)
				return err
			}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if ec.Resource == nil {
		return false, nil
	}
	for _, fqn := range args {
		if !ec.Resource.HasTag(fqn) {
			ec.debugf("matchAllTags missing tag", "tag", fqn, "resource", ec.Resource.Name())
			return false, nil
		}
	}
	return true, nil
}

type matchAnyTagFn struct{}

func (matchAnyTagFn) Name() string  { return "matchAnyTag" }
func (matchAnyTagFn) Input() string { return "List of comma separated tag fully qualified names" }
func (matchAnyTagFn) Description() string {
	return "Returns true if the entity being accessed has at least one of the tags given as input"
}
func (matchAnyTagFn) Examples() []string {
	return []string{"matchAnyTag('PersonalData.Personal', 'Tier.Tier1')"}
}

func (f matchAnyTagFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		for _, fqn := range args {
			if err := checkReference(ec, RefTag, fqn, func() error {
				_, err := ec.refs.GetTag(ec.Context(), fqn)
				return err
			}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if ec.Resource == nil {
		return false, nil
	}
	for _, fqn := range args {
		if ec.Resource.HasTag(fqn) {
			ec.debugf("matchAnyTag matched", "tag", fqn, "resource", ec.Resource.Name())
			return true, nil
		}
	}
	return false, nil
}

type matchTeamFn struct{}

func (matchTeamFn) Name() string  { return "matchTeam" }
func (matchTeamFn) Input() string { return "none" }
func (matchTeamFn) Description() string {
	return "Returns true if the user and the resource belong to the team hierarchy where this policy is attached"
}
func (matchTeamFn) Examples() []string { return []string{"matchTeam()"} }

func (f matchTeamFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireNoArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		return false, nil
	}
	if ec.Resource == nil || ec.Resource.Owner() == nil {
		return false, nil // no ownership information
	}
	if ec.Policy == nil || ec.Policy.EntityType != EntityTypeTeam {
		return false, nil // policy must be attached to a team
	}
	if ec.Subject == nil {
		return false, nil
	}
	return ec.Subject.IsTeamAsset(ec.Policy.EntityName, ec.Resource.Owner()) &&
		ec.Subject.IsUserUnderTeam(ec.Policy.EntityName), nil
}

type inAnyTeamFn struct{}

func (inAnyTeamFn) Name() string  { return "inAnyTeam" }
func (inAnyTeamFn) Input() string { return "List of comma separated team names" }
func (inAnyTeamFn) Description() string {
	return "Returns true if the user belongs under the hierarchy of any of the teams in the given list"
}
func (inAnyTeamFn) Examples() []string { return []string{"inAnyTeam('marketing')"} }

func (f inAnyTeamFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		for _, team := range args {
			if err := checkReference(ec, RefTeam, team, func() error {
				_, err := ec.refs.GetTeam(ec.Context(), team)
				return err
			}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if ec.Subject == nil {
		return false, nil
	}
	for _, team := range args {
		if ec.Subject.IsUserUnderTeam(team) {
			ec.debugf("inAnyTeam matched", "team", team, "user", ec.Subject.User().Name)
			return true, nil
		}
	}
	return false, nil
}

type hasAnyRoleFn struct{}

func (hasAnyRoleFn) Name() string  { return "hasAnyRole" }
func (hasAnyRoleFn) Input() string { return "List of comma separated roles" }
func (hasAnyRoleFn) Description() string {
	return "Returns true if the user has one or more roles from the list, directly or inherited from parent teams"
}
func (hasAnyRoleFn) Examples() []string { return []string{"hasAnyRole('DataSteward', 'DataEngineer')"} }

func (f hasAnyRoleFn) Evaluate(ec *EvalContext, args []string) (bool, error) {
	if err := requireArgs(f.Name(), args); err != nil {
		return false, err
	}
	if ec.validation {
		for _, role := range args {
			if err := checkReference(ec, RefRole, role, func() error {
				_, err := ec.refs.GetRole(ec.Context(), role)
				return err
			}); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if ec.Subject == nil {
		return false, nil
	}
	for _, role := range args {
		if ec.Subject.HasRole(role) {
			ec.debugf("hasAnyRole matched", "role", role, "user", ec.Subject.User().Name)
			return true, nil
		}
	}
	return false, nil
}
